package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
	pkgerrors "kaku/pkg/errors"
)

// ProjectRepository implements ports.ProjectRepository. A project and its
// slug reservation are written in one transaction.
type ProjectRepository struct {
	client    API
	tableName string
	logger    *zap.Logger
}

// NewProjectRepository creates a project repository
func NewProjectRepository(client API, tableName string, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{client: client, tableName: tableName, logger: logger}
}

func (r *ProjectRepository) Create(ctx context.Context, project *entities.Project) error {
	s := project.Snapshot()
	projectAV, err := attributevalue.MarshalMap(newProjectItem(s))
	if err != nil {
		return pkgerrors.NewInternalError("encode project").WithCause(err)
	}
	slugAV, err := attributevalue.MarshalMap(newSlugItem(s))
	if err != nil {
		return pkgerrors.NewInternalError("encode slug").WithCause(err)
	}
	cond, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return pkgerrors.NewInternalError("build condition").WithCause(err)
	}

	put := func(item map[string]types.AttributeValue) types.TransactWriteItem {
		return types.TransactWriteItem{Put: &types.Put{
			TableName:                tableName(r.tableName),
			Item:                     item,
			ConditionExpression:      cond.Condition(),
			ExpressionAttributeNames: cond.Names(),
		}}
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{put(projectAV), put(slugAV)},
	})
	if err != nil {
		if transactionCanceled(err) {
			return pkgerrors.NewConflictError("a project named " + s.Name + " already exists in this universe")
		}
		r.logger.Error("Failed to create project", zap.Error(err), zap.String("projectID", s.ID))
		return storeError("create project", err)
	}
	return nil
}

func (r *ProjectRepository) Get(ctx context.Context, id valueobjects.ProjectID) (*entities.Project, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      tableName(r.tableName),
		Key:            key(pk("PROJECT", id.String()), "METADATA"),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storeError("get project", err)
	}
	if len(out.Item) == 0 {
		return nil, pkgerrors.NewNotFoundError("project " + id.String())
	}
	return decodeProject(out.Item)
}

func (r *ProjectRepository) Update(ctx context.Context, project *entities.Project, expectedVersion int) error {
	av, err := attributevalue.MarshalMap(newProjectItem(project.Snapshot()))
	if err != nil {
		return pkgerrors.NewInternalError("encode project").WithCause(err)
	}
	cond, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name("PK")).
			And(expression.Name("Version").Equal(expression.Value(expectedVersion)))).
		Build()
	if err != nil {
		return pkgerrors.NewInternalError("build condition").WithCause(err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                           tableName(r.tableName),
		Item:                                av,
		ConditionExpression:                 cond.Condition(),
		ExpressionAttributeNames:            cond.Names(),
		ExpressionAttributeValues:           cond.Values(),
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		if old, ok := conditionFailed(err); ok {
			if len(old) == 0 {
				return pkgerrors.NewNotFoundError("project " + project.ID().String())
			}
			return pkgerrors.NewConflictError("project " + project.ID().String() + " was modified concurrently")
		}
		return storeError("update project", err)
	}
	return nil
}

func (r *ProjectRepository) ListByUniverse(ctx context.Context, universeID valueobjects.UniverseID) ([]*entities.Project, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(pk("UNIVERSE", universeID.String()))).
		And(expression.Key("GSI1SK").BeginsWith("PROJECT#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.NewInternalError("build query").WithCause(err)
	}

	var out []*entities.Project
	paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 tableName(r.tableName),
		IndexName:                 aws.String(gsi1),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, storeError("list projects", err)
		}
		for _, item := range page.Items {
			p, err := decodeProject(item)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
	}
	return out, nil
}

// List scans the table. It is only used at startup to rebuild the indices.
func (r *ProjectRepository) List(ctx context.Context) ([]*entities.Project, error) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name("EntityType").Equal(expression.Value(entityProject))).
		Build()
	if err != nil {
		return nil, pkgerrors.NewInternalError("build scan").WithCause(err)
	}

	var out []*entities.Project
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                 tableName(r.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, storeError("scan projects", err)
		}
		for _, item := range page.Items {
			p, err := decodeProject(item)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
	}
	return out, nil
}

func decodeProject(item map[string]types.AttributeValue) (*entities.Project, error) {
	var it projectItem
	if err := attributevalue.UnmarshalMap(item, &it); err != nil {
		return nil, pkgerrors.NewInternalError("corrupt project item").WithCause(err)
	}
	return entities.RestoreProject(it.ProjectSnapshot)
}
