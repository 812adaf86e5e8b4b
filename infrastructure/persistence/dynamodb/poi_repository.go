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

// PoIRepository implements ports.PoIRepository on a single table
type PoIRepository struct {
	client    API
	tableName string
	logger    *zap.Logger
}

// NewPoIRepository creates a PoI repository
func NewPoIRepository(client API, tableName string, logger *zap.Logger) *PoIRepository {
	return &PoIRepository{client: client, tableName: tableName, logger: logger}
}

func (r *PoIRepository) Create(ctx context.Context, poi *entities.PoI) error {
	av, err := attributevalue.MarshalMap(newPoIItem(poi.Snapshot()))
	if err != nil {
		return pkgerrors.NewInternalError("encode poi").WithCause(err)
	}
	cond, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return pkgerrors.NewInternalError("build condition").WithCause(err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                tableName(r.tableName),
		Item:                     av,
		ConditionExpression:      cond.Condition(),
		ExpressionAttributeNames: cond.Names(),
	})
	if err != nil {
		if _, ok := conditionFailed(err); ok {
			return pkgerrors.NewConflictError("poi " + poi.ID().String() + " already exists")
		}
		r.logger.Error("Failed to create poi", zap.Error(err), zap.String("poiID", poi.ID().String()))
		return storeError("create poi", err)
	}
	return nil
}

func (r *PoIRepository) Get(ctx context.Context, id valueobjects.PoIID) (*entities.PoI, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      tableName(r.tableName),
		Key:            key(pk("POI", id.String()), entityPoI),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storeError("get poi", err)
	}
	if len(out.Item) == 0 {
		return nil, pkgerrors.NewNotFoundError("poi " + id.String())
	}
	return decodePoI(out.Item)
}

func (r *PoIRepository) GetMany(ctx context.Context, ids []valueobjects.PoIID) ([]*entities.PoI, error) {
	var out []*entities.PoI
	for start := 0; start < len(ids); start += batchGetSize {
		end := start + batchGetSize
		if end > len(ids) {
			end = len(ids)
		}
		keys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, key(pk("POI", id.String()), entityPoI))
		}

		request := map[string]types.KeysAndAttributes{
			r.tableName: {Keys: keys, ConsistentRead: aws.Bool(true)},
		}
		for len(request) > 0 {
			res, err := r.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
			if err != nil {
				return nil, storeError("batch get pois", err)
			}
			for _, item := range res.Responses[r.tableName] {
				p, err := decodePoI(item)
				if err != nil {
					return nil, err
				}
				out = append(out, p)
			}
			request = res.UnprocessedKeys
		}
	}
	return out, nil
}

func (r *PoIRepository) Update(ctx context.Context, poi *entities.PoI, expectedVersion int) error {
	av, err := attributevalue.MarshalMap(newPoIItem(poi.Snapshot()))
	if err != nil {
		return pkgerrors.NewInternalError("encode poi").WithCause(err)
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
				return pkgerrors.NewNotFoundError("poi " + poi.ID().String())
			}
			return pkgerrors.NewConflictError("poi " + poi.ID().String() + " was modified concurrently")
		}
		return storeError("update poi", err)
	}
	return nil
}

func (r *PoIRepository) SetRefutedBy(ctx context.Context, id, refuter valueobjects.PoIID) error {
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name("PK")).
			And(expression.AttributeNotExists(expression.Name("RefutedBy")))).
		WithUpdate(expression.
			Set(expression.Name("RefutedBy"), expression.Value(refuter.String())).
			Set(expression.Name("Version"), expression.Name("Version").Plus(expression.Value(1)))).
		Build()
	if err != nil {
		return pkgerrors.NewInternalError("build update").WithCause(err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           tableName(r.tableName),
		Key:                                 key(pk("POI", id.String()), entityPoI),
		ConditionExpression:                 expr.Condition(),
		UpdateExpression:                    expr.Update(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		if old, ok := conditionFailed(err); ok {
			if len(old) == 0 {
				return pkgerrors.NewNotFoundError("poi " + id.String())
			}
			return pkgerrors.NewConflictError("poi " + id.String() + " is already refuted")
		}
		return storeError("refute poi", err)
	}
	return nil
}

func (r *PoIRepository) Delete(ctx context.Context, id valueobjects.PoIID) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: tableName(r.tableName),
		Key:       key(pk("POI", id.String()), entityPoI),
	})
	if err != nil {
		return storeError("delete poi", err)
	}
	return nil
}

func (r *PoIRepository) ListByProject(ctx context.Context, projectID valueobjects.ProjectID) ([]*entities.PoI, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(pk("PROJECT", projectID.String()))).
		And(expression.Key("GSI1SK").BeginsWith("POI#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.NewInternalError("build query").WithCause(err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 tableName(r.tableName),
		IndexName:                 aws.String(gsi1),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	var out []*entities.PoI
	paginator := dynamodb.NewQueryPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, storeError("list pois", err)
		}
		for _, item := range page.Items {
			p, err := decodePoI(item)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
	}
	return out, nil
}

func decodePoI(item map[string]types.AttributeValue) (*entities.PoI, error) {
	var it poiItem
	if err := attributevalue.UnmarshalMap(item, &it); err != nil {
		return nil, pkgerrors.NewInternalError("corrupt poi item").WithCause(err)
	}
	return entities.RestorePoI(it.PoISnapshot)
}
