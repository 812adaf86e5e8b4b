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

// ScribeRepository implements ports.ScribeRepository
type ScribeRepository struct {
	client    API
	tableName string
	logger    *zap.Logger
}

// NewScribeRepository creates a scribe repository
func NewScribeRepository(client API, tableName string, logger *zap.Logger) *ScribeRepository {
	return &ScribeRepository{client: client, tableName: tableName, logger: logger}
}

func (r *ScribeRepository) Create(ctx context.Context, scribe *entities.Scribe) error {
	av, err := attributevalue.MarshalMap(newScribeItem(scribe.Snapshot()))
	if err != nil {
		return pkgerrors.NewInternalError("encode scribe").WithCause(err)
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
			return pkgerrors.NewConflictError("scribe " + scribe.ID().String() + " already exists")
		}
		return storeError("create scribe", err)
	}
	return nil
}

func (r *ScribeRepository) Get(ctx context.Context, id valueobjects.ScribeID) (*entities.Scribe, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      tableName(r.tableName),
		Key:            key(pk("SCRIBE", id.String()), "METADATA"),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storeError("get scribe", err)
	}
	if len(out.Item) == 0 {
		return nil, pkgerrors.NewNotFoundError("scribe " + id.String())
	}
	return decodeScribe(out.Item)
}

func decodeScribe(item map[string]types.AttributeValue) (*entities.Scribe, error) {
	var it scribeItem
	if err := attributevalue.UnmarshalMap(item, &it); err != nil {
		return nil, pkgerrors.NewInternalError("corrupt scribe item").WithCause(err)
	}
	return entities.RestoreScribe(it.ScribeSnapshot)
}
