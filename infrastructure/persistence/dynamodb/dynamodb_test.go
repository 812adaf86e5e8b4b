package dynamodb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kaku/domain/core/entities"
	"kaku/domain/core/valueobjects"
	pkgerrors "kaku/pkg/errors"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// fakeClient records requests and answers from scripted functions. Methods
// that are not scripted fail the test.
type fakeClient struct {
	API
	mu      sync.Mutex
	puts    []*dynamodb.PutItemInput
	deletes []*dynamodb.DeleteItemInput
	put     func(*dynamodb.PutItemInput) error
	get     func(*dynamodb.GetItemInput) map[string]types.AttributeValue
	update  func(*dynamodb.UpdateItemInput) error
}

func (f *fakeClient) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	f.puts = append(f.puts, in)
	f.mu.Unlock()
	if f.put != nil {
		return &dynamodb.PutItemOutput{}, f.put(in)
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeClient) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.get(in)}, nil
}

func (f *fakeClient) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return &dynamodb.UpdateItemOutput{}, f.update(in)
}

func (f *fakeClient) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	f.deletes = append(f.deletes, in)
	f.mu.Unlock()
	return &dynamodb.DeleteItemOutput{}, nil
}

func thought(t *testing.T) *entities.PoI {
	t.Helper()
	content, err := valueobjects.NewContent("atoms are mostly empty space")
	require.NoError(t, err)
	tag, err := valueobjects.NewTag("physics")
	require.NoError(t, err)
	path, err := valueobjects.NewCategoryPath("science.physics")
	require.NoError(t, err)

	p, err := entities.NewPoI(entities.NewPoIParams{
		ID:         valueobjects.NewPoIID(),
		Variant:    entities.VariantThought,
		ProjectID:  valueobjects.NewProjectID(),
		ScribeID:   valueobjects.NewScribeID(),
		Content:    content,
		Media:      []string{"s3://bucket/atom.png"},
		CreatedAt:  base,
		ImportedAt: base.Add(-time.Hour),
		Tags:       []valueobjects.Tag{tag},
		Categories: []valueobjects.CategoryPath{path},
	})
	require.NoError(t, err)
	return p
}

func TestPoIItem_KeysAndRoundTrip(t *testing.T) {
	p := thought(t)
	item := newPoIItem(p.Snapshot())

	assert.Equal(t, "POI#"+p.ID().String(), item.PK)
	assert.Equal(t, "POI", item.SK)
	assert.Equal(t, "PROJECT#"+p.ProjectID().String(), item.GSI1PK)
	assert.Regexp(t, `^POI#\d{20}#`+p.ID().String()+`$`, item.GSI1SK)

	av, err := attributevalue.MarshalMap(item)
	require.NoError(t, err)
	assert.Contains(t, av, "Content")
	assert.Contains(t, av, "Tags")
	assert.NotContains(t, av, "RefutedBy")

	got, err := decodePoI(av)
	require.NoError(t, err)
	assert.Equal(t, p.Snapshot(), got.Snapshot())
}

func TestPoIItem_SortKeyOrdersByCreation(t *testing.T) {
	a := newPoIItem(entities.PoISnapshot{ID: "a", ProjectID: "p", CreatedAt: base})
	b := newPoIItem(entities.PoISnapshot{ID: "b", ProjectID: "p", CreatedAt: base.Add(time.Millisecond)})
	assert.Less(t, a.GSI1SK, b.GSI1SK)
}

func TestProjectItems(t *testing.T) {
	universe, err := valueobjects.ParseUniverseID(uuid.NewString())
	require.NoError(t, err)
	p, err := entities.NewProject(valueobjects.NewProjectID(), universe, "Życie Codzienne", base)
	require.NoError(t, err)

	item := newProjectItem(p.Snapshot())
	assert.Equal(t, "PROJECT#"+p.ID().String(), item.PK)
	assert.Equal(t, "UNIVERSE#"+p.UniverseID().String(), item.GSI1PK)

	slug := newSlugItem(p.Snapshot())
	assert.Equal(t, "SLUG#"+p.UniverseID().String()+"#"+p.Slug(), slug.PK)

	av, err := attributevalue.MarshalMap(item)
	require.NoError(t, err)
	got, err := decodeProject(av)
	require.NoError(t, err)
	assert.Equal(t, p.Snapshot(), got.Snapshot())
}

func TestPoIRepository_CreateDuplicateIsConflict(t *testing.T) {
	client := &fakeClient{put: func(*dynamodb.PutItemInput) error {
		return &types.ConditionalCheckFailedException{}
	}}
	repo := NewPoIRepository(client, "kaku", zap.NewNop())

	err := repo.Create(context.Background(), thought(t))
	assert.True(t, pkgerrors.IsConflict(err))
	require.Len(t, client.puts, 1)
	assert.NotNil(t, client.puts[0].ConditionExpression)
}

func TestPoIRepository_GetUnknownIsNotFound(t *testing.T) {
	client := &fakeClient{get: func(*dynamodb.GetItemInput) map[string]types.AttributeValue { return nil }}
	repo := NewPoIRepository(client, "kaku", zap.NewNop())

	_, err := repo.Get(context.Background(), valueobjects.NewPoIID())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestPoIRepository_SetRefutedBy(t *testing.T) {
	tests := []struct {
		name  string
		fail  error
		check func(error) bool
	}{
		{"first writer", nil, func(err error) bool { return err == nil }},
		{"already refuted", &types.ConditionalCheckFailedException{
			Item: map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: "POI#x"}},
		}, pkgerrors.IsConflict},
		{"missing", &types.ConditionalCheckFailedException{}, pkgerrors.IsNotFound},
		{"transport", errors.New("boom"), func(err error) bool { return pkgerrors.IsType(err, pkgerrors.ErrorTypeDatabase) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *dynamodb.UpdateItemInput
			client := &fakeClient{update: func(in *dynamodb.UpdateItemInput) error {
				seen = in
				return tt.fail
			}}
			repo := NewPoIRepository(client, "kaku", zap.NewNop())

			err := repo.SetRefutedBy(context.Background(), valueobjects.NewPoIID(), valueobjects.NewPoIID())
			assert.True(t, tt.check(err), "unexpected error %v", err)
			require.NotNil(t, seen)
			assert.Contains(t, *seen.ConditionExpression, "attribute_not_exists")
			assert.Regexp(t, `#\d+ = #\d+ \+ :\d+`, *seen.UpdateExpression)
			assert.Equal(t, types.ReturnValuesOnConditionCheckFailureAllOld, seen.ReturnValuesOnConditionCheckFailure)
		})
	}
}

func TestDistributedLock_RetriesWhileHeld(t *testing.T) {
	attempts := 0
	client := &fakeClient{put: func(*dynamodb.PutItemInput) error {
		attempts++
		if attempts < 3 {
			return &types.ConditionalCheckFailedException{}
		}
		return nil
	}}
	lock := NewDistributedLock(client, "kaku", time.Minute, zap.NewNop())
	lock.retry = time.Millisecond

	release, err := lock.Acquire(context.Background(), "poi#a")
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	release()
	require.Len(t, client.deletes, 1)
	assert.Equal(t, "LOCK#poi#a", client.deletes[0].Key["PK"].(*types.AttributeValueMemberS).Value)
}

func TestDistributedLock_SortsAndDeduplicatesKeys(t *testing.T) {
	client := &fakeClient{}
	lock := NewDistributedLock(client, "kaku", time.Minute, zap.NewNop())

	release, err := lock.Acquire(context.Background(), "poi#b", "poi#a", "poi#b")
	require.NoError(t, err)
	defer release()

	require.Len(t, client.puts, 2)
	assert.Equal(t, "LOCK#poi#a", client.puts[0].Item["PK"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "LOCK#poi#b", client.puts[1].Item["PK"].(*types.AttributeValueMemberS).Value)
}

func TestDistributedLock_ReleasesHeldKeysOnCancel(t *testing.T) {
	client := &fakeClient{put: func(in *dynamodb.PutItemInput) error {
		if in.Item["PK"].(*types.AttributeValueMemberS).Value == "LOCK#poi#b" {
			return &types.ConditionalCheckFailedException{}
		}
		return nil
	}}
	lock := NewDistributedLock(client, "kaku", time.Minute, zap.NewNop())
	lock.retry = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := lock.Acquire(ctx, "poi#a", "poi#b")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.Len(t, client.deletes, 1)
	assert.Equal(t, "LOCK#poi#a", client.deletes[0].Key["PK"].(*types.AttributeValueMemberS).Value)
}
