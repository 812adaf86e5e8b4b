package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DistributedLock implements ports.Locker with conditional writes so that
// several instances serialise commands on the same PoIs. A lease expires
// after its duration, so a crashed holder blocks others for at most that
// long.
type DistributedLock struct {
	client    API
	tableName string
	owner     string
	lease     time.Duration
	retry     time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewDistributedLock creates a lock whose leases last lease
func NewDistributedLock(client API, tableName string, lease time.Duration, logger *zap.Logger) *DistributedLock {
	return &DistributedLock{
		client:    client,
		tableName: tableName,
		owner:     uuid.NewString(),
		lease:     lease,
		retry:     50 * time.Millisecond,
		now:       time.Now,
		logger:    logger,
	}
}

// lockRecord is the stored lease
type lockRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	LockID     string `dynamodbav:"LockID"`
	Owner      string `dynamodbav:"Owner"`
	AcquiredAt string `dynamodbav:"AcquiredAt"`
	ExpiresAt  int64  `dynamodbav:"ExpiresAt"`
	TTL        int64  `dynamodbav:"TTL"`
}

type lease struct {
	key    string
	lockID string
}

// Acquire takes every key in sorted order, retrying with backoff while a key
// is held elsewhere. On failure the keys already taken are released.
func (dl *DistributedLock) Acquire(ctx context.Context, keys ...string) (func(), error) {
	keys = append([]string(nil), keys...)
	sort.Strings(keys)

	var held []lease
	release := func() {
		// Release must run even when the request context is already done.
		ctx := context.WithoutCancel(ctx)
		for i := len(held) - 1; i >= 0; i-- {
			if err := dl.release(ctx, held[i]); err != nil {
				dl.logger.Warn("Failed to release lock", zap.String("key", held[i].key), zap.Error(err))
			}
		}
	}

	for i, k := range keys {
		if i > 0 && k == keys[i-1] {
			continue
		}
		l, err := dl.acquire(ctx, k)
		if err != nil {
			release()
			return nil, err
		}
		held = append(held, l)
	}
	return release, nil
}

func (dl *DistributedLock) acquire(ctx context.Context, key string) (lease, error) {
	wait := dl.retry
	for {
		l, err := dl.tryAcquire(ctx, key)
		if err == nil {
			return l, nil
		}
		if _, busy := conditionFailed(err); !busy {
			return lease{}, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}

		dl.logger.Debug("Lock held elsewhere, waiting", zap.String("key", key), zap.Duration("wait", wait))
		select {
		case <-ctx.Done():
			return lease{}, ctx.Err()
		case <-time.After(wait):
		}
		if wait < time.Second {
			wait = time.Duration(float64(wait) * 1.5)
		}
	}
}

func (dl *DistributedLock) tryAcquire(ctx context.Context, key string) (lease, error) {
	now := dl.now()
	expires := now.Add(dl.lease)
	rec := lockRecord{
		PK:         pk("LOCK", key),
		SK:         "LOCK",
		LockID:     uuid.NewString(),
		Owner:      dl.owner,
		AcquiredAt: now.UTC().Format(time.RFC3339),
		ExpiresAt:  expires.UnixMilli(),
		TTL:        expires.Add(time.Hour).Unix(),
	}

	_, err := dl.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: tableName(dl.tableName),
		Item: map[string]types.AttributeValue{
			"PK":         &types.AttributeValueMemberS{Value: rec.PK},
			"SK":         &types.AttributeValueMemberS{Value: rec.SK},
			"LockID":     &types.AttributeValueMemberS{Value: rec.LockID},
			"Owner":      &types.AttributeValueMemberS{Value: rec.Owner},
			"AcquiredAt": &types.AttributeValueMemberS{Value: rec.AcquiredAt},
			"ExpiresAt":  &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.ExpiresAt, 10)},
			"TTL":        &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.TTL, 10)},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixMilli(), 10)},
		},
	})
	if err != nil {
		return lease{}, err
	}
	return lease{key: key, lockID: rec.LockID}, nil
}

func (dl *DistributedLock) release(ctx context.Context, l lease) error {
	_, err := dl.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           tableName(dl.tableName),
		Key:                 key(pk("LOCK", l.key), "LOCK"),
		ConditionExpression: aws.String("LockID = :lockId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":lockId": &types.AttributeValueMemberS{Value: l.lockID},
		},
	})
	if _, ok := conditionFailed(err); ok {
		// The lease expired and someone else holds the key now.
		return nil
	}
	return err
}
