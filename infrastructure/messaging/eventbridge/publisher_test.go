package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kaku/domain/events"
)

type fakeClient struct {
	calls  []*eventbridge.PutEventsInput
	failed int32
}

func (f *fakeClient) PutEvents(_ context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.calls = append(f.calls, in)
	out := &eventbridge.PutEventsOutput{FailedEntryCount: f.failed}
	for i := range in.Entries {
		entry := types.PutEventsResultEntry{}
		if int32(i) < f.failed {
			entry.ErrorCode = aws.String("InternalFailure")
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

func modelEvents(n int) []events.DomainEvent {
	out := make([]events.DomainEvent, n)
	for i := range out {
		out[i] = events.NewModelEvent(events.ModelNote, events.ActionCreated, fmt.Sprintf("poi-%d", i), "project", time.Unix(int64(i), 0))
	}
	return out
}

func TestPublisher_BatchesByTen(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, "kaku-bus", zap.NewNop())

	require.NoError(t, p.Publish(context.Background(), modelEvents(23)...))

	require.Len(t, client.calls, 3)
	assert.Len(t, client.calls[0].Entries, 10)
	assert.Len(t, client.calls[1].Entries, 10)
	assert.Len(t, client.calls[2].Entries, 3)

	entry := client.calls[0].Entries[0]
	assert.Equal(t, "kaku-bus", aws.ToString(entry.EventBusName))
	assert.Equal(t, Source, aws.ToString(entry.Source))

	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail))
	assert.Equal(t, "create", detail["kind"])
	assert.Equal(t, "note", detail["model"])
}

func TestPublisher_ReportsFailedEntries(t *testing.T) {
	client := &fakeClient{failed: 1}
	p := NewPublisher(client, "kaku-bus", zap.NewNop())

	err := p.Publish(context.Background(), modelEvents(2)...)
	assert.EqualError(t, err, "1 events failed to publish")
}

func TestPublisher_NoEventsNoCall(t *testing.T) {
	client := &fakeClient{}
	require.NoError(t, NewPublisher(client, "kaku-bus", zap.NewNop()).Publish(context.Background()))
	assert.Empty(t, client.calls)
}
