package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SubjectCarterSoftware/WhoOwnsThis/domain/events"
)

type fakeClient struct {
	mu       sync.Mutex
	calls    []*eventbridge.PutEventsInput
	failures int
	partial  bool
}

func (f *fakeClient) PutEvents(_ context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, in)
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("throttled")
	}
	if f.partial {
		return &eventbridge.PutEventsOutput{
			FailedEntryCount: 1,
			Entries: []types.PutEventsResultEntry{
				{ErrorCode: aws.String("InternalFailure"), ErrorMessage: aws.String("boom")},
			},
		}, nil
	}
	return &eventbridge.PutEventsOutput{}, nil
}

func makeEvents(n int) []events.DomainEvent {
	out := make([]events.DomainEvent, n)
	for i := range out {
		out[i] = events.NewNodeAdded("doc-1", i+1, "n")
	}
	return out
}

func newTestPublisher(client PutEventsAPI) *Publisher {
	p := NewPublisher(client, "graph-bus", "whoownsthis.graph", nil)
	p.backoff = time.Millisecond
	return p
}

func TestPublisher_Batches(t *testing.T) {
	client := &fakeClient{}
	p := newTestPublisher(client)

	require.NoError(t, p.PublishBatch(context.Background(), makeEvents(23)))
	require.Len(t, client.calls, 3)
	assert.Len(t, client.calls[0].Entries, 10)
	assert.Len(t, client.calls[1].Entries, 10)
	assert.Len(t, client.calls[2].Entries, 3)

	entry := client.calls[0].Entries[0]
	assert.Equal(t, "graph-bus", aws.ToString(entry.EventBusName))
	assert.Equal(t, "whoownsthis.graph", aws.ToString(entry.Source))
	assert.Equal(t, events.TypeNodeAdded, aws.ToString(entry.DetailType))
	assert.Equal(t, []string{"graph:doc-1"}, entry.Resources)

	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail))
	assert.Equal(t, "n", detail["node_key"])
}

func TestPublisher_Empty(t *testing.T) {
	client := &fakeClient{}
	require.NoError(t, newTestPublisher(client).PublishBatch(context.Background(), nil))
	assert.Empty(t, client.calls)
}

func TestPublisher_Retries(t *testing.T) {
	client := &fakeClient{failures: 2}
	p := newTestPublisher(client)

	require.NoError(t, p.Publish(context.Background(), makeEvents(1)[0]))
	assert.Len(t, client.calls, 3)
}

func TestPublisher_GivesUp(t *testing.T) {
	client := &fakeClient{partial: true}
	p := newTestPublisher(client)

	err := p.Publish(context.Background(), makeEvents(1)[0])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Len(t, client.calls, 3)
}
