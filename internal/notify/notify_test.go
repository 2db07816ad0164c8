package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanPublisher struct {
	events chan Event
	data   chan []byte
	err    error
}

func (p *chanPublisher) Publish(ctx context.Context, event Event, data []byte) error {
	p.events <- event
	p.data <- data
	return p.err
}

func TestDispatcher_PublishesAsync(t *testing.T) {
	pub := &chanPublisher{events: make(chan Event, 1), data: make(chan []byte, 1)}
	d := NewDispatcher(pub, zerolog.Nop(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	d.Notify(ctx, StageDecided, map[string]interface{}{"workflow_id": "wf-1"})
	cancel()

	select {
	case event := <-pub.events:
		assert.Equal(t, StageDecided, event.Kind)
		assert.NotEmpty(t, event.ID)
		assert.Equal(t, "wf-1", event.Payload["workflow_id"])

		var decoded Event
		require.NoError(t, json.Unmarshal(<-pub.data, &decoded))
		assert.Equal(t, event.ID, decoded.ID)
	case <-time.After(time.Second):
		t.Fatal("event was not published")
	}
}

type countingPublisher struct {
	mu    sync.Mutex
	calls int
	done  chan struct{}
}

func (p *countingPublisher) Publish(context.Context, Event, []byte) error {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	close(p.done)
	return errors.New("broker down")
}

func TestDispatcher_PublishFailureDoesNotPanic(t *testing.T) {
	pub := &countingPublisher{done: make(chan struct{})}
	d := NewDispatcher(pub, zerolog.Nop(), time.Second)

	d.Notify(context.Background(), BidReceived, nil)

	select {
	case <-pub.done:
	case <-time.After(time.Second):
		t.Fatal("publisher was not called")
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, 1, pub.calls)
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(zerolog.Nop())
	err := p.Publish(context.Background(), Event{ID: "1", Kind: TenderPublished}, []byte(`{"id":"1"}`))
	assert.NoError(t, err)
}
