package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublishFansOutToSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var mu sync.Mutex
	var got []StatusChangeEvent
	bus.Subscribe(TopicProjectStatusChanged, func(ctx context.Context, ev StatusChangeEvent) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	bus.Publish(context.Background(), StatusChangeEvent{
		Topic:      TopicProjectStatusChanged,
		CompanyID:  node.Generate(),
		EntityType: "validation_project",
		EntityID:   node.Generate(),
		From:       "draft",
		To:         "pending",
		OccurredAt: time.Now().UTC(),
	})
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "pending", got[0].To)
}

func TestPublishIgnoresOtherTopics(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var mu sync.Mutex
	calls := 0
	bus.Subscribe(TopicDocumentStatusChanged, func(ctx context.Context, ev StatusChangeEvent) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	bus.Publish(context.Background(), StatusChangeEvent{Topic: TopicProjectStatusChanged})
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, calls)
}

func TestPanickingHandlerDoesNotKillPublisher(t *testing.T) {
	bus := NewBus(zap.NewNop())

	bus.Subscribe(TopicRiskStatusChanged, func(ctx context.Context, ev StatusChangeEvent) {
		panic("handler bug")
	})

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), StatusChangeEvent{Topic: TopicRiskStatusChanged})
		bus.Wait()
	})
}
