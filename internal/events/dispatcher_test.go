package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDispatcher_PublishRunsAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var seen []string

	d.Subscribe(EventTokenRemoved, func(_ context.Context, e Event) error {
		seen = append(seen, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventTokenRemoved, func(_ context.Context, e Event) error {
		seen = append(seen, "second")
		return nil
	})
	d.Subscribe(EventTokenStored, func(_ context.Context, e Event) error {
		seen = append(seen, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTokenRemoved, Payload: TokenRemovedPayload{Key: "k"}})
	require.EqualError(t, err, "boom")
	assert.Equal(t, []string{"first", "second"}, seen)
}

func TestNormalize(t *testing.T) {
	d := Normalize(nil)
	d.Subscribe(EventTokenStored, func(context.Context, Event) error { return errors.New("never") })
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTokenStored}))
}
