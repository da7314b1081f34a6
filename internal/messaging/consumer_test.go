package messaging

import (
	"context"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	calls []PlayerActionPayload
	ids   []uuid.UUID
	err   error
}

func (h *recordingHandler) HandleAction(_ context.Context, playerID uuid.UUID, action PlayerActionPayload) error {
	h.calls = append(h.calls, action)
	h.ids = append(h.ids, playerID)
	return h.err
}

func TestHandleDelivery(t *testing.T) {
	t.Run("Valid action reaches the handler", func(t *testing.T) {
		handler := &recordingHandler{}
		c := NewActionConsumer(nil, handler, "player_actions", zap.NewNop())
		playerID := uuid.New()

		body := []byte(`{"player_id":"` + playerID.String() + `","action":"advance","choice_index":2}`)
		c.handleDelivery(amqp.Delivery{Body: body})

		require.Len(t, handler.calls, 1)
		assert.Equal(t, playerID, handler.ids[0])
		assert.Equal(t, ActionAdvance, handler.calls[0].Action)
		assert.Equal(t, 2, handler.calls[0].ChoiceIndex)
	})

	t.Run("Undecodable body is discarded", func(t *testing.T) {
		handler := &recordingHandler{}
		c := NewActionConsumer(nil, handler, "player_actions", zap.NewNop())
		c.handleDelivery(amqp.Delivery{Body: []byte("{broken")})
		assert.Empty(t, handler.calls)
	})

	t.Run("Missing player id is discarded", func(t *testing.T) {
		handler := &recordingHandler{}
		c := NewActionConsumer(nil, handler, "player_actions", zap.NewNop())
		c.handleDelivery(amqp.Delivery{Body: []byte(`{"action":"advance"}`)})
		assert.Empty(t, handler.calls)
	})

	t.Run("Handler error does not panic or requeue", func(t *testing.T) {
		handler := &recordingHandler{err: assert.AnError}
		c := NewActionConsumer(nil, handler, "player_actions", zap.NewNop())
		playerID := uuid.New()
		body := []byte(`{"player_id":"` + playerID.String() + `","action":"get_state"}`)
		c.handleDelivery(amqp.Delivery{Body: body})
		assert.Len(t, handler.calls, 1)
	})
}
