package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ActionHandler handles one decoded player action. Implemented by the
// story service; kept as a local interface so the consumer stays
// independent of the service package.
type ActionHandler interface {
	HandleAction(ctx context.Context, playerID uuid.UUID, action PlayerActionPayload) error
}

// ActionConsumer listens on the player action queue and dispatches decoded
// actions to the handler, one message at a time.
type ActionConsumer struct {
	conn        *amqp.Connection
	handler     ActionHandler
	queueName   string
	stopChannel chan struct{}
	logger      *zap.Logger
}

func NewActionConsumer(conn *amqp.Connection, handler ActionHandler, queueName string, logger *zap.Logger) *ActionConsumer {
	return &ActionConsumer{
		conn:        conn,
		handler:     handler,
		queueName:   queueName,
		stopChannel: make(chan struct{}),
		logger:      logger.Named("ActionConsumer"),
	}
}

// StartConsuming blocks, draining the action queue until Stop is called or
// the channel closes. Malformed messages are nacked without requeue.
func (c *ActionConsumer) StartConsuming() error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("consumer: не удалось открыть канал RabbitMQ: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("consumer: не удалось объявить очередь '%s': %w", c.queueName, err)
	}

	// Actions for one player must not interleave, so take one message at a
	// time; the service's per-player locks cover multi-instance overlap.
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("consumer: не удалось установить QoS: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"saga-action-consumer", // consumer tag
		false,                  // auto-ack = false
		false,                  // exclusive
		false,                  // no-local
		false,                  // no-wait
		nil,                    // args
	)
	if err != nil {
		return fmt.Errorf("consumer: не удалось зарегистрировать консьюмера: %w", err)
	}
	c.logger.Info("Consumer started", zap.String("queue", q.Name))

	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				c.logger.Warn("RabbitMQ message channel closed")
				return nil
			}
			c.handleDelivery(d)

		case <-c.stopChannel:
			c.logger.Info("Consumer received stop signal")
			return nil
		}
	}
}

func (c *ActionConsumer) handleDelivery(d amqp.Delivery) {
	var action PlayerActionPayload
	if err := json.Unmarshal(d.Body, &action); err != nil {
		c.logger.Warn("Undecodable action message, discarding",
			zap.Uint64("deliveryTag", d.DeliveryTag), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	playerID, err := uuid.Parse(action.PlayerID)
	if err != nil {
		c.logger.Warn("Action message without valid player_id, discarding",
			zap.String("playerID", action.PlayerID))
		_ = d.Nack(false, false)
		return
	}

	if err := c.handler.HandleAction(context.Background(), playerID, action); err != nil {
		// Handler errors are player-facing and already published as error
		// updates; redelivery would not change the outcome.
		c.logger.Error("Action handling failed",
			zap.String("playerID", playerID.String()),
			zap.String("action", action.Action),
			zap.Error(err))
	}
	_ = d.Ack(false)
}

// Stop останавливает консьюмер.
func (c *ActionConsumer) Stop() {
	close(c.stopChannel)
}
