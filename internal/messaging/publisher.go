package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// UpdatePublisher defines the interface for publishing player updates.
type UpdatePublisher interface {
	PublishPlayerUpdate(ctx context.Context, payload PlayerUpdatePayload) error
}

// PayoffPublisher defines the interface for publishing consequence payoffs.
type PayoffPublisher interface {
	PublishPayoff(ctx context.Context, payload PayoffPayload) error
}

// rabbitMQPublisher implements both publisher interfaces over one queue.
type rabbitMQPublisher struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// NewRabbitMQUpdatePublisher creates a publisher for the player update queue.
// Паблишер объявляет очередь сам, чтобы не зависеть от порядка запуска сервисов.
func NewRabbitMQUpdatePublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (UpdatePublisher, error) {
	pub, err := newQueuePublisher(conn, queueName, logger.Named("UpdatePublisher"))
	if err != nil {
		return nil, fmt.Errorf("update publisher: %w", err)
	}
	return pub, nil
}

// NewRabbitMQPayoffPublisher creates a publisher for the payoff queue.
func NewRabbitMQPayoffPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (PayoffPublisher, error) {
	pub, err := newQueuePublisher(conn, queueName, logger.Named("PayoffPublisher"))
	if err != nil {
		return nil, fmt.Errorf("payoff publisher: %w", err)
	}
	return pub, nil
}

func newQueuePublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (*rabbitMQPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть канал: %w", err)
	}
	// Параметры очереди должны совпадать с консьюмером.
	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("не удалось объявить очередь '%s': %w", queueName, err)
	}
	logger.Info("Queue declared", zap.String("queue", queueName))
	return &rabbitMQPublisher{channel: ch, queueName: queueName, logger: logger}, nil
}

func (p *rabbitMQPublisher) PublishPlayerUpdate(ctx context.Context, payload PlayerUpdatePayload) error {
	return p.publish(ctx, payload)
}

func (p *rabbitMQPublisher) PublishPayoff(ctx context.Context, payload PayoffPayload) error {
	return p.publish(ctx, payload)
}

func (p *rabbitMQPublisher) publish(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка сериализации сообщения: %w", err)
	}
	err = p.channel.PublishWithContext(ctx,
		"",          // exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish message", zap.String("queue", p.queueName), zap.Error(err))
		return fmt.Errorf("ошибка публикации в очередь '%s': %w", p.queueName, err)
	}
	return nil
}

// Close releases the publisher channel.
func (p *rabbitMQPublisher) Close() error {
	return p.channel.Close()
}
