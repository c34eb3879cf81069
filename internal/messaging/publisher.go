// Package messaging публикация событий конвейера в RabbitMQ.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"carousel-server/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	publishTimeout  = 10 * time.Second
	publishAttempts = 3
	appID           = "carousel-server"
)

// EventPublisher публикует событие о завершении генерации.
type EventPublisher interface {
	PublishGenerationFinished(ctx context.Context, event models.GenerationFinishedEvent) error
}

// amqpChannel часть *amqp.Channel, которой пользуется паблишер.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type rabbitMQPublisher struct {
	mu         sync.Mutex
	channel    amqpChannel
	exchange   string
	routingKey string
	logger     *zap.Logger
}

// Connect подключается к RabbitMQ с повторами.
func Connect(url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 3 * time.Second
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			logger.Info("Connected to RabbitMQ")
			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_delay", retryDelay),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("rabbitmq is unreachable after %d attempts: %w", maxRetries, err)
}

// NewRabbitMQPublisher открывает канал и объявляет topic exchange для событий.
func NewRabbitMQPublisher(conn *amqp.Connection, exchange, routingKey string, logger *zap.Logger) (EventPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("event publisher: failed to open channel: %w", err)
	}
	return newPublisher(ch, exchange, routingKey, logger)
}

func newPublisher(ch amqpChannel, exchange, routingKey string, logger *zap.Logger) (*rabbitMQPublisher, error) {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("event publisher: failed to declare exchange %q: %w", exchange, err)
	}
	logger.Info("Event exchange declared", zap.String("exchange", exchange), zap.String("routing_key", routingKey))
	return &rabbitMQPublisher{
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger.Named("EventPublisher"),
	}, nil
}

func (p *rabbitMQPublisher) PublishGenerationFinished(ctx context.Context, event models.GenerationFinishedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal generation finished event: %w", err)
	}
	log := p.logger.With(zap.String("document_id", event.DocumentID.String()), zap.String("job_id", event.JobID.String()))
	if err := p.publish(ctx, body); err != nil {
		log.Error("Failed to publish generation finished event", zap.Error(err))
		return err
	}
	log.Info("Generation finished event published", zap.String("status", string(event.Status)))
	return nil
}

// publish до трех попыток с растущей паузой.
func (p *rabbitMQPublisher) publish(ctx context.Context, body []byte) error {
	if p.channel == nil {
		return errors.New("rabbitmq channel is not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		err = p.channel.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
			AppId:        appID,
		})
		if err == nil {
			return nil
		}
		p.logger.Warn("Publish attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return fmt.Errorf("publish to %s cancelled: %w", p.exchange, ctx.Err())
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return fmt.Errorf("publish to %s failed after retries: %w", p.exchange, err)
}

// NoopPublisher используется, когда RABBITMQ_URL не задан.
type NoopPublisher struct {
	Logger *zap.Logger
}

func (p NoopPublisher) PublishGenerationFinished(_ context.Context, event models.GenerationFinishedEvent) error {
	if p.Logger != nil {
		p.Logger.Debug("Event publishing disabled, dropping event", zap.String("document_id", event.DocumentID.String()))
	}
	return nil
}
