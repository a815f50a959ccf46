package scheduler

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/kickai/trialgate/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ==============================================
// FOLLOW-UP SCHEDULING
// ==============================================

const (
	Exchange           = "trial.events"
	FollowupRoutingKey = "trial.followups"
)

// FollowupMessage is the enqueue payload handed to the worker
type FollowupMessage struct {
	Phone  string    `json:"phone"`
	Action string    `json:"action"`
	RunAt  time.Time `json:"run_at"`
}

// Publisher publishes scheduling messages. Satisfied by the AMQP producer
// and by test fakes.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// Scheduler hands follow-up work to the deferred execution collaborator.
// The handoff is fire-and-forget: the orchestrator does not verify
// execution synchronously.
type Scheduler struct {
	publisher Publisher
}

func NewScheduler(publisher Publisher) *Scheduler {
	return &Scheduler{publisher: publisher}
}

// ScheduleTrialFlow enqueues the nudge and expiry follow-ups for a phone
func (s *Scheduler) ScheduleTrialFlow(ctx context.Context, phone string) {
	now := time.Now()
	jobs := []FollowupMessage{
		{Phone: phone, Action: models.FollowupNudge, RunAt: now.Add(models.NudgeDelay)},
		{Phone: phone, Action: models.FollowupExpire, RunAt: now.Add(models.ExpireDelay)},
	}

	for _, job := range jobs {
		if err := s.publisher.Publish(ctx, Exchange, FollowupRoutingKey, job); err != nil {
			log.Printf("[SCHEDULER] Failed to enqueue %s for %s: %v", job.Action, phone, err)
		}
	}
}

// ==============================================
// AMQP PRODUCER
// ==============================================

// Producer publishes messages to a RabbitMQ exchange
type Producer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewProducer establishes a connection and channel to RabbitMQ
func NewProducer(amqpURL string) (*Producer, error) {
	conn, err := amqp.DialConfig(amqpURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Producer{conn: conn, channel: ch}, nil
}

// Publish sends a message to an exchange with a routing key
func (p *Producer) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	if err := p.channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	); err != nil {
		return err
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	return p.channel.PublishWithContext(ctx,
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        jsonBody,
		},
	)
}

// Close closes the RabbitMQ connection and channel
func (p *Producer) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// ==============================================
// FALLBACK PUBLISHER
// ==============================================

// LogPublisher is a no-op publisher used when RabbitMQ is unavailable at
// startup, so the API can still issue trials.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	log.Printf("[MQ-FALLBACK] Would publish to exchange=%q routingKey=%q body=%v", exchange, routingKey, body)
	return nil
}
