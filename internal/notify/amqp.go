package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"quizgen/internal/app"

	"github.com/rabbitmq/amqp091-go"
)

// Routing keys on the quiz events exchange.
const (
	RoutingAssignmentCreated   = "assignment.created"
	RoutingAssignmentSummary   = "assignment.summary"
	RoutingAssignmentCompleted = "assignment.completed"
)

const defaultExchange = "quiz.events"

// Event is the envelope published for every notification.
type Event struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type assignmentCreatedData struct {
	AssignmentID string     `json:"assignment_id"`
	QuizID       string     `json:"quiz_id"`
	QuizTitle    string     `json:"quiz_title"`
	AssigneeID   string     `json:"assignee_id"`
	AssigneeMail string     `json:"assignee_email"`
	AssignorID   string     `json:"assignor_id"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

type assignmentSummaryData struct {
	QuizID      string   `json:"quiz_id"`
	QuizTitle   string   `json:"quiz_title"`
	AssignorID  string   `json:"assignor_id"`
	AssigneeIDs []string `json:"assignee_ids"`
}

type assignmentCompletedData struct {
	AssignmentID   string `json:"assignment_id"`
	QuizID         string `json:"quiz_id"`
	QuizTitle      string `json:"quiz_title"`
	AssigneeID     string `json:"assignee_id"`
	AssignorID     string `json:"assignor_id"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"total_questions"`
	Percentage     int    `json:"percentage"`
	TimeTaken      int    `json:"time_taken"`
}

// AMQPPublisher publishes notifications to a topic exchange. With an empty
// URL it is disabled and every publish is a no-op.
type AMQPPublisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	enabled  bool
	log      *slog.Logger
	now      func() time.Time
}

var _ app.Notifier = (*AMQPPublisher)(nil)

func NewAMQPPublisher(url, exchange string, log *slog.Logger) (*AMQPPublisher, error) {
	if log == nil {
		log = slog.Default()
	}
	if exchange == "" {
		exchange = defaultExchange
	}
	p := &AMQPPublisher{exchange: exchange, log: log, now: time.Now}
	if url == "" {
		log.Warn("rabbitmq url is empty, event publishing is disabled")
		return p, nil
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	p.conn = conn
	p.channel = channel
	p.enabled = true
	return p, nil
}

// Enabled reports whether a broker connection is open.
func (p *AMQPPublisher) Enabled() bool {
	return p.enabled
}

func (p *AMQPPublisher) QuizAssigned(ctx context.Context, n app.AssignmentNotice) error {
	return p.publish(ctx, RoutingAssignmentCreated, assignmentCreatedData{
		AssignmentID: n.AssignmentID,
		QuizID:       n.Quiz.ID,
		QuizTitle:    n.Quiz.Title,
		AssigneeID:   n.Assignee.ID,
		AssigneeMail: n.Assignee.Email,
		AssignorID:   n.Assignor.ID,
		ExpiresAt:    n.ExpiresAt,
	})
}

func (p *AMQPPublisher) AssignmentsSummary(ctx context.Context, n app.AssignmentSummaryNotice) error {
	ids := make([]string, len(n.Assignees))
	for i, u := range n.Assignees {
		ids[i] = u.ID
	}
	return p.publish(ctx, RoutingAssignmentSummary, assignmentSummaryData{
		QuizID:      n.Quiz.ID,
		QuizTitle:   n.Quiz.Title,
		AssignorID:  n.Assignor.ID,
		AssigneeIDs: ids,
	})
}

func (p *AMQPPublisher) AssignmentCompleted(ctx context.Context, n app.CompletionNotice) error {
	return p.publish(ctx, RoutingAssignmentCompleted, assignmentCompletedData{
		AssignmentID:   n.AssignmentID,
		QuizID:         n.Quiz.ID,
		QuizTitle:      n.Quiz.Title,
		AssigneeID:     n.Assignee.ID,
		AssignorID:     n.Assignor.ID,
		Score:          n.Score,
		TotalQuestions: n.TotalQuestions,
		Percentage:     n.Percentage,
		TimeTaken:      n.TimeTaken,
	})
}

func (p *AMQPPublisher) publish(ctx context.Context, routingKey string, data any) error {
	if !p.enabled {
		return nil
	}
	body, err := json.Marshal(Event{EventType: routingKey, Timestamp: p.now().UTC(), Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		pubCtx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    p.now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	p.log.DebugContext(ctx, "published event", "routing_key", routingKey)
	return nil
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	if !p.enabled {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}
