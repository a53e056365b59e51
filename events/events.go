package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/meinhoongagan/pt-buddy/logger"
	"github.com/nats-io/nats.go"
)

const (
	AppointmentCompleted = "appointment.completed"
	MembershipExhausted  = "membership.exhausted"
	PasswordReset        = "password.reset"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

// Bus is the publisher used by handlers. Init replaces it when NATS_URL is set.
var Bus Publisher = Noop{}

func Init(url string) error {
	if url == "" {
		logger.Info("NATS_URL not set, domain events disabled")
		return nil
	}
	bus, err := NewNATSPublisher(url)
	if err != nil {
		return err
	}
	Bus = bus
	logger.Info("connected to NATS", "url", url)
	return nil
}

// Emit publishes in the background of a request: failures are logged and
// never reach the caller.
func Emit(ctx context.Context, subject string, data interface{}) {
	if err := Bus.Publish(ctx, subject, data); err != nil {
		logger.WarnContext(ctx, "failed to publish event", "subject", subject, "error", err)
	}
}

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("pt-buddy"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (n *NATSPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	logger.WithContext(ctx).Debug("publishing event", "subject", subject, "data", string(payload))
	return n.conn.Publish(subject, payload)
}

func (n *NATSPublisher) Close() error {
	return n.conn.Drain()
}

type Noop struct{}

func (Noop) Publish(context.Context, string, interface{}) error { return nil }
func (Noop) Close() error                                       { return nil }

type AppointmentCompletedEvent struct {
	AppointmentID     uint      `json:"appointmentId"`
	TrainerID         uint      `json:"trainerId"`
	MemberID          uint      `json:"memberId"`
	MembershipID      *uint     `json:"membershipId,omitempty"`
	SessionConsumed   bool      `json:"sessionConsumed"`
	RemainingSessions *int      `json:"remainingSessions,omitempty"`
	CompletedAt       time.Time `json:"completedAt"`
}

type MembershipExhaustedEvent struct {
	MembershipID uint      `json:"membershipId"`
	MemberID     uint      `json:"memberId"`
	ExhaustedAt  time.Time `json:"exhaustedAt"`
}

type PasswordResetEvent struct {
	Email   string    `json:"email"`
	Role    string    `json:"role"`
	ResetAt time.Time `json:"resetAt"`
}
