package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"checkinDesk/internal/model"
)

const (
	TitleBulkUpload = "Bulk Upload Completed"
	TitleCheckedIn  = "Attendee Checked In"
)

// Message is the wire form of a notification on the queue.
type Message struct {
	Title      string  `json:"title"`
	Message    string  `json:"message"`
	Type       string  `json:"type"`
	AttendeeID *string `json:"attendee_id,omitempty"`
	AdminID    *string `json:"admin_id,omitempty"`
}

func (m Message) Model() *model.Notification {
	return &model.Notification{
		Title:      m.Title,
		Message:    m.Message,
		Type:       m.Type,
		AttendeeID: m.AttendeeID,
		AdminID:    m.AdminID,
	}
}

// Sink delivers a notification somewhere durable.
type Sink interface {
	Send(ctx context.Context, m Message) error
}

type Store interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
}

type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// StoreSink writes notifications straight to the database.
type StoreSink struct {
	Store Store
}

func (s StoreSink) Send(ctx context.Context, m Message) error {
	return s.Store.CreateNotification(ctx, m.Model())
}

// QueueSink hands notifications to the message broker; the consumer
// worker persists them.
type QueueSink struct {
	Publisher Publisher
}

func (q QueueSink) Send(ctx context.Context, m Message) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return q.Publisher.Publish(ctx, body)
}

// Notifier builds the console's event notifications.
type Notifier struct {
	sink Sink
	log  *zerolog.Logger
}

func New(sink Sink, log *zerolog.Logger) *Notifier {
	return &Notifier{sink: sink, log: log}
}

func (n *Notifier) Send(ctx context.Context, m Message) error {
	if m.Type == "" {
		m.Type = model.NotificationInfo
	}
	if err := n.sink.Send(ctx, m); err != nil {
		n.log.Error().Err(err).Str("title", m.Title).Msg("failed to send notification")
		return err
	}
	return nil
}

func (n *Notifier) BulkUploadCompleted(ctx context.Context, uploaded, errors int) error {
	msg := fmt.Sprintf("%d attendees were successfully uploaded.", uploaded)
	kind := model.NotificationSuccess
	if errors > 0 {
		msg += fmt.Sprintf(" %d errors occurred during upload.", errors)
		kind = model.NotificationWarning
	}
	return n.Send(ctx, Message{Title: TitleBulkUpload, Message: msg, Type: kind})
}

func (n *Notifier) AttendeeCheckedIn(ctx context.Context, name, attendeeID string) error {
	return n.Send(ctx, Message{
		Title:      TitleCheckedIn,
		Message:    fmt.Sprintf("%s has successfully checked in to the event.", name),
		Type:       model.NotificationSuccess,
		AttendeeID: &attendeeID,
	})
}
