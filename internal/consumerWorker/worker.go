package consumerWorker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wb-go/wbf/zlog"

	"checkinDesk/internal/model"
	"checkinDesk/internal/notify"
)

type Consumer interface {
	Consume(handler func([]byte) error) error
}

type Mailer interface {
	SendNotification(title, message, kind string) error
}

// Reader drains the notification queue into the database and forwards
// warnings and errors to the operator mailbox.
type Reader struct {
	RMQ    Consumer
	store  notify.Store
	mail   Mailer
	done   chan struct{}
	cancel context.CancelFunc
}

func NewReader(rmq Consumer, store notify.Store, mail Mailer) *Reader {
	return &Reader{
		RMQ:   rmq,
		store: store,
		mail:  mail,
		done:  make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	zlog.Logger.Info().Msg("Notification reader started")

	go func() {
		defer close(r.done)

		if err := r.RMQ.Consume(func(body []byte) error { return r.handle(cctx, body) }); err != nil {
			zlog.Logger.Error().Err(err).Msg("Failed to start consuming")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("Notification reader stopped by context")
	}()
}

func (r *Reader) handle(ctx context.Context, body []byte) error {
	var msg notify.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		// a malformed message will never succeed, drop it
		zlog.Logger.Error().Err(err).Msgf("Failed to unmarshal message: %s", string(body))
		return nil
	}

	if err := r.store.CreateNotification(ctx, msg.Model()); err != nil {
		zlog.Logger.Error().Err(err).Str("title", msg.Title).Msg("Failed to store notification")
		return fmt.Errorf("store notification: %w", err)
	}

	zlog.Logger.Info().Str("title", msg.Title).Str("type", msg.Type).Msg("Notification stored")

	if r.mail == nil || (msg.Type != model.NotificationWarning && msg.Type != model.NotificationError) {
		return nil
	}
	if err := r.mail.SendNotification(msg.Title, msg.Message, msg.Type); err != nil {
		zlog.Logger.Warn().Err(err).Msg("Failed to send notification e-mail")
	}
	return nil
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
