package consumerWorker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"uconnect/internal/model"
	"uconnect/internal/rabbit"
	"uconnect/internal/repo"
)

type Consumer interface {
	Consume(ctx context.Context, handler rabbit.Handler) error
}

type Sender interface {
	SendReminder(recipient, eventName string, startsAt time.Time) error
}

// Reader turns queued reminder messages into emails to everyone who can see
// the event.
type Reader struct {
	rmq    Consumer
	repo   repo.Repository
	mail   Sender
	log    *zerolog.Logger
	now    func() time.Time
	done   chan struct{}
	cancel context.CancelFunc
}

func NewReader(rmq Consumer, r repo.Repository, mail Sender, log *zerolog.Logger) *Reader {
	return &Reader{
		rmq:  rmq,
		repo: r,
		mail: mail,
		log:  log,
		now:  time.Now,
		done: make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.log.Info().Msg("reminder reader started")

	go func() {
		defer close(r.done)

		err := r.rmq.Consume(cctx, r.handle)
		if err != nil && !errors.Is(err, context.Canceled) {
			r.log.Error().Err(err).Msg("reminder consumer stopped")
			return
		}
		r.log.Info().Msg("reminder reader stopped by context")
	}()
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

// handle returns an error only when the message should be redelivered.
func (r *Reader) handle(ctx context.Context, body []byte) error {
	var msg model.ReminderMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		r.log.Error().Err(err).Msgf("dropping malformed reminder: %s", string(body))
		return nil
	}

	event, err := r.repo.GetEventByID(ctx, msg.EventID)
	if errors.Is(err, repo.ErrEventNotFound) {
		r.log.Warn().Int64("event_id", msg.EventID).Msg("reminder for unknown event, skipping")
		return nil
	}
	if err != nil {
		r.log.Error().Err(err).Int64("event_id", msg.EventID).Msg("failed to load event for reminder")
		return err
	}

	if !r.now().Before(event.From) {
		r.log.Info().Int64("event_id", event.ID).Msg("event already started, skipping reminder")
		return nil
	}

	audience, err := r.repo.EventAudience(ctx, event.ID)
	if err != nil {
		r.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to load reminder audience")
		return err
	}

	failed := 0
	for _, st := range audience {
		if err := r.mail.SendReminder(st.Email, event.Name, event.From); err != nil {
			failed++
		}
	}

	r.log.Info().
		Int64("event_id", event.ID).
		Int("recipients", len(audience)).
		Int("failed", failed).
		Msg("event reminder delivered")
	return nil
}
