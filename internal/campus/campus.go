// Package campus implements the UConnect use cases: onboarding, sign-in,
// school, event and organization pages, event booking and the commands a
// student issues on those pages. Every operation takes the acting
// access.Viewer explicitly and knows nothing about HTTP.
package campus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"uconnect/internal/apperr"
	"uconnect/internal/model"
	"uconnect/internal/repo"
)

const (
	MsgSchoolNotFound       = "School not found"
	MsgEventNotFound        = "Event not found"
	MsgOrganizationNotFound = "Organization not found"
	MsgCommentNotFound      = "Comment not found"
)

// ReminderPublisher queues a message for delivery after delay.
type ReminderPublisher interface {
	Publish(ctx context.Context, message []byte, delay time.Duration) error
}

type Service struct {
	repo      repo.Repository
	log       *zerolog.Logger
	reminders ReminderPublisher
	lead      time.Duration
	loc       *time.Location
	now       func() time.Time
}

type Option func(*Service)

// WithReminders enables event reminders published lead before an event starts.
func WithReminders(p ReminderPublisher, lead time.Duration) Option {
	return func(s *Service) {
		s.reminders = p
		s.lead = lead
	}
}

// WithLocation sets the zone event form dates are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(r repo.Repository, log *zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo: r,
		log:  log,
		loc:  time.UTC,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) ListSchools(ctx context.Context, query string) ([]model.School, error) {
	return s.repo.ListSchools(ctx, query)
}

func (s *Service) ListEventTypes(ctx context.Context) ([]model.EventType, error) {
	return s.repo.ListEventTypes(ctx)
}

func (s *Service) school(ctx context.Context, domain string) (*model.School, error) {
	sc, err := s.repo.GetSchoolByDomain(ctx, domain)
	if errors.Is(err, repo.ErrSchoolNotFound) {
		return nil, apperr.NotFound(MsgSchoolNotFound, "/")
	}
	if err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *Service) schoolEvent(ctx context.Context, sc *model.School, eventID int64) (*model.Event, error) {
	e, err := s.repo.GetSchoolEvent(ctx, sc.ID, eventID)
	if errors.Is(err, repo.ErrEventNotFound) {
		return nil, apperr.NotFound(MsgEventNotFound, SchoolPath(sc.Domain))
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) organization(ctx context.Context, sc *model.School, orgID int64) (*model.Organization, error) {
	o, err := s.repo.GetOrganization(ctx, sc.ID, orgID)
	if errors.Is(err, repo.ErrOrganizationNotFound) {
		return nil, apperr.NotFound(MsgOrganizationNotFound, SchoolPath(sc.Domain))
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// scheduleReminder is best effort: a failure is logged and the booking stands.
func (s *Service) scheduleReminder(ctx context.Context, e model.Event) {
	if s.reminders == nil {
		return
	}
	payload, err := json.Marshal(model.ReminderMessage{
		EventID:  e.ID,
		SchoolID: e.SchoolID,
		StartsAt: e.From,
	})
	if err != nil {
		s.log.Error().Err(err).Int64("event_id", e.ID).Msg("failed to marshal reminder")
		return
	}
	delay := e.From.Sub(s.now()) - s.lead
	if delay < 0 {
		delay = 0
	}
	if err := s.reminders.Publish(ctx, payload, delay); err != nil {
		s.log.Error().Err(err).Int64("event_id", e.ID).Msg("failed to publish reminder")
		return
	}
	s.log.Debug().Int64("event_id", e.ID).Dur("delay", delay).Msg("reminder scheduled")
}

func SchoolPath(domain string) string { return "/my/" + domain }

func LoginPath(domain string) string { return SchoolPath(domain) + "/login" }

func EventPath(domain string, eventID int64) string {
	return fmt.Sprintf("%s/event/%d", SchoolPath(domain), eventID)
}

func OrganizationPath(domain string, orgID int64) string {
	return fmt.Sprintf("%s/org/%d", SchoolPath(domain), orgID)
}

// EstimateStudents renders a student count rounded down to two significant
// digits, e.g. 12345 -> "12,000+" and 5 -> "5+".
func EstimateStudents(n *int) string {
	if n == nil || *n < 0 {
		return "Unknown"
	}
	v := *n
	if v < 100 {
		return strconv.Itoa(v) + "+"
	}
	scale := 1
	for v/scale >= 100 {
		scale *= 10
	}
	return groupThousands(v/scale*scale) + "+"
}

func groupThousands(v int) string {
	s := strconv.Itoa(v)
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	return string(out)
}
