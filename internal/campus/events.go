package campus

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"uconnect/internal/access"
	"uconnect/internal/apperr"
	"uconnect/internal/model"
	"uconnect/internal/repo"
	"uconnect/internal/schedule"
	"uconnect/internal/visibility"
)

const (
	MsgInvalidDate        = "Invalid event date"
	MsgInvalidTime        = "Invalid event time"
	MsgUnknownEventType   = "Unknown event type"
	MsgEventNameRequired  = "Event name is required"
	MsgEventNameMultiline = "Event name must be a single line"
	MsgNotOrganizationAdm = "Only the organization administrator can create its events"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

type EventInput struct {
	Name string
	// TypeID references an event type.
	TypeID int64
	// OrganizationID is 0 for a school event.
	OrganizationID int64
	Public         bool
	From           time.Time
	To             time.Time
	Address        string
	Description    string
}

// EventRange combines a form date and two wall-clock times into an instant
// range in the service's location.
func (s *Service) EventRange(date, timeFrom, timeTo string) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.Validation(MsgInvalidDate)
	}
	from, err := atClock(day, timeFrom)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := atClock(day, timeTo)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func atClock(day time.Time, clock string) (time.Time, error) {
	t, err := time.Parse(timeLayout, strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, apperr.Validation(MsgInvalidTime)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}

type EventForm struct {
	EventTypes    []model.EventType           `json:"event_types"`
	Organizations []model.OrganizationSummary `json:"organizations"`
}

// EventForm lists what a student may pick when creating an event: event
// types and the organizations they administrate.
func (s *Service) EventForm(ctx context.Context, viewer access.Viewer, domain string) (*EventForm, error) {
	sc, err := s.school(ctx, domain)
	if err != nil {
		return nil, err
	}
	if err := access.RequireSchool(viewer, sc.ID); err != nil {
		return nil, err
	}

	types, err := s.repo.ListEventTypes(ctx)
	if err != nil {
		return nil, err
	}
	orgs, err := s.repo.ListOrganizations(ctx, sc.ID, viewer.StudentID)
	if err != nil {
		return nil, err
	}
	admin := make([]model.OrganizationSummary, 0, len(orgs))
	for _, o := range orgs {
		if o.IsAdmin {
			admin = append(admin, o)
		}
	}
	return &EventForm{EventTypes: types, Organizations: admin}, nil
}

// CreateEvent books an event in the school calendar. The range is validated
// first, then checked against every event already booked for the school,
// including organization events.
func (s *Service) CreateEvent(ctx context.Context, viewer access.Viewer, domain string, in EventInput) (*model.Event, error) {
	sc, err := s.school(ctx, domain)
	if err != nil {
		return nil, err
	}
	if err := access.RequireSchool(viewer, sc.ID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation(MsgEventNameRequired)
	}
	if strings.ContainsFunc(in.Name, unicode.IsControl) {
		return nil, apperr.Validation(MsgEventNameMultiline)
	}
	if err := schedule.ValidateRange(in.From, in.To, s.now()); err != nil {
		return nil, err
	}

	e := &model.Event{
		Name:           strings.TrimSpace(in.Name),
		TypeID:         in.TypeID,
		From:           in.From,
		To:             in.To,
		Address:        strings.TrimSpace(in.Address),
		Description:    strings.TrimSpace(in.Description),
		SchoolID:       sc.ID,
		OrganizationID: in.OrganizationID,
	}
	if e.IsSchoolEvent() {
		e.Public = in.Public
	} else {
		org, err := s.repo.GetOrganization(ctx, sc.ID, in.OrganizationID)
		if errors.Is(err, repo.ErrOrganizationNotFound) {
			return nil, apperr.Validation(MsgOrganizationNotFound)
		}
		if err != nil {
			return nil, err
		}
		if org.AdminID != viewer.StudentID {
			return nil, apperr.Forbidden(MsgNotOrganizationAdm)
		}
		e.OrganizationName = org.Name
	}

	candidate := schedule.Interval{From: e.From, To: e.To}
	_, err = s.repo.CreateEventTx(ctx, e, func(existing []schedule.Interval) error {
		return schedule.CheckOverlap(candidate, existing)
	})
	switch {
	case errors.Is(err, repo.ErrUnknownEventType):
		return nil, apperr.Validation(MsgUnknownEventType)
	case errors.Is(err, repo.ErrOrganizationNotFound):
		return nil, apperr.Validation(MsgOrganizationNotFound)
	case errors.Is(err, repo.ErrSchoolNotFound):
		return nil, apperr.NotFound(MsgSchoolNotFound, "/")
	case err != nil:
		return nil, err
	}

	s.log.Info().
		Int64("event_id", e.ID).
		Str("school", sc.Domain).
		Int64("student_id", viewer.StudentID).
		Msg("event booked")
	s.scheduleReminder(ctx, *e)
	return e, nil
}

type EventPage struct {
	School       model.School         `json:"school"`
	Event        visibility.EventView `json:"event"`
	Organization *model.Organization  `json:"organization,omitempty"`
	Comments     []model.Comment      `json:"comments"`
	Rating       model.RatingSummary  `json:"rating"`
	// CanInteract is true for students of the school, who may comment and rate.
	CanInteract bool `json:"can_interact"`
}

// EventPage shows one event of the school. Events the viewer may not see are
// reported as missing.
func (s *Service) EventPage(ctx context.Context, viewer access.Viewer, domain string, eventID int64) (*EventPage, error) {
	sc, err := s.school(ctx, domain)
	if err != nil {
		return nil, err
	}
	e, err := s.visibleEvent(ctx, viewer, sc, eventID)
	if err != nil {
		return nil, err
	}

	page := &EventPage{
		School:      *sc,
		Event:       visibility.NewEventView(*e),
		CanInteract: viewer.Attends(sc.ID),
	}
	if !e.IsSchoolEvent() {
		if page.Organization, err = s.organization(ctx, sc, e.OrganizationID); err != nil {
			return nil, err
		}
	}
	if page.Comments, err = s.repo.ListComments(ctx, e.ID); err != nil {
		return nil, err
	}
	if page.Comments == nil {
		page.Comments = []model.Comment{}
	}
	if page.Rating, err = s.repo.RatingSummary(ctx, e.ID, viewer.StudentID); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *Service) visibleEvent(ctx context.Context, viewer access.Viewer, sc *model.School, eventID int64) (*model.Event, error) {
	e, err := s.schoolEvent(ctx, sc, eventID)
	if err != nil {
		return nil, err
	}

	member := false
	if !e.IsSchoolEvent() && viewer.IsAuthenticated() {
		if member, err = s.repo.IsMember(ctx, e.OrganizationID, viewer.StudentID); err != nil {
			return nil, err
		}
	}
	if !visibility.CanView(viewer, *e, member) {
		return nil, apperr.NotFound(MsgEventNotFound, SchoolPath(sc.Domain))
	}
	return e, nil
}
