// Package inmem is a Repository kept in process memory. It mirrors the
// constraints of the Postgres schema and is used by service and handler
// tests.
package inmem

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"uconnect/internal/model"
	"uconnect/internal/repo"
	"uconnect/internal/schedule"
)

type memberKey struct{ org, student int64 }

type ratingKey struct{ student, event int64 }

type Repository struct {
	mu sync.Mutex

	seq int64
	// NowFunc stamps comments. It is mockable.
	NowFunc func() time.Time
	// PingErr is returned by Ping.
	PingErr error

	schools       map[int64]model.School
	students      map[int64]model.Student
	attends       map[int64]int64 // student -> school
	superAdmins   map[int64]int64 // student -> school
	types         []model.EventType
	events        map[int64]model.Event
	comments      map[int64]model.Comment
	ratings       map[ratingKey]int
	organizations map[int64]model.Organization
	members       map[memberKey]struct{}
}

var _ repo.Repository = (*Repository)(nil)

func New() *Repository {
	return &Repository{
		NowFunc:       time.Now,
		schools:       map[int64]model.School{},
		students:      map[int64]model.Student{},
		attends:       map[int64]int64{},
		superAdmins:   map[int64]int64{},
		events:        map[int64]model.Event{},
		comments:      map[int64]model.Comment{},
		ratings:       map[ratingKey]int{},
		organizations: map[int64]model.Organization{},
		members:       map[memberKey]struct{}{},
		types: []model.EventType{
			{ID: 1, Name: "Academic"},
			{ID: 2, Name: "Career"},
			{ID: 3, Name: "Cultural"},
			{ID: 4, Name: "Meeting"},
			{ID: 5, Name: "Social"},
			{ID: 6, Name: "Sports"},
		},
		seq: 100,
	}
}

func (r *Repository) nextID() int64 {
	r.seq++
	return r.seq
}

func (r *Repository) Ping(context.Context) error { return r.PingErr }

func (r *Repository) MigrateUp(string) error   { return nil }
func (r *Repository) MigrateDown(string) error { return nil }

func (r *Repository) ListSchools(_ context.Context, query string) ([]model.School, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(query))
	var out []model.School
	for _, s := range r.schools {
		if q == "" || strings.Contains(strings.ToLower(s.Name), q) || strings.Contains(s.Domain, q) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *Repository) GetSchoolByDomain(_ context.Context, domain string) (*model.School, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	domain = strings.ToLower(domain)
	for _, s := range r.schools {
		if s.Domain == domain {
			return &s, nil
		}
	}
	return nil, repo.ErrSchoolNotFound
}

func (r *Repository) CreateSchoolTx(_ context.Context, s *model.School, founderID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.students[founderID]; !ok {
		return 0, repo.ErrStudentNotFound
	}
	domain := strings.ToLower(s.Domain)
	for _, other := range r.schools {
		if other.Domain == domain {
			return 0, repo.ErrDuplicateDomain
		}
	}
	if _, ok := r.attends[founderID]; ok {
		return 0, repo.ErrAlreadyEnrolled
	}

	s.ID = r.nextID()
	s.Domain = domain
	r.schools[s.ID] = *s
	r.attends[founderID] = s.ID
	r.superAdmins[founderID] = s.ID
	return s.ID, nil
}

// SuperAdministrates reports whether studentID founded schoolID.
func (r *Repository) SuperAdministrates(studentID, schoolID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.superAdmins[studentID] == schoolID
}

func (r *Repository) CreateStudent(_ context.Context, st *model.Student) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertStudent(st)
}

func (r *Repository) insertStudent(st *model.Student) (int64, error) {
	email := strings.ToLower(st.Email)
	for _, other := range r.students {
		if other.Email == email {
			return 0, repo.ErrDuplicateEmail
		}
	}
	st.ID = r.nextID()
	st.Email = email
	r.students[st.ID] = *st
	return st.ID, nil
}

func (r *Repository) SignupTx(_ context.Context, st *model.Student, schoolID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.schools[schoolID]; !ok {
		return 0, repo.ErrSchoolNotFound
	}
	id, err := r.insertStudent(st)
	if err != nil {
		return 0, err
	}
	r.attends[id] = schoolID
	return id, nil
}

func (r *Repository) GetStudentByEmail(_ context.Context, email string) (*model.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email = strings.ToLower(email)
	for _, st := range r.students {
		if st.Email == email {
			return &st, nil
		}
	}
	return nil, repo.ErrStudentNotFound
}

func (r *Repository) Attends(_ context.Context, studentID, schoolID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	school, ok := r.attends[studentID]
	return ok && school == schoolID, nil
}

func (r *Repository) ListAttendees(_ context.Context, schoolID int64) ([]model.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.Student
	for id, school := range r.attends {
		if school == schoolID {
			out = append(out, r.students[id])
		}
	}
	sortStudents(out)
	return out, nil
}

func (r *Repository) CountAttending(_ context.Context, schoolID int64, studentIDs []int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	seen := map[int64]bool{}
	for _, id := range studentIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if school, ok := r.attends[id]; ok && school == schoolID {
			n++
		}
	}
	return n, nil
}

func (r *Repository) ListEventTypes(context.Context) ([]model.EventType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.EventType(nil), r.types...), nil
}

// CreateEventTx holds the repository lock across the check and the insert,
// which gives the same serialization as the row lock in Postgres.
func (r *Repository) CreateEventTx(_ context.Context, e *model.Event, check repo.CalendarCheck) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.schools[e.SchoolID]; !ok {
		return 0, repo.ErrSchoolNotFound
	}
	if !e.IsSchoolEvent() {
		org, ok := r.organizations[e.OrganizationID]
		if !ok || org.SchoolID != e.SchoolID {
			return 0, repo.ErrOrganizationNotFound
		}
		e.OrganizationName = org.Name
	}

	var existing []schedule.Interval
	for _, other := range r.events {
		if other.SchoolID == e.SchoolID && other.From.Before(e.To) && other.To.After(e.From) {
			existing = append(existing, schedule.Interval{ID: other.ID, From: other.From, To: other.To})
		}
	}
	sort.Slice(existing, func(i, j int) bool { return existing[i].From.Before(existing[j].From) })
	if check != nil {
		if err := check(existing); err != nil {
			return 0, err
		}
	}

	typeName := ""
	for _, t := range r.types {
		if t.ID == e.TypeID {
			typeName = t.Name
		}
	}
	if typeName == "" {
		return 0, repo.ErrUnknownEventType
	}

	e.ID = r.nextID()
	e.TypeName = typeName
	if !e.IsSchoolEvent() {
		e.Public = false
	}
	r.events[e.ID] = *e
	return e.ID, nil
}

func (r *Repository) GetEventByID(_ context.Context, id int64) (*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, repo.ErrEventNotFound
	}
	return &e, nil
}

func (r *Repository) GetSchoolEvent(_ context.Context, schoolID, eventID int64) (*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[eventID]
	if !ok || e.SchoolID != schoolID {
		return nil, repo.ErrEventNotFound
	}
	return &e, nil
}

func (r *Repository) SchoolEvents(_ context.Context, schoolID int64) ([]model.Event, error) {
	return r.filterEvents(func(e model.Event) bool {
		return e.SchoolID == schoolID && e.IsSchoolEvent()
	}), nil
}

func (r *Repository) MemberOrganizationEvents(_ context.Context, studentID, schoolID int64) ([]model.Event, error) {
	return r.filterEvents(func(e model.Event) bool {
		if e.IsSchoolEvent() || e.SchoolID != schoolID {
			return false
		}
		_, member := r.members[memberKey{org: e.OrganizationID, student: studentID}]
		return member
	}), nil
}

func (r *Repository) OrganizationEvents(_ context.Context, orgID int64) ([]model.Event, error) {
	return r.filterEvents(func(e model.Event) bool { return e.OrganizationID == orgID && orgID != 0 }), nil
}

func (r *Repository) filterEvents(keep func(model.Event) bool) []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.Event
	for _, e := range r.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From.Equal(out[j].From) {
			return out[i].ID < out[j].ID
		}
		return out[i].From.Before(out[j].From)
	})
	return out
}

func (r *Repository) EventAudience(_ context.Context, eventID int64) ([]model.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[eventID]
	if !ok {
		return nil, nil
	}
	var out []model.Student
	for id, st := range r.students {
		if e.IsSchoolEvent() {
			if r.attends[id] == e.SchoolID {
				out = append(out, st)
			}
			continue
		}
		if _, ok := r.members[memberKey{org: e.OrganizationID, student: id}]; ok {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Repository) ListComments(_ context.Context, eventID int64) ([]model.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.Comment
	for _, c := range r.comments {
		if c.EventID == eventID {
			out = append(out, r.withAuthor(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repository) withAuthor(c model.Comment) model.Comment {
	author := r.students[c.AuthorID]
	c.AuthorFirstName = author.FirstName
	c.AuthorLastName = author.LastName
	return c
}

func (r *Repository) GetComment(_ context.Context, eventID, commentID int64) (*model.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.comments[commentID]
	if !ok || c.EventID != eventID {
		return nil, repo.ErrCommentNotFound
	}
	c = r.withAuthor(c)
	return &c, nil
}

func (r *Repository) AddCommentTx(_ context.Context, c *model.Comment) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[c.EventID]; !ok {
		return 0, repo.ErrEventNotFound
	}
	c.ID = r.nextID()
	c.CreatedAt = r.NowFunc()
	r.comments[c.ID] = *c
	return c.ID, nil
}

func (r *Repository) UpdateComment(_ context.Context, commentID int64, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.comments[commentID]
	if !ok {
		return repo.ErrCommentNotFound
	}
	c.Body = body
	r.comments[commentID] = c
	return nil
}

func (r *Repository) DeleteComment(_ context.Context, commentID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.comments[commentID]; !ok {
		return repo.ErrCommentNotFound
	}
	delete(r.comments, commentID)
	return nil
}

func (r *Repository) UpsertRating(_ context.Context, studentID, eventID int64, value int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[eventID]; !ok {
		return repo.ErrEventNotFound
	}
	r.ratings[ratingKey{student: studentID, event: eventID}] = value
	return nil
}

// RatingCount returns how many rating rows exist for eventID.
func (r *Repository) RatingCount(eventID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k := range r.ratings {
		if k.event == eventID {
			n++
		}
	}
	return n
}

func (r *Repository) RatingSummary(_ context.Context, eventID, studentID int64) (model.RatingSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		sum   model.RatingSummary
		total int
	)
	for k, v := range r.ratings {
		if k.event != eventID {
			continue
		}
		sum.Count++
		total += v
		if studentID != 0 && k.student == studentID {
			mine := v
			sum.Mine = &mine
		}
	}
	if sum.Count > 0 {
		sum.Average = float64(total) / float64(sum.Count)
	}
	return sum, nil
}

func (r *Repository) ListOrganizations(_ context.Context, schoolID, viewerID int64) ([]model.OrganizationSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.OrganizationSummary
	for _, o := range r.organizations {
		if o.SchoolID != schoolID {
			continue
		}
		_, member := r.members[memberKey{org: o.ID, student: viewerID}]
		out = append(out, model.OrganizationSummary{
			Organization: o,
			IsMember:     viewerID != 0 && member,
			IsAdmin:      viewerID != 0 && o.AdminID == viewerID,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *Repository) GetOrganization(_ context.Context, schoolID, orgID int64) (*model.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.organizations[orgID]
	if !ok || o.SchoolID != schoolID {
		return nil, repo.ErrOrganizationNotFound
	}
	return &o, nil
}

func (r *Repository) ListMembers(_ context.Context, orgID int64) ([]model.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.Student
	for k := range r.members {
		if k.org == orgID {
			out = append(out, r.students[k.student])
		}
	}
	sortStudents(out)
	return out, nil
}

func (r *Repository) IsMember(_ context.Context, orgID, studentID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[memberKey{org: orgID, student: studentID}]
	return ok, nil
}

func (r *Repository) CreateOrganizationTx(_ context.Context, o *model.Organization, memberIDs []int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.schools[o.SchoolID]; !ok {
		return 0, repo.ErrSchoolNotFound
	}
	all := append([]int64{o.AdminID}, memberIDs...)
	for _, id := range all {
		if _, ok := r.students[id]; !ok {
			return 0, repo.ErrStudentNotFound
		}
	}

	o.ID = r.nextID()
	r.organizations[o.ID] = *o
	for _, id := range all {
		r.members[memberKey{org: o.ID, student: id}] = struct{}{}
	}
	return o.ID, nil
}

func (r *Repository) AddMember(_ context.Context, orgID, studentID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[memberKey{org: orgID, student: studentID}] = struct{}{}
	return nil
}

func (r *Repository) RemoveMember(_ context.Context, orgID, studentID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, memberKey{org: orgID, student: studentID})
	return nil
}

func sortStudents(s []model.Student) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].FirstName != s[j].FirstName {
			return s[i].FirstName < s[j].FirstName
		}
		if s[i].LastName != s[j].LastName {
			return s[i].LastName < s[j].LastName
		}
		return s[i].ID < s[j].ID
	})
}
