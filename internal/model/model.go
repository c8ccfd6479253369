package model

import "time"

type School struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Domain      string `db:"domain" json:"domain"`
	Address     string `db:"address,omitempty" json:"address,omitempty"`
	Description string `db:"description,omitempty" json:"description,omitempty"`
	NumStudents *int   `db:"num_students" json:"num_students,omitempty"`
}

// Student passwords are stored exactly as submitted.
type Student struct {
	ID        int64  `db:"id" json:"id"`
	Email     string `db:"email" json:"email"`
	Password  string `db:"password" json:"-"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
}

type Organization struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description,omitempty" json:"description,omitempty"`
	Phone       string `db:"phone,omitempty" json:"phone,omitempty"`
	Email       string `db:"email,omitempty" json:"email,omitempty"`
	SchoolID    int64  `db:"school" json:"school_id"`
	AdminID     int64  `db:"admin" json:"admin_id"`
}

// OrganizationSummary is an organization as seen by one viewer.
type OrganizationSummary struct {
	Organization
	IsMember bool `json:"is_member"`
	IsAdmin  bool `json:"is_admin"`
}

type EventType struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Event is either a school event (OrganizationID == 0, Public meaningful) or an
// organization event. SchoolID is the calendar the event is booked in: the
// hosting school, or the school the organization is registered at.
type Event struct {
	ID               int64     `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	TypeID           int64     `db:"type" json:"type_id"`
	TypeName         string    `db:"type_name" json:"type"`
	From             time.Time `db:"date_from" json:"date_from"`
	To               time.Time `db:"date_to" json:"date_to"`
	Address          string    `db:"address,omitempty" json:"address,omitempty"`
	Description      string    `db:"description,omitempty" json:"description,omitempty"`
	SchoolID         int64     `db:"school" json:"school_id"`
	Public           bool      `db:"public" json:"public"`
	OrganizationID   int64     `db:"organization" json:"organization_id,omitempty"`
	OrganizationName string    `db:"organization_name" json:"organization_name,omitempty"`
}

func (e Event) IsSchoolEvent() bool { return e.OrganizationID == 0 }

type Comment struct {
	ID              int64     `db:"id" json:"id"`
	Body            string    `db:"body" json:"body"`
	EventID         int64     `db:"event" json:"event_id"`
	AuthorID        int64     `db:"author" json:"author_id"`
	AuthorFirstName string    `db:"first_name" json:"author_first_name"`
	AuthorLastName  string    `db:"last_name" json:"author_last_name"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

const (
	MinRating = 1
	MaxRating = 5
)

type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
	// Mine is the viewer's own rating, nil when absent.
	Mine *int `json:"mine,omitempty"`
}

// ReminderMessage is queued when an event is created and consumed shortly
// before it starts.
type ReminderMessage struct {
	EventID  int64     `json:"event_id"`
	SchoolID int64     `json:"school_id"`
	StartsAt time.Time `json:"starts_at"`
}
