// Package access decides who may read or mutate what. A Viewer is passed
// explicitly to every operation.
package access

import "uconnect/internal/apperr"

const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgLoginRequired      = "You must be logged in"
	MsgWrongSchool        = "You are not a student of this school"
	MsgNotAuthor          = "You can only change your own comments"
)

type State uint8

const (
	Anonymous State = iota
	Authenticated
	SchoolScoped
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case SchoolScoped:
		return "school_scoped"
	default:
		return "anonymous"
	}
}

// Viewer is the identity a request acts as. The zero value is anonymous.
type Viewer struct {
	StudentID    int64
	Email        string
	FirstName    string
	LastName     string
	SchoolID     int64
	SchoolDomain string
}

func (v Viewer) IsAuthenticated() bool { return v.StudentID != 0 }

// Attends reports whether the viewer is a student of schoolID.
func (v Viewer) Attends(schoolID int64) bool {
	return v.IsAuthenticated() && schoolID != 0 && v.SchoolID == schoolID
}

// StateFor returns the viewer's state relative to a target school.
func (v Viewer) StateFor(schoolID int64) State {
	switch {
	case v.Attends(schoolID):
		return SchoolScoped
	case v.IsAuthenticated():
		return Authenticated
	default:
		return Anonymous
	}
}

func RequireAuthenticated(v Viewer) error {
	if !v.IsAuthenticated() {
		return apperr.Auth(MsgLoginRequired)
	}
	return nil
}

// RequireSchool lets through only authenticated students of schoolID.
func RequireSchool(v Viewer, schoolID int64) error {
	if err := RequireAuthenticated(v); err != nil {
		return err
	}
	if !v.Attends(schoolID) {
		return apperr.Forbidden(MsgWrongSchool)
	}
	return nil
}

func RequireAuthor(v Viewer, authorID int64) error {
	if err := RequireAuthenticated(v); err != nil {
		return err
	}
	if v.StudentID != authorID {
		return apperr.Forbidden(MsgNotAuthor)
	}
	return nil
}
