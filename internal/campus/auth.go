package campus

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"uconnect/internal/access"
	"uconnect/internal/apperr"
	"uconnect/internal/model"
	"uconnect/internal/repo"
)

const (
	MsgEmailInUse       = "Email already in use"
	MsgDomainMismatch   = "Email domain does not match school domain"
	MsgDomainTaken      = "A school with this domain already exists"
	MsgFounderNotFound  = "Student not found"
	MsgFounderEnrolled  = "Student already attends a school"
	MsgMissingFields    = "All fields are required"
	MsgInvalidSchoolDom = "Invalid school domain"
)

type StudentInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func (in StudentInput) student() *model.Student {
	return &model.Student{
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Password:  in.Password,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
	}
}

func (in StudentInput) validate() error {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" ||
		strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return apperr.Validation(MsgMissingFields)
	}
	return nil
}

type SchoolInput struct {
	FounderID   int64
	Name        string
	Domain      string
	Address     string
	Description string
	NumStudents *int
}

// CreateFounder creates the student who is about to onboard a new school.
// They are not enrolled anywhere until CreateSchool runs.
func (s *Service) CreateFounder(ctx context.Context, in StudentInput) (int64, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}
	id, err := s.repo.CreateStudent(ctx, in.student())
	if errors.Is(err, repo.ErrDuplicateEmail) {
		return 0, apperr.State(MsgEmailInUse)
	}
	if err != nil {
		return 0, err
	}
	s.log.Info().Int64("student_id", id).Msg("founding student created")
	return id, nil
}

// CreateSchool registers a school and makes the founder its first student
// and super administrator.
func (s *Service) CreateSchool(ctx context.Context, in SchoolInput) (*model.School, error) {
	domain := strings.ToLower(strings.TrimSpace(in.Domain))
	if strings.TrimSpace(in.Name) == "" || domain == "" {
		return nil, apperr.Validation(MsgMissingFields)
	}
	if strings.ContainsAny(domain, "@/ ") || !strings.Contains(domain, ".") {
		return nil, apperr.Validation(MsgInvalidSchoolDom)
	}

	sc := &model.School{
		Name:        strings.TrimSpace(in.Name),
		Domain:      domain,
		Address:     strings.TrimSpace(in.Address),
		Description: strings.TrimSpace(in.Description),
		NumStudents: in.NumStudents,
	}
	_, err := s.repo.CreateSchoolTx(ctx, sc, in.FounderID)
	switch {
	case errors.Is(err, repo.ErrDuplicateDomain):
		return nil, apperr.State(MsgDomainTaken)
	case errors.Is(err, repo.ErrStudentNotFound):
		return nil, apperr.Validation(MsgFounderNotFound)
	case errors.Is(err, repo.ErrAlreadyEnrolled):
		return nil, apperr.State(MsgFounderEnrolled)
	case err != nil:
		return nil, err
	}
	return sc, nil
}

// Signup enrolls a new student at the school. The email must belong to the
// school's domain.
func (s *Service) Signup(ctx context.Context, domain string, in StudentInput) (int64, error) {
	sc, err := s.school(ctx, domain)
	if err != nil {
		return 0, err
	}
	if err := in.validate(); err != nil {
		return 0, err
	}
	st := in.student()
	if !strings.HasSuffix(st.Email, "@"+sc.Domain) {
		return 0, apperr.Validation(MsgDomainMismatch)
	}

	id, err := s.repo.SignupTx(ctx, st, sc.ID)
	if errors.Is(err, repo.ErrDuplicateEmail) {
		return 0, apperr.State(MsgEmailInUse)
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Login checks the credentials against the school. A wrong password, an
// unknown email and a student of another school all fail identically.
func (s *Service) Login(ctx context.Context, domain, email, password string) (access.Viewer, error) {
	sc, err := s.school(ctx, domain)
	if err != nil {
		return access.Viewer{}, err
	}

	invalid := apperr.Auth(access.MsgInvalidCredentials)
	st, err := s.repo.GetStudentByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repo.ErrStudentNotFound) {
		return access.Viewer{}, invalid
	}
	if err != nil {
		return access.Viewer{}, err
	}
	if subtle.ConstantTimeCompare([]byte(st.Password), []byte(password)) != 1 {
		return access.Viewer{}, invalid
	}

	ok, err := s.repo.Attends(ctx, st.ID, sc.ID)
	if err != nil {
		return access.Viewer{}, err
	}
	if !ok {
		return access.Viewer{}, invalid
	}

	return access.Viewer{
		StudentID:    st.ID,
		Email:        st.Email,
		FirstName:    st.FirstName,
		LastName:     st.LastName,
		SchoolID:     sc.ID,
		SchoolDomain: sc.Domain,
	}, nil
}
