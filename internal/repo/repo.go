package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"uconnect/internal/model"
	"uconnect/internal/schedule"
)

var (
	ErrSchoolNotFound       = errors.New("school not found")
	ErrStudentNotFound      = errors.New("student not found")
	ErrEventNotFound        = errors.New("event not found")
	ErrCommentNotFound      = errors.New("comment not found")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrUnknownEventType     = errors.New("unknown event type")
	ErrDuplicateEmail       = errors.New("email already in use")
	ErrDuplicateDomain      = errors.New("school domain already registered")
	ErrAlreadyEnrolled      = errors.New("student already attends a school")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// CalendarCheck inspects the events already booked in a school calendar
// around a candidate range. A non-nil error aborts the insert and is returned
// unchanged to the caller.
type CalendarCheck func(existing []schedule.Interval) error

type Repository interface {
	Ping(ctx context.Context) error

	ListSchools(ctx context.Context, query string) ([]model.School, error)
	GetSchoolByDomain(ctx context.Context, domain string) (*model.School, error)
	CreateSchoolTx(ctx context.Context, s *model.School, founderID int64) (int64, error)

	CreateStudent(ctx context.Context, st *model.Student) (int64, error)
	SignupTx(ctx context.Context, st *model.Student, schoolID int64) (int64, error)
	GetStudentByEmail(ctx context.Context, email string) (*model.Student, error)
	Attends(ctx context.Context, studentID, schoolID int64) (bool, error)
	ListAttendees(ctx context.Context, schoolID int64) ([]model.Student, error)
	CountAttending(ctx context.Context, schoolID int64, studentIDs []int64) (int, error)

	ListEventTypes(ctx context.Context) ([]model.EventType, error)
	CreateEventTx(ctx context.Context, e *model.Event, check CalendarCheck) (int64, error)
	GetEventByID(ctx context.Context, id int64) (*model.Event, error)
	GetSchoolEvent(ctx context.Context, schoolID, eventID int64) (*model.Event, error)
	SchoolEvents(ctx context.Context, schoolID int64) ([]model.Event, error)
	MemberOrganizationEvents(ctx context.Context, studentID, schoolID int64) ([]model.Event, error)
	OrganizationEvents(ctx context.Context, orgID int64) ([]model.Event, error)
	EventAudience(ctx context.Context, eventID int64) ([]model.Student, error)

	ListComments(ctx context.Context, eventID int64) ([]model.Comment, error)
	GetComment(ctx context.Context, eventID, commentID int64) (*model.Comment, error)
	AddCommentTx(ctx context.Context, c *model.Comment) (int64, error)
	UpdateComment(ctx context.Context, commentID int64, body string) error
	DeleteComment(ctx context.Context, commentID int64) error

	UpsertRating(ctx context.Context, studentID, eventID int64, value int) error
	RatingSummary(ctx context.Context, eventID, studentID int64) (model.RatingSummary, error)

	ListOrganizations(ctx context.Context, schoolID, viewerID int64) ([]model.OrganizationSummary, error)
	GetOrganization(ctx context.Context, schoolID, orgID int64) (*model.Organization, error)
	ListMembers(ctx context.Context, orgID int64) ([]model.Student, error)
	IsMember(ctx context.Context, orgID, studentID int64) (bool, error)
	CreateOrganizationTx(ctx context.Context, o *model.Organization, memberIDs []int64) (int64, error)
	AddMember(ctx context.Context, orgID, studentID int64) error
	RemoveMember(ctx context.Context, orgID, studentID int64) error

	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

type repository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db, log: log}, nil
}

func (r *repository) Ping(ctx context.Context) error {
	return r.db.Master.PingContext(ctx)
}

func (r *repository) MigrateUp(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		if err := r.execFile(file); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Int("files", len(files)).Msgf("Migrations applied from %s", migrationsDir)
	return nil
}

// MigrateDown applies rollbacks newest first so that dependent objects are
// dropped before what they reference.
func (r *repository) MigrateDown(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.down.sql"))
	if err != nil {
		return fmt.Errorf("failed to read rollback files: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	for _, file := range files {
		if err := r.execFile(file); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", file, err)
		}
	}

	r.log.Info().Int("files", len(files)).Msgf("Migrations rolled back from %s", migrationsDir)
	return nil
}

func (r *repository) execFile(file string) error {
	sqlBytes, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(context.Background(), string(sqlBytes))
	return err
}

// inTx runs fn in a transaction on the master. fn's error rolls back and is
// returned as is.
func (r *repository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func pqViolation(err error) (code, constraint string) {
	var pe *pq.Error
	if errors.As(err, &pe) {
		return string(pe.Code), pe.Constraint
	}
	return "", ""
}
