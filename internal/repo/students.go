package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"uconnect/internal/model"
)

const studentColumns = `st.id, st.email, st.password, st.first_name, st.last_name`

func (r *repository) CreateStudent(ctx context.Context, st *model.Student) (int64, error) {
	id, err := insertStudent(ctx, r.db.Master, st)
	if err != nil {
		return 0, err
	}
	st.ID = id
	return id, nil
}

// SignupTx creates the student and enrolls them at schoolID.
func (r *repository) SignupTx(ctx context.Context, st *model.Student, schoolID int64) (int64, error) {
	var id int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if id, err = insertStudent(ctx, tx, st); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO attends (student, school) VALUES ($1, $2)`, id, schoolID,
		); err != nil {
			if code, _ := pqViolation(err); code == pqForeignKeyViolation {
				return ErrSchoolNotFound
			}
			return fmt.Errorf("failed to insert attends: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	st.ID = id
	r.log.Info().Int64("student_id", id).Int64("school_id", schoolID).Msg("student signed up")
	return id, nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertStudent(ctx context.Context, q rowQuerier, st *model.Student) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO students (email, password, first_name, last_name)
		VALUES (LOWER($1), $2, $3, $4)
		RETURNING id
	`, st.Email, st.Password, st.FirstName, st.LastName).Scan(&id)
	if err != nil {
		if code, _ := pqViolation(err); code == pqUniqueViolation {
			return 0, ErrDuplicateEmail
		}
		return 0, fmt.Errorf("failed to insert student: %w", err)
	}
	return id, nil
}

func (r *repository) GetStudentByEmail(ctx context.Context, email string) (*model.Student, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students st WHERE st.email = LOWER($1)`, email)

	var st model.Student
	err := row.Scan(&st.ID, &st.Email, &st.Password, &st.FirstName, &st.LastName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &st, nil
}

func (r *repository) Attends(ctx context.Context, studentID, schoolID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM attends WHERE student = $1 AND school = $2)`,
		studentID, schoolID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check attends: %w", err)
	}
	return ok, nil
}

func (r *repository) ListAttendees(ctx context.Context, schoolID int64) ([]model.Student, error) {
	return r.queryStudents(ctx, `
		SELECT `+studentColumns+`
		FROM students st
		JOIN attends a ON a.student = st.id
		WHERE a.school = $1
		ORDER BY st.first_name, st.last_name, st.id
	`, schoolID)
}

func (r *repository) CountAttending(ctx context.Context, schoolID int64, studentIDs []int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attends WHERE school = $1 AND student = ANY($2)`,
		schoolID, int64Array(studentIDs),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count attendees: %w", err)
	}
	return n, nil
}

// EventAudience returns who should hear about an event: members of the
// organizing organization, or students of the hosting school.
func (r *repository) EventAudience(ctx context.Context, eventID int64) ([]model.Student, error) {
	return r.queryStudents(ctx, `
		SELECT `+studentColumns+`
		FROM students st
		WHERE st.id IN (
			SELECT m.student
			FROM organizedby ob
			JOIN member m ON m.organization = ob.organization
			WHERE ob.event = $1
			UNION
			SELECT a.student
			FROM heldat h
			JOIN attends a ON a.school = h.school
			WHERE h.event = $1
		)
		ORDER BY st.id
	`, eventID)
}

func (r *repository) queryStudents(ctx context.Context, query string, args ...any) ([]model.Student, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var st model.Student
		if err := rows.Scan(&st.ID, &st.Email, &st.Password, &st.FirstName, &st.LastName); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, st)
	}
	return students, rows.Err()
}
