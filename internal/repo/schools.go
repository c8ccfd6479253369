package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"uconnect/internal/model"
)

func (r *repository) ListSchools(ctx context.Context, query string) ([]model.School, error) {
	q := `
		SELECT id, name, domain, address, description, num_students
		FROM schools
		WHERE $1 = ''
		   OR strpos(lower(name), lower($1)) > 0
		   OR strpos(lower(domain), lower($1)) > 0
		ORDER BY name, id
	`
	rows, err := r.db.QueryContext(ctx, q, strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("failed to list schools: %w", err)
	}
	defer rows.Close()

	var schools []model.School
	for rows.Next() {
		s, err := scanSchool(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan school: %w", err)
		}
		schools = append(schools, *s)
	}
	return schools, rows.Err()
}

func (r *repository) GetSchoolByDomain(ctx context.Context, domain string) (*model.School, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, domain, address, description, num_students
		FROM schools
		WHERE domain = LOWER($1)
	`, domain)

	s, err := scanSchool(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSchoolNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get school %q: %w", domain, err)
	}
	return s, nil
}

// CreateSchoolTx registers a school, enrolls its founding student and makes
// them its super administrator.
func (r *repository) CreateSchoolTx(ctx context.Context, s *model.School, founderID int64) (int64, error) {
	var id int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM students WHERE id = $1)`, founderID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check founder: %w", err)
		}
		if !exists {
			return ErrStudentNotFound
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO schools (name, domain, address, description, num_students)
			VALUES ($1, LOWER($2), $3, $4, $5)
			RETURNING id
		`, s.Name, s.Domain, s.Address, s.Description, nullInt(s.NumStudents)).Scan(&id)
		if err != nil {
			if code, _ := pqViolation(err); code == pqUniqueViolation {
				return ErrDuplicateDomain
			}
			return fmt.Errorf("failed to insert school: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO attends (student, school) VALUES ($1, $2)`, founderID, id,
		); err != nil {
			if code, _ := pqViolation(err); code == pqUniqueViolation {
				return ErrAlreadyEnrolled
			}
			return fmt.Errorf("failed to enroll founder: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO superadministrates (student, school) VALUES ($1, $2)`, founderID, id,
		); err != nil {
			return fmt.Errorf("failed to insert super administrator: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.ID = id
	r.log.Info().Int64("school_id", id).Str("domain", s.Domain).Msg("school created")
	return id, nil
}

func (r *repository) ListEventTypes(ctx context.Context) ([]model.EventType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM eventtypes ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list event types: %w", err)
	}
	defer rows.Close()

	var types []model.EventType
	for rows.Next() {
		var t model.EventType
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan event type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSchool(sc scanner) (*model.School, error) {
	var (
		s   model.School
		num sql.NullInt64
	)
	if err := sc.Scan(&s.ID, &s.Name, &s.Domain, &s.Address, &s.Description, &num); err != nil {
		return nil, err
	}
	if num.Valid {
		n := int(num.Int64)
		s.NumStudents = &n
	}
	return &s, nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func int64Array(ids []int64) any {
	return pq.Array(ids)
}
