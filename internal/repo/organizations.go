package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"uconnect/internal/model"
)

const organizationSelect = `
	SELECT o.id, o.name, o.description, o.phone, o.email, r.school, a.student
	FROM organizations o
	JOIN registeredat r ON r.organization = o.id
	JOIN administrates a ON a.organization = o.id
`

// ListOrganizations returns the organizations registered at schoolID with
// viewerID's membership flags. viewerID 0 yields no flags.
func (r *repository) ListOrganizations(ctx context.Context, schoolID, viewerID int64) ([]model.OrganizationSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.name, o.description, o.phone, o.email, r.school, a.student,
		       EXISTS (SELECT 1 FROM member m WHERE m.organization = o.id AND m.student = $2),
		       a.student = $2
		FROM organizations o
		JOIN registeredat r ON r.organization = o.id
		JOIN administrates a ON a.organization = o.id
		WHERE r.school = $1
		ORDER BY o.name, o.id
	`, schoolID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []model.OrganizationSummary
	for rows.Next() {
		var o model.OrganizationSummary
		if err := rows.Scan(
			&o.ID, &o.Name, &o.Description, &o.Phone, &o.Email, &o.SchoolID, &o.AdminID,
			&o.IsMember, &o.IsAdmin,
		); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

func (r *repository) GetOrganization(ctx context.Context, schoolID, orgID int64) (*model.Organization, error) {
	var o model.Organization
	err := r.db.QueryRowContext(ctx, organizationSelect+`
		WHERE o.id = $1 AND r.school = $2
	`, orgID, schoolID).Scan(&o.ID, &o.Name, &o.Description, &o.Phone, &o.Email, &o.SchoolID, &o.AdminID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &o, nil
}

func (r *repository) ListMembers(ctx context.Context, orgID int64) ([]model.Student, error) {
	return r.queryStudents(ctx, `
		SELECT `+studentColumns+`
		FROM students st
		JOIN member m ON m.student = st.id
		WHERE m.organization = $1
		ORDER BY st.first_name, st.last_name, st.id
	`, orgID)
}

func (r *repository) IsMember(ctx context.Context, orgID, studentID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM member WHERE organization = $1 AND student = $2)`,
		orgID, studentID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return ok, nil
}

// CreateOrganizationTx inserts the organization, its administrator, its
// members and its registration at o.SchoolID. The administrator is always
// stored as a member.
func (r *repository) CreateOrganizationTx(ctx context.Context, o *model.Organization, memberIDs []int64) (int64, error) {
	members := append([]int64{o.AdminID}, memberIDs...)

	var id int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO organizations (name, description, phone, email)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, o.Name, o.Description, o.Phone, o.Email).Scan(&id); err != nil {
			return fmt.Errorf("failed to insert organization: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO administrates (organization, student) VALUES ($1, $2)`, id, o.AdminID,
		); err != nil {
			return fmt.Errorf("failed to insert administrates: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO member (student, organization)
			SELECT DISTINCT UNNEST($1::BIGINT[]), $2::BIGINT
			ON CONFLICT DO NOTHING
		`, int64Array(members), id); err != nil {
			if code, _ := pqViolation(err); code == pqForeignKeyViolation {
				return ErrStudentNotFound
			}
			return fmt.Errorf("failed to insert members: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO registeredat (organization, school) VALUES ($1, $2)`, id, o.SchoolID,
		); err != nil {
			if code, _ := pqViolation(err); code == pqForeignKeyViolation {
				return ErrSchoolNotFound
			}
			return fmt.Errorf("failed to insert registeredat: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	o.ID = id
	r.log.Info().
		Int64("organization_id", id).
		Int64("school_id", o.SchoolID).
		Int("members", len(members)).
		Msg("organization created")
	return id, nil
}

// AddMember is idempotent.
func (r *repository) AddMember(ctx context.Context, orgID, studentID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO member (student, organization) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, studentID, orgID)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

func (r *repository) RemoveMember(ctx context.Context, orgID, studentID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM member WHERE student = $1 AND organization = $2`, studentID, orgID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}
