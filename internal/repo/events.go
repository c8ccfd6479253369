package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"uconnect/internal/model"
	"uconnect/internal/schedule"
)

const calendarColumns = `
	id, name, type, type_name, date_from, date_to, address, description,
	school, public, organization, organization_name
`

// CreateEventTx books e in the calendar of e.SchoolID. The school row is
// locked for the whole transaction so that concurrent bookings for the same
// school are serialized between the overlap check and the insert.
func (r *repository) CreateEventTx(ctx context.Context, e *model.Event, check CalendarCheck) (int64, error) {
	var id int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var locked int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM schools WHERE id = $1 FOR UPDATE`, e.SchoolID,
		).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSchoolNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock school: %w", err)
		}

		if !e.IsSchoolEvent() {
			var registered bool
			if err := tx.QueryRowContext(ctx, `
				SELECT EXISTS (SELECT 1 FROM registeredat WHERE organization = $1 AND school = $2)
			`, e.OrganizationID, e.SchoolID).Scan(&registered); err != nil {
				return fmt.Errorf("failed to check organization: %w", err)
			}
			if !registered {
				return ErrOrganizationNotFound
			}
		}

		existing, err := calendarWindow(ctx, tx, e)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(existing); err != nil {
				return err
			}
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO events (name, type, date_from, date_to, address, description)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, e.Name, e.TypeID, e.From, e.To, e.Address, e.Description).Scan(&id)
		if err != nil {
			if code, _ := pqViolation(err); code == pqForeignKeyViolation {
				return ErrUnknownEventType
			}
			return fmt.Errorf("failed to insert event: %w", err)
		}

		if e.IsSchoolEvent() {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO schoolevents (event, public) VALUES ($1, $2)`, id, e.Public,
			); err != nil {
				return fmt.Errorf("failed to insert school event: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO heldat (event, school) VALUES ($1, $2)`, id, e.SchoolID,
			); err != nil {
				return fmt.Errorf("failed to insert heldat: %w", err)
			}
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO organizationevents (event) VALUES ($1)`, id,
		); err != nil {
			return fmt.Errorf("failed to insert organization event: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO organizedby (event, organization) VALUES ($1, $2)`, id, e.OrganizationID,
		); err != nil {
			return fmt.Errorf("failed to insert organizedby: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	e.ID = id
	r.log.Info().
		Int64("event_id", id).
		Int64("school_id", e.SchoolID).
		Int64("organization_id", e.OrganizationID).
		Msg("event created")
	return id, nil
}

// calendarWindow loads the events of the school calendar that intersect the
// candidate range.
func calendarWindow(ctx context.Context, tx *sql.Tx, e *model.Event) ([]schedule.Interval, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, date_from, date_to
		FROM event_calendar
		WHERE school = $1 AND date_from < $3 AND date_to > $2
		ORDER BY date_from, id
	`, e.SchoolID, e.From, e.To)
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar: %w", err)
	}
	defer rows.Close()

	var out []schedule.Interval
	for rows.Next() {
		var iv schedule.Interval
		if err := rows.Scan(&iv.ID, &iv.From, &iv.To); err != nil {
			return nil, fmt.Errorf("failed to scan calendar entry: %w", err)
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

func (r *repository) GetEventByID(ctx context.Context, id int64) (*model.Event, error) {
	return r.getEvent(ctx, `SELECT `+calendarColumns+` FROM event_calendar WHERE id = $1`, id)
}

// GetSchoolEvent returns an event only if it is booked in schoolID's calendar.
func (r *repository) GetSchoolEvent(ctx context.Context, schoolID, eventID int64) (*model.Event, error) {
	return r.getEvent(ctx,
		`SELECT `+calendarColumns+` FROM event_calendar WHERE id = $1 AND school = $2`,
		eventID, schoolID)
}

func (r *repository) getEvent(ctx context.Context, query string, args ...any) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

func (r *repository) SchoolEvents(ctx context.Context, schoolID int64) ([]model.Event, error) {
	return r.queryEvents(ctx, `
		SELECT `+calendarColumns+`
		FROM event_calendar
		WHERE school = $1 AND organization = 0
		ORDER BY date_from, id
	`, schoolID)
}

// MemberOrganizationEvents returns events of organizations studentID belongs
// to that are registered at schoolID.
func (r *repository) MemberOrganizationEvents(ctx context.Context, studentID, schoolID int64) ([]model.Event, error) {
	return r.queryEvents(ctx, `
		SELECT `+calendarColumns+`
		FROM event_calendar
		WHERE school = $2
		  AND organization IN (SELECT organization FROM member WHERE student = $1)
		ORDER BY date_from, id
	`, studentID, schoolID)
}

func (r *repository) OrganizationEvents(ctx context.Context, orgID int64) ([]model.Event, error) {
	return r.queryEvents(ctx, `
		SELECT `+calendarColumns+`
		FROM event_calendar
		WHERE organization = $1
		ORDER BY date_from, id
	`, orgID)
}

func (r *repository) queryEvents(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func scanEvent(sc scanner) (*model.Event, error) {
	var e model.Event
	if err := sc.Scan(
		&e.ID, &e.Name, &e.TypeID, &e.TypeName, &e.From, &e.To, &e.Address, &e.Description,
		&e.SchoolID, &e.Public, &e.OrganizationID, &e.OrganizationName,
	); err != nil {
		return nil, err
	}
	return &e, nil
}
