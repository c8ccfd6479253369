package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"uconnect/internal/model"
)

const commentSelect = `
	SELECT c.id, c.body, co.event, a.student, st.first_name, st.last_name, c.created_at
	FROM comments c
	JOIN commentedon co ON co.comment = c.id
	JOIN authoredby a ON a.comment = c.id
	JOIN students st ON st.id = a.student
`

func (r *repository) ListComments(ctx context.Context, eventID int64) ([]model.Comment, error) {
	rows, err := r.db.QueryContext(ctx, commentSelect+`
		WHERE co.event = $1
		ORDER BY c.created_at, c.id
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

func (r *repository) GetComment(ctx context.Context, eventID, commentID int64) (*model.Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx, commentSelect+`
		WHERE co.event = $1 AND c.id = $2
	`, eventID, commentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return c, nil
}

func (r *repository) AddCommentTx(ctx context.Context, c *model.Comment) (int64, error) {
	var id int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO comments (body) VALUES ($1) RETURNING id, created_at`, c.Body,
		).Scan(&id, &c.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert comment: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO commentedon (comment, event) VALUES ($1, $2)`, id, c.EventID,
		); err != nil {
			if code, _ := pqViolation(err); code == pqForeignKeyViolation {
				return ErrEventNotFound
			}
			return fmt.Errorf("failed to insert commentedon: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO authoredby (comment, student) VALUES ($1, $2)`, id, c.AuthorID,
		); err != nil {
			return fmt.Errorf("failed to insert authoredby: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	c.ID = id
	return id, nil
}

func (r *repository) UpdateComment(ctx context.Context, commentID int64, body string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE comments SET body = $2 WHERE id = $1`, commentID, body)
	if err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrCommentNotFound
	}
	return nil
}

// DeleteComment removes the comment; its link rows go with it by cascade.
func (r *repository) DeleteComment(ctx context.Context, commentID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, commentID)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrCommentNotFound
	}
	return nil
}

// UpsertRating stores the student's rating, replacing a previous one.
func (r *repository) UpsertRating(ctx context.Context, studentID, eventID int64, value int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ratings (student, event, rating)
		VALUES ($1, $2, $3)
		ON CONFLICT (student, event) DO UPDATE SET rating = EXCLUDED.rating
	`, studentID, eventID, value)
	if err != nil {
		if code, _ := pqViolation(err); code == pqForeignKeyViolation {
			return ErrEventNotFound
		}
		return fmt.Errorf("failed to upsert rating: %w", err)
	}
	return nil
}

func (r *repository) RatingSummary(ctx context.Context, eventID, studentID int64) (model.RatingSummary, error) {
	var sum model.RatingSummary
	if err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(rating), 0)::float8, COUNT(*)
		FROM ratings
		WHERE event = $1
	`, eventID).Scan(&sum.Average, &sum.Count); err != nil {
		return sum, fmt.Errorf("failed to summarize ratings: %w", err)
	}

	if studentID == 0 {
		return sum, nil
	}
	var mine int
	err := r.db.QueryRowContext(ctx,
		`SELECT rating FROM ratings WHERE event = $1 AND student = $2`, eventID, studentID,
	).Scan(&mine)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return sum, fmt.Errorf("failed to get own rating: %w", err)
	default:
		sum.Mine = &mine
	}
	return sum, nil
}

func scanComment(sc scanner) (*model.Comment, error) {
	var c model.Comment
	if err := sc.Scan(
		&c.ID, &c.Body, &c.EventID, &c.AuthorID, &c.AuthorFirstName, &c.AuthorLastName, &c.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
