package campus

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"uconnect/internal/access"
	"uconnect/internal/apperr"
	"uconnect/internal/model"
	"uconnect/internal/repo"
)

const (
	MsgEmptyComment  = "You must provide a message"
	MsgInvalidRating = "Invalid rating"
)

// Execute runs a page command on behalf of viewer inside the school. It
// returns the id of the resource the command created or touched.
func (s *Service) Execute(ctx context.Context, viewer access.Viewer, domain string, cmd access.Command) (int64, error) {
	sc, err := s.school(ctx, domain)
	if err != nil {
		return 0, err
	}
	if err := access.RequireSchool(viewer, sc.ID); err != nil {
		return 0, err
	}

	var id int64
	switch c := cmd.(type) {
	case access.AddComment:
		id, err = s.addComment(ctx, viewer, sc, c)
	case access.EditComment:
		id, err = s.editComment(ctx, viewer, sc, c)
	case access.DeleteComment:
		id, err = s.deleteComment(ctx, viewer, sc, c)
	case access.RateEvent:
		id, err = s.rateEvent(ctx, viewer, sc, c)
	case access.JoinOrganization:
		id, err = s.joinOrganization(ctx, viewer, sc, c)
	case access.LeaveOrganization:
		id, err = s.leaveOrganization(ctx, viewer, sc, c)
	default:
		return 0, fmt.Errorf("unsupported command %T", cmd)
	}
	if err != nil {
		return 0, err
	}

	s.log.Info().
		Str("command", cmd.Name()).
		Int64("student_id", viewer.StudentID).
		Int64("target_id", id).
		Msg("command executed")
	return id, nil
}

func (s *Service) addComment(ctx context.Context, viewer access.Viewer, sc *model.School, c access.AddComment) (int64, error) {
	body := strings.TrimSpace(c.Body)
	if body == "" {
		return 0, apperr.Validation(MsgEmptyComment)
	}
	if _, err := s.visibleEvent(ctx, viewer, sc, c.EventID); err != nil {
		return 0, err
	}
	return s.repo.AddCommentTx(ctx, &model.Comment{
		Body:     body,
		EventID:  c.EventID,
		AuthorID: viewer.StudentID,
	})
}

func (s *Service) editComment(ctx context.Context, viewer access.Viewer, sc *model.School, c access.EditComment) (int64, error) {
	body := strings.TrimSpace(c.Body)
	if body == "" {
		return 0, apperr.Validation(MsgEmptyComment)
	}
	comment, err := s.ownComment(ctx, viewer, sc, c.EventID, c.CommentID)
	if err != nil {
		return 0, err
	}
	if err := s.repo.UpdateComment(ctx, comment.ID, body); err != nil {
		return 0, s.commentGone(err, sc, c.EventID)
	}
	return comment.ID, nil
}

func (s *Service) deleteComment(ctx context.Context, viewer access.Viewer, sc *model.School, c access.DeleteComment) (int64, error) {
	comment, err := s.ownComment(ctx, viewer, sc, c.EventID, c.CommentID)
	if err != nil {
		return 0, err
	}
	if err := s.repo.DeleteComment(ctx, comment.ID); err != nil {
		return 0, s.commentGone(err, sc, c.EventID)
	}
	return comment.ID, nil
}

func (s *Service) ownComment(ctx context.Context, viewer access.Viewer, sc *model.School, eventID, commentID int64) (*model.Comment, error) {
	if _, err := s.schoolEvent(ctx, sc, eventID); err != nil {
		return nil, err
	}
	comment, err := s.repo.GetComment(ctx, eventID, commentID)
	if err != nil {
		return nil, s.commentGone(err, sc, eventID)
	}
	if err := access.RequireAuthor(viewer, comment.AuthorID); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *Service) commentGone(err error, sc *model.School, eventID int64) error {
	if errors.Is(err, repo.ErrCommentNotFound) {
		return apperr.NotFound(MsgCommentNotFound, EventPath(sc.Domain, eventID))
	}
	return err
}

func (s *Service) rateEvent(ctx context.Context, viewer access.Viewer, sc *model.School, c access.RateEvent) (int64, error) {
	if c.Value < model.MinRating || c.Value > model.MaxRating {
		return 0, apperr.Validation(MsgInvalidRating)
	}
	e, err := s.visibleEvent(ctx, viewer, sc, c.EventID)
	if err != nil {
		return 0, err
	}
	if err := access.RequireSchool(viewer, e.SchoolID); err != nil {
		return 0, err
	}
	if err := s.repo.UpsertRating(ctx, viewer.StudentID, e.ID, c.Value); err != nil {
		return 0, err
	}
	return e.ID, nil
}

// joinOrganization is idempotent.
func (s *Service) joinOrganization(ctx context.Context, viewer access.Viewer, sc *model.School, c access.JoinOrganization) (int64, error) {
	o, err := s.organization(ctx, sc, c.OrganizationID)
	if err != nil {
		return 0, err
	}
	if err := s.repo.AddMember(ctx, o.ID, viewer.StudentID); err != nil {
		return 0, err
	}
	return o.ID, nil
}

func (s *Service) leaveOrganization(ctx context.Context, viewer access.Viewer, sc *model.School, c access.LeaveOrganization) (int64, error) {
	o, err := s.organization(ctx, sc, c.OrganizationID)
	if err != nil {
		return 0, err
	}
	if o.AdminID == viewer.StudentID {
		return 0, apperr.State(MsgAdminCannotLeave)
	}
	if err := s.repo.RemoveMember(ctx, o.ID, viewer.StudentID); err != nil {
		return 0, err
	}
	return o.ID, nil
}
