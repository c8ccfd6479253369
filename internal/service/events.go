package service

import (
	"github.com/wb-go/wbf/ginext"

	"uconnect/internal/access"
	"uconnect/internal/campus"
	"uconnect/internal/dto"
	"uconnect/internal/session"
	"uconnect/internal/visibility"
)

func (s *service) EventForm(ctx *ginext.Context) {
	form, err := s.campus.EventForm(ctx.Request.Context(), session.ViewerFrom(ctx), ctx.Param("school"))
	if err != nil {
		s.fail(ctx, err)
		return
	}
	s.page(ctx, form)
}

func (s *service) CreateEvent(ctx *ginext.Context) {
	var req dto.EventRequest
	if !s.bind(ctx, &req) {
		return
	}

	from, to, err := s.campus.EventRange(req.Date, req.TimeFrom, req.TimeTo)
	if err != nil {
		s.fail(ctx, err)
		return
	}

	school := ctx.Param("school")
	e, err := s.campus.CreateEvent(ctx.Request.Context(), session.ViewerFrom(ctx), school, campus.EventInput{
		Name:           req.Name,
		TypeID:         req.Type,
		OrganizationID: req.Organization,
		Public:         req.Public,
		From:           from,
		To:             to,
		Address:        req.Address,
		Description:    req.Description,
	})
	if err != nil {
		s.fail(ctx, err)
		return
	}

	ctx.Header("Location", campus.EventPath(school, e.ID))
	dto.SuccessCreatedResponse(ctx, visibility.NewEventView(*e))
}

func (s *service) EventPage(ctx *ginext.Context) {
	id, err := pathID(ctx, "event", campus.MsgEventNotFound)
	if err != nil {
		s.fail(ctx, err)
		return
	}

	page, err := s.campus.EventPage(ctx.Request.Context(), session.ViewerFrom(ctx), ctx.Param("school"), id)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	s.page(ctx, page)
}

func (s *service) AddComment(ctx *ginext.Context) {
	eventID, err := pathID(ctx, "event", campus.MsgEventNotFound)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	var req dto.CommentRequest
	if !s.bind(ctx, &req) {
		return
	}

	s.execute(ctx, access.AddComment{EventID: eventID, Body: req.Message}, true)
}

func (s *service) EditComment(ctx *ginext.Context) {
	eventID, err := pathID(ctx, "event", campus.MsgEventNotFound)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	commentID, err := pathID(ctx, "comment", campus.MsgCommentNotFound)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	var req dto.CommentRequest
	if !s.bind(ctx, &req) {
		return
	}

	s.execute(ctx, access.EditComment{EventID: eventID, CommentID: commentID, Body: req.Message}, false)
}

func (s *service) DeleteComment(ctx *ginext.Context) {
	eventID, err := pathID(ctx, "event", campus.MsgEventNotFound)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	commentID, err := pathID(ctx, "comment", campus.MsgCommentNotFound)
	if err != nil {
		s.fail(ctx, err)
		return
	}

	s.execute(ctx, access.DeleteComment{EventID: eventID, CommentID: commentID}, false)
}

func (s *service) RateEvent(ctx *ginext.Context) {
	eventID, err := pathID(ctx, "event", campus.MsgEventNotFound)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	var req dto.RatingRequest
	if !s.bind(ctx, &req) {
		return
	}

	s.execute(ctx, access.RateEvent{EventID: eventID, Value: req.Rating}, false)
}

func (s *service) execute(ctx *ginext.Context, cmd access.Command, created bool) {
	id, err := s.campus.Execute(ctx.Request.Context(), session.ViewerFrom(ctx), ctx.Param("school"), cmd)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	if created {
		dto.SuccessCreatedResponse(ctx, dto.IDResponse{ID: id})
		return
	}
	dto.SuccessResponse(ctx, dto.IDResponse{ID: id})
}
