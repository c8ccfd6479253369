package service

import (
	"github.com/wb-go/wbf/ginext"

	"uconnect/internal/access"
	"uconnect/internal/campus"
	"uconnect/internal/dto"
	"uconnect/internal/session"
)

func (s *service) OrganizationForm(ctx *ginext.Context) {
	form, err := s.campus.OrganizationForm(ctx.Request.Context(), session.ViewerFrom(ctx), ctx.Param("school"))
	if err != nil {
		s.fail(ctx, err)
		return
	}
	s.page(ctx, form)
}

func (s *service) CreateOrganization(ctx *ginext.Context) {
	var req dto.OrganizationRequest
	if !s.bind(ctx, &req) {
		return
	}

	school := ctx.Param("school")
	o, err := s.campus.CreateOrganization(ctx.Request.Context(), session.ViewerFrom(ctx), school, campus.OrganizationInput{
		Name:        req.Name,
		Description: req.Description,
		Phone:       req.Phone,
		Email:       req.Email,
		MemberIDs:   req.Members,
	})
	if err != nil {
		s.fail(ctx, err)
		return
	}

	ctx.Header("Location", campus.OrganizationPath(school, o.ID))
	dto.SuccessCreatedResponse(ctx, o)
}

func (s *service) OrganizationPage(ctx *ginext.Context) {
	id, err := pathID(ctx, "org", campus.MsgOrganizationNotFound)
	if err != nil {
		s.fail(ctx, err)
		return
	}

	page, err := s.campus.OrganizationPage(ctx.Request.Context(), session.ViewerFrom(ctx), ctx.Param("school"), id)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	s.page(ctx, page)
}

func (s *service) JoinOrganization(ctx *ginext.Context) {
	id, err := pathID(ctx, "org", campus.MsgOrganizationNotFound)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	s.execute(ctx, access.JoinOrganization{OrganizationID: id}, false)
}

func (s *service) LeaveOrganization(ctx *ginext.Context) {
	id, err := pathID(ctx, "org", campus.MsgOrganizationNotFound)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	s.execute(ctx, access.LeaveOrganization{OrganizationID: id}, false)
}
