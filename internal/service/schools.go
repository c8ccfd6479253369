package service

import (
	"strconv"

	"github.com/wb-go/wbf/ginext"

	"uconnect/internal/campus"
	"uconnect/internal/dto"
	"uconnect/internal/model"
	"uconnect/internal/session"
)

// Home lists schools. Signed-in students go straight to their own school.
func (s *service) Home(ctx *ginext.Context) {
	viewer := session.ViewerFrom(ctx)
	if viewer.IsAuthenticated() && viewer.SchoolDomain != "" {
		dto.Redirect(ctx, campus.SchoolPath(viewer.SchoolDomain))
		return
	}

	schools, err := s.campus.ListSchools(ctx.Request.Context(), ctx.Query("q"))
	if err != nil {
		s.fail(ctx, err)
		return
	}
	if schools == nil {
		schools = []model.School{}
	}
	s.page(ctx, schools)
}

func (s *service) CreateFounder(ctx *ginext.Context) {
	var req dto.StudentRequest
	if !s.bind(ctx, &req) {
		return
	}

	id, err := s.campus.CreateFounder(ctx.Request.Context(), campus.StudentInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		s.fail(ctx, err)
		return
	}

	ctx.Header("Location", "/new/school?sid="+strconv.FormatInt(id, 10))
	dto.SuccessCreatedResponse(ctx, dto.IDResponse{ID: id})
}

func (s *service) CreateSchool(ctx *ginext.Context) {
	var req dto.SchoolRequest
	if sid, err := strconv.ParseInt(ctx.Query("sid"), 10, 64); err == nil {
		req.StudentID = sid
	}
	if !s.bind(ctx, &req) {
		return
	}

	sc, err := s.campus.CreateSchool(ctx.Request.Context(), campus.SchoolInput{
		FounderID:   req.StudentID,
		Name:        req.Name,
		Domain:      req.Domain,
		Address:     req.Address,
		Description: req.Description,
		NumStudents: req.NumStudents,
	})
	if err != nil {
		s.fail(ctx, err)
		return
	}

	s.log.Info().Int64("school_id", sc.ID).Str("domain", sc.Domain).Msg("school onboarded")
	dto.Redirect(ctx, campus.LoginPath(sc.Domain))
}

func (s *service) SchoolPage(ctx *ginext.Context) {
	page, err := s.campus.SchoolPage(ctx.Request.Context(), session.ViewerFrom(ctx), ctx.Param("school"))
	if err != nil {
		s.fail(ctx, err)
		return
	}
	s.page(ctx, page)
}

func (s *service) Signup(ctx *ginext.Context) {
	var req dto.StudentRequest
	if !s.bind(ctx, &req) {
		return
	}

	school := ctx.Param("school")
	id, err := s.campus.Signup(ctx.Request.Context(), school, campus.StudentInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		s.fail(ctx, err)
		return
	}

	s.log.Info().Int64("student_id", id).Str("school", school).Msg("student signed up")
	dto.Redirect(ctx, campus.LoginPath(school))
}

func (s *service) Login(ctx *ginext.Context) {
	var req dto.LoginRequest
	if !s.bind(ctx, &req) {
		return
	}

	school := ctx.Param("school")
	viewer, err := s.campus.Login(ctx.Request.Context(), school, req.Email, req.Password)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	if err := s.sessions.Commit(ctx, session.FromViewer(viewer)); err != nil {
		s.fail(ctx, err)
		return
	}

	s.log.Info().Int64("student_id", viewer.StudentID).Str("school", school).Msg("student logged in")
	dto.Redirect(ctx, campus.SchoolPath(viewer.SchoolDomain))
}

func (s *service) Logout(ctx *ginext.Context) {
	s.sessions.Destroy(ctx)
	dto.Redirect(ctx, "/")
}
