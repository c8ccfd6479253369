package service

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"uconnect/internal/apperr"
	"uconnect/internal/campus"
	"uconnect/internal/dto"
	"uconnect/internal/session"
	"uconnect/pkg/validator"
)

type Service interface {
	Home(ctx *ginext.Context)
	CreateFounder(ctx *ginext.Context)
	CreateSchool(ctx *ginext.Context)

	SchoolPage(ctx *ginext.Context)
	Signup(ctx *ginext.Context)
	Login(ctx *ginext.Context)
	Logout(ctx *ginext.Context)

	EventForm(ctx *ginext.Context)
	CreateEvent(ctx *ginext.Context)
	EventPage(ctx *ginext.Context)
	AddComment(ctx *ginext.Context)
	EditComment(ctx *ginext.Context)
	DeleteComment(ctx *ginext.Context)
	RateEvent(ctx *ginext.Context)

	OrganizationForm(ctx *ginext.Context)
	CreateOrganization(ctx *ginext.Context)
	OrganizationPage(ctx *ginext.Context)
	JoinOrganization(ctx *ginext.Context)
	LeaveOrganization(ctx *ginext.Context)

	Health(ctx *ginext.Context)
}

type service struct {
	campus   *campus.Service
	sessions *session.Manager
	log      *zerolog.Logger
}

func NewService(c *campus.Service, sessions *session.Manager, logger *zerolog.Logger) Service {
	return &service{
		campus:   c,
		sessions: sessions,
		log:      logger,
	}
}

// pageResponse pairs a page view-model with the signed-in student.
type pageResponse struct {
	Viewer *dto.ViewerResponse `json:"viewer,omitempty"`
	Page   any                 `json:"page"`
}

func (s *service) page(ctx *ginext.Context, data any) {
	dto.SuccessResponse(ctx, pageResponse{
		Viewer: dto.NewViewerResponse(session.ViewerFrom(ctx)),
		Page:   data,
	})
}

// bind decodes a JSON or form body into req and validates it. On failure the
// response is already written.
func (s *service) bind(ctx *ginext.Context, req any) bool {
	if err := ctx.ShouldBind(req); err != nil {
		s.log.Warn().Err(err).Str("path", ctx.FullPath()).Msg("failed to parse request")
		dto.BadResponseError(ctx, dto.FieldBadFormat, "Invalid request format")
		return false
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		s.log.Debug().Str("path", ctx.FullPath()).Msgf("validation failed: %v", verr)
		dto.BadResponseError(ctx, dto.FieldIncorrect, verr.Error())
		return false
	}
	return true
}

// fail writes err as a response. Classified errors are shown to the user;
// anything else is logged and hidden behind a generic 500.
func (s *service) fail(ctx *ginext.Context, err error) {
	e, ok := apperr.As(err)
	if !ok {
		ev := s.log.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			ev = s.log.Warn()
		}
		ev.Err(err).
			Str("method", ctx.Request.Method).
			Str("path", ctx.Request.URL.Path).
			Msg("request failed")
		dto.InternalServerError(ctx)
		return
	}

	switch e.Kind {
	case apperr.KindValidation:
		dto.BadResponseError(ctx, dto.FieldIncorrect, e.Msg)
	case apperr.KindConflict:
		dto.ConflictError(ctx, e.Msg)
	case apperr.KindState:
		dto.ErrorResponse(ctx, http.StatusConflict, dto.StateError, e.Msg)
	case apperr.KindAuth:
		if school := ctx.Param("school"); school != "" && ctx.Request.Method == http.MethodGet {
			dto.Redirect(ctx, campus.LoginPath(school))
			return
		}
		dto.UnauthorizedError(ctx, e.Msg)
	case apperr.KindForbidden:
		dto.ForbiddenError(ctx, e.Msg)
	case apperr.KindNotFound:
		if e.Redirect != "" {
			dto.Redirect(ctx, e.Redirect)
			return
		}
		dto.NotFoundError(ctx, e.Msg)
	default:
		dto.InternalServerError(ctx)
	}
}

// pathID parses a numeric path parameter. A malformed id is treated like a
// missing resource under the school.
func pathID(ctx *ginext.Context, name, msg string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.NotFound(msg, campus.SchoolPath(ctx.Param("school")))
	}
	return id, nil
}

func (s *service) Health(ctx *ginext.Context) {
	if err := s.campus.Ping(ctx.Request.Context()); err != nil {
		s.log.Error().Err(err).Msg("health check failed")
		dto.InternalServerError(ctx)
		return
	}
	dto.SuccessResponse(ctx, dto.HealthResponse{Status: "up", Time: time.Now().UTC()})
}
