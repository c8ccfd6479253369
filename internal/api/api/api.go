package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"uconnect/cmd/middleware"
	"uconnect/internal/service"
	"uconnect/internal/session"
)

type Routers struct {
	Service        service.Service
	Sessions       *session.Manager
	Log            *zerolog.Logger
	RequestTimeout time.Duration
	// AllowOrigins enables credentialed CORS for these origins. Empty means
	// the permissive default without cookies.
	AllowOrigins []string
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware(r.Log))
	app.Use(corsMiddleware(r.AllowOrigins))
	if r.RequestTimeout > 0 {
		app.Use(middleware.Timeout(r.RequestTimeout))
	}
	app.Use(middleware.Session(r.Sessions, r.Log))

	app.GET("/healthz", r.Service.Health)

	app.GET("/", r.Service.Home)
	app.POST("/new", r.Service.CreateFounder)
	app.POST("/new/school", r.Service.CreateSchool)

	my := app.Group("/my/:school")
	my.GET("", r.Service.SchoolPage)
	my.POST("/signup", r.Service.Signup)
	my.POST("/login", r.Service.Login)
	my.POST("/logout", r.Service.Logout)

	my.GET("/event/new", r.Service.EventForm)
	my.POST("/event/new", r.Service.CreateEvent)
	my.GET("/event/:event", r.Service.EventPage)
	my.POST("/event/:event/comments", r.Service.AddComment)
	my.PUT("/event/:event/comments/:comment", r.Service.EditComment)
	my.DELETE("/event/:event/comments/:comment", r.Service.DeleteComment)
	my.POST("/event/:event/rating", r.Service.RateEvent)

	my.GET("/org/new", r.Service.OrganizationForm)
	my.POST("/org/new", r.Service.CreateOrganization)
	my.GET("/org/:org", r.Service.OrganizationPage)
	my.POST("/org/:org/join", r.Service.JoinOrganization)
	my.POST("/org/:org/leave", r.Service.LeaveOrganization)

	return app
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return cors.Default()
	}
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	cfg.AddAllowHeaders(middleware.RequestIDHeader)
	cfg.AddExposeHeaders(middleware.RequestIDHeader, "Location")
	return cors.New(cfg)
}
