package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-portal-api/internal/middleware"
	"github.com/noah-isme/academy-portal-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth       *AuthHandler
	Enrollment *EnrollmentHandler
	Attendance *AttendanceHandler
	Email      *EmailHandler
	Sponsor    *SponsorHandler
	Volunteer  *VolunteerHandler
	Comment    *CommentHandler
	Metrics    *MetricsHandler
}

// RouterOptions carries the cross-cutting middleware dependencies.
type RouterOptions struct {
	Tokens        middleware.TokenValidator
	Audit         middleware.AuditWriter
	PublicLimiter *middleware.IPRateLimiter
	Logger        *zap.Logger
}

// RegisterRoutes mounts the public and admin API surface on api.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, opts RouterOptions) {
	limiter := opts.PublicLimiter
	if limiter == nil {
		limiter = middleware.NewIPRateLimiter(0, 0)
	}
	throttle := limiter.Middleware()

	authn := middleware.JWT(opts.Tokens)
	admin := []gin.HandlerFunc{authn, middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)}
	moderated := func(resource string, handler gin.HandlerFunc) []gin.HandlerFunc {
		chain := append([]gin.HandlerFunc{}, admin...)
		return append(chain, middleware.Audit(opts.Audit, opts.Logger, models.AuditActionModeration, resource), handler)
	}
	adminOnly := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, admin...), handler)
	}

	auth := api.Group("/auth")
	auth.POST("/login", throttle, h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", authn, h.Auth.Logout)
	auth.GET("/me", authn, h.Auth.Me)

	bootcamp := api.Group("/bootcamp")
	bootcamp.POST("", throttle, h.Enrollment.Apply)
	bootcamp.GET("/public", h.Enrollment.PublicLookup)
	bootcamp.GET("", adminOnly(h.Enrollment.List)...)
	bootcamp.PATCH("", adminOnly(h.Enrollment.UpdateStatus)...)
	bootcamp.GET("/export", adminOnly(h.Enrollment.Export)...)
	bootcamp.GET("/:id", adminOnly(h.Enrollment.Get)...)
	bootcamp.POST("/:id/email", adminOnly(h.Enrollment.SendStatusEmail)...)
	bootcamp.POST("/:id/offer-letter", adminOnly(h.Enrollment.GenerateOfferLetter)...)

	api.GET("/documents/offer-letters/:token", h.Enrollment.DownloadOfferLetter)

	attendance := api.Group("/attendance")
	attendance.GET("/public", h.Attendance.ListPublic)
	attendance.GET("/:id", h.Attendance.GetPublic)
	attendance.POST("/:id", throttle, h.Attendance.Submit)
	attendance.POST("", adminOnly(h.Attendance.CreateSession)...)
	attendance.GET("", adminOnly(h.Attendance.ListSessions)...)
	attendance.GET("/:id/responses", adminOnly(h.Attendance.ListResponses)...)
	attendance.GET("/:id/responses/export", adminOnly(h.Attendance.ExportResponses)...)
	attendance.POST("/:id/close", adminOnly(h.Attendance.CloseSession)...)

	// Role is checked by the campaign service so editors get 401 rather than 403.
	emails := api.Group("/emails", authn)
	emails.POST("/send-marketing", h.Email.SendMarketing)
	emails.POST("/preview", h.Email.Preview)
	emails.GET("/audience", h.Email.Audience)

	sponsors := api.Group("/sponsors")
	sponsors.POST("", throttle, h.Sponsor.Apply)
	sponsors.GET("", adminOnly(h.Sponsor.List)...)
	sponsors.PATCH("/:id", moderated("sponsors", h.Sponsor.UpdateStatus)...)
	sponsors.DELETE("/:id", moderated("sponsors", h.Sponsor.Delete)...)

	volunteers := api.Group("/volunteers")
	volunteers.POST("", throttle, h.Volunteer.Register)
	volunteers.GET("", adminOnly(h.Volunteer.List)...)
	volunteers.PATCH("/:id", moderated("volunteers", h.Volunteer.UpdateStatus)...)
	volunteers.DELETE("/:id", moderated("volunteers", h.Volunteer.Delete)...)

	comments := api.Group("/comments")
	comments.POST("", throttle, h.Comment.Create)
	comments.GET("", h.Comment.ListApproved)

	adminGroup := api.Group("/admin", admin...)
	adminGroup.GET("/comments", h.Comment.List)
	adminGroup.POST("/comments/:id/approve", middleware.Audit(opts.Audit, opts.Logger, models.AuditActionModeration, "comments"), h.Comment.Approve)
	adminGroup.DELETE("/comments/:id", middleware.Audit(opts.Audit, opts.Logger, models.AuditActionModeration, "comments"), h.Comment.Delete)
	if h.Metrics != nil {
		adminGroup.GET("/metrics", h.Metrics.Snapshot)
	}
}
