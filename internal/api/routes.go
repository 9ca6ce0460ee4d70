package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"classsight/internal/attendance"
	"classsight/internal/auth"
	"classsight/internal/httpmiddleware"
	"classsight/internal/metrics"
)

// Options configures the router's middleware.
type Options struct {
	CORSOrigins []string
	// Limiter throttles requests per client IP; nil disables it.
	Limiter *httpmiddleware.TokenBucket
	// CamAuth puts the camera endpoints behind camera bearer tokens.
	CamAuth bool
}

// NewRouter builds the gin engine serving h.
func NewRouter(h *Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.AccessLog(h.log, "/healthz", "/metrics"))
	r.Use(metrics.GinMiddleware())
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))
	r.Use(securityHeaders())
	if opts.Limiter != nil {
		r.Use(opts.Limiter.GinMiddleware())
	}

	r.GET("/", h.Root)
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	devices := r.Group("/devices")
	{
		devices.POST("/register", h.RegisterDevice)
		devices.POST("/refresh", h.RefreshDevice)
	}

	teacher := r.Group("/teacher")
	{
		teacher.GET("/info", h.TeacherInfo)
		teacher.GET("/classes", h.Classes)
		teacher.GET("/class/students", h.ClassStudents)
		teacher.POST("/attendance/mark", h.MarkAttendance)
		teacher.POST("/attendance/revoke", h.RevokeAttendance)

		cams := teacher.Group("")
		if opts.CamAuth && h.issuer != nil {
			cams.Use(auth.RequireRole(h.issuer, auth.RoleCamera))
		}
		cams.POST("/cam1/add", h.CamEvent(attendance.Cam1))
		cams.POST("/cam2/add", h.CamEvent(attendance.Cam2))
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", httpmiddleware.RequestIDHeader},
		ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		// Reflect any origin; a literal "*" cannot be combined with credentials.
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
