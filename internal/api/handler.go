package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"classsight/internal/attendance"
	"classsight/internal/auth"
	"classsight/internal/httpmiddleware"
	"classsight/internal/schedule"
	"classsight/internal/store"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	svc       *attendance.Service
	issuer    *auth.Issuer
	enrollKey string
	queue     HealthCheck
	log       zerolog.Logger
}

// NewHandler wires the teacher API. issuer may be nil when camera devices do
// not authenticate; queue may be nil when no event backend is configured.
func NewHandler(svc *attendance.Service, issuer *auth.Issuer, enrollKey string, queue HealthCheck, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, issuer: issuer, enrollKey: enrollKey, queue: queue, log: log}
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Teacher API running!"})
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbHealthy := h.svc.Healthy(ctx) == nil
	queueStatus := "disabled"
	if h.queue != nil {
		queueStatus = "ok"
		if err := h.queue(ctx); err != nil {
			queueStatus = "unavailable"
		}
	}
	status := http.StatusOK
	if !dbHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "db": dbHealthy, "queue": queueStatus})
}

// TeacherInfo handles GET /teacher/info?firebase_uid=.
func (h *Handler) TeacherInfo(c *gin.Context) {
	t, err := h.svc.Teacher(c.Request.Context(), c.Query("firebase_uid"))
	if err != nil {
		h.fail(c, "Teacher not found", err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Classes handles GET /teacher/classes?teacher_id=&fake_time=.
func (h *Handler) Classes(c *gin.Context) {
	teacherID, ok := h.intQuery(c, "teacher_id")
	if !ok {
		return
	}
	classes, err := h.svc.Classes(c.Request.Context(), teacherID, c.Query("fake_time"))
	if err != nil {
		h.fail(c, "", err)
		return
	}
	c.JSON(http.StatusOK, classes)
}

// ClassStudents handles GET /teacher/class/students?class_id=&date_str=.
func (h *Handler) ClassStudents(c *gin.Context) {
	classID, ok := h.intQuery(c, "class_id")
	if !ok {
		return
	}
	roster, err := h.svc.ClassStudents(c.Request.Context(), classID, c.Query("date_str"))
	if err != nil {
		h.fail(c, "Class not found", err)
		return
	}
	c.JSON(http.StatusOK, roster)
}

// CamEvent returns the handler for POST /teacher/camN/add.
func (h *Handler) CamEvent(cam attendance.Camera) gin.HandlerFunc {
	ack := "Recorded in " + map[attendance.Camera]string{attendance.Cam1: "CAM1", attendance.Cam2: "CAM2"}[cam]
	return func(c *gin.Context) {
		classID, ok := h.intQuery(c, "class_id")
		if !ok {
			return
		}
		usn := c.Query("student_usn")
		if usn == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "student_usn is required"})
			return
		}
		if claims, ok := c.Get(auth.ClaimsKey); ok {
			h.log.Debug().Str("device", claims.(auth.Claims).Subject).Str("camera", cam.String()).Msg("cam event")
		}
		if _, err := h.svc.RecordCamEvent(c.Request.Context(), cam, classID, usn); err != nil {
			h.fail(c, "", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"msg": ack})
	}
}

type markRequest struct {
	ClassID int64               `json:"class_id" binding:"required"`
	Records []attendance.Record `json:"records" binding:"required,dive"`
}

// MarkAttendance handles POST /teacher/attendance/mark.
func (h *Handler) MarkAttendance(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.SubmitAttendance(c.Request.Context(), req.ClassID, req.Records)
	if err != nil {
		h.fail(c, "", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RevokeAttendance handles POST /teacher/attendance/revoke?class_id=.
func (h *Handler) RevokeAttendance(c *gin.Context) {
	classID, ok := h.intQuery(c, "class_id")
	if !ok {
		return
	}
	if _, err := h.svc.RevokeAttendance(c.Request.Context(), classID); err != nil {
		h.fail(c, "", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Attendance revoked for today"})
}

// RegisterDevice handles POST /devices/register for camera devices.
func (h *Handler) RegisterDevice(c *gin.Context) {
	var req struct {
		DeviceID  string `json:"device_id" binding:"required"`
		EnrollKey string `json:"enroll_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.issuer == nil || h.enrollKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "device enrollment disabled"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.EnrollKey), []byte(h.enrollKey)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid enroll key"})
		return
	}

	tokens, err := h.issuer.Issue(req.DeviceID, auth.RoleCamera)
	if err != nil {
		h.log.Error().Err(err).Str("device_id", req.DeviceID).Msg("token issue failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	h.log.Info().Str("device_id", req.DeviceID).Msg("camera registered")
	c.JSON(http.StatusCreated, tokenResponse(tokens))
}

// RefreshDevice handles POST /devices/refresh.
func (h *Handler) RefreshDevice(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.issuer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "device enrollment disabled"})
		return
	}
	tokens, err := h.issuer.Refresh(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, tokenResponse(tokens))
}

func tokenResponse(tokens auth.TokenPair) gin.H {
	return gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	}
}

func (h *Handler) intQuery(c *gin.Context, name string) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " is required"})
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be an integer"})
		return 0, false
	}
	return v, true
}

// fail maps service errors onto responses. Store failures are logged with
// their cause and reported to the caller without it.
func (h *Handler) fail(c *gin.Context, notFound string, err error) {
	var verr attendance.ValidationError
	switch {
	case errors.Is(err, attendance.ErrNotFound):
		if notFound == "" {
			notFound = "Not found"
		}
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.Is(err, schedule.ErrInvalidFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	default:
		evt := h.log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Str("request_id", httpmiddleware.GetRequestID(c))
		if code := store.ErrorCode(err); code != "" {
			evt = evt.Str("sql_code", code)
		}
		evt.Msg("request failed")
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
