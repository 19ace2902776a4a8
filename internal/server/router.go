package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/calendar"
	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/entries"
	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/medications"
	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/metrics"
	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/pain"
	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/reminders"
	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/stats"
)

const (
	userIDContextKey = "frogsy_user_id"
	// TriggerHeader carries the shared secret of the external cron trigger.
	TriggerHeader = "X-Frogsy-Trigger"
)

var (
	errMissingAccessValidator = errors.New("access validator dependency required")
	errMissingEntriesService  = errors.New("entries service dependency required")
	errMissingMedications     = errors.New("medications service dependency required")
	errMissingReminders       = errors.New("reminders service dependency required")
	errInvalidAuthorization   = errors.New("authorization missing or invalid")
)

// AccessValidator authenticates a request and returns the token claims.
type AccessValidator interface {
	ValidateRequest(r *http.Request) (auth.AccessClaims, error)
}

// TickTrigger runs one reminder tick for minute. It reports false when the
// minute was skipped because another tick holds it.
type TickTrigger interface {
	Tick(ctx context.Context, minute time.Time) (reminders.TickResult, bool, error)
}

type Dependencies struct {
	Validator   AccessValidator
	Entries     *entries.Service
	Medications *medications.Service
	Reminders   *reminders.Service
	// Ticks defaults to a scheduler over Reminders without a distributed lock.
	Ticks         TickTrigger
	Stats         *stats.Engine
	Realtime      *RealtimeDispatcher
	Metrics       *metrics.Recorder
	Location      *time.Location
	CORSOrigins   []string
	TriggerSecret string
	Clock         func() time.Time
	Logger        *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Validator == nil {
		return nil, errMissingAccessValidator
	}
	if deps.Entries == nil {
		return nil, errMissingEntriesService
	}
	if deps.Medications == nil {
		return nil, errMissingMedications
	}
	if deps.Reminders == nil {
		return nil, errMissingReminders
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	location := deps.Location
	if location == nil {
		location = deps.Reminders.Location()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	engine := deps.Stats
	if engine == nil {
		engine = stats.NewEngine(clock, location)
	}
	realtime := deps.Realtime
	if realtime == nil {
		realtime = NewRealtimeDispatcher()
	}
	ticks := deps.Ticks
	if ticks == nil {
		schedulerConfig := reminders.SchedulerConfig{
			Runner: deps.Reminders,
			Clock:  clock,
			Logger: logger,
		}
		if deps.Metrics != nil {
			schedulerConfig.Observer = deps.Metrics
		}
		scheduler, err := reminders.NewScheduler(schedulerConfig)
		if err != nil {
			return nil, err
		}
		ticks = scheduler
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
	}
	router.Use(corsMiddleware(deps.CORSOrigins...))

	handler := &httpHandler{
		validator:         deps.Validator,
		entries:           deps.Entries,
		medications:       deps.Medications,
		reminders:         deps.Reminders,
		ticks:             ticks,
		engine:            engine,
		realtime:          realtime,
		location:          location,
		triggerSecret:     strings.TrimSpace(deps.TriggerSecret),
		clock:             clock,
		heartbeatInterval: realtimeHeartbeatInterval,
		logger:            logger,
	}

	router.GET("/healthz", handler.handleHealth)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	router.POST("/internal/reminders/tick", handler.handleReminderTick)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.GET("/entries", handler.handleListEntries)
	protected.PUT("/entries/:date", handler.handleUpsertEntry)
	protected.GET("/stats", handler.handleStats)
	protected.GET("/trends", handler.handleTrends)
	protected.GET("/calendar", handler.handleHeatMap)
	protected.GET("/calendar/:year/:month", handler.handleMonth)
	protected.GET("/report", handler.handleReport)
	protected.GET("/notifications/preferences", handler.handleGetPreferences)
	protected.PUT("/notifications/preferences", handler.handleUpdatePreferences)
	protected.POST("/push/subscriptions", handler.handleRegisterSubscription)
	protected.DELETE("/push/subscriptions", handler.handleRemoveSubscription)
	protected.POST("/push/test", handler.handlePushTest)
	protected.GET("/medications", handler.handleListMedications)
	protected.POST("/medications", handler.handleCreateMedication)
	protected.GET("/medications/doses", handler.handleListDoses)
	protected.DELETE("/medications/:id", handler.handleArchiveMedication)
	protected.POST("/medications/:id/doses", handler.handleLogDose)
	protected.GET("/events", handler.handleEvents)

	return router, nil
}

func corsMiddleware(origins ...string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Last-Event-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

type httpHandler struct {
	validator         AccessValidator
	entries           *entries.Service
	medications       *medications.Service
	reminders         *reminders.Service
	ticks             TickTrigger
	engine            *stats.Engine
	realtime          *RealtimeDispatcher
	location          *time.Location
	triggerSecret     string
	clock             func() time.Time
	heartbeatInterval time.Duration
	logger            *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	claims, err := h.validator.ValidateRequest(c.Request)
	if err != nil {
		if errors.Is(err, auth.ErrMissingAccessToken) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
			return
		}
		if errors.Is(err, auth.ErrExpiredAccessToken) || errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, claims.Subject)
	c.Next()
}

func (h *httpHandler) currentUser(c *gin.Context) (pain.UserID, bool) {
	userID, err := pain.NewUserID(c.GetString(userIDContextKey))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return userID, true
}

func (h *httpHandler) handleReminderTick(c *gin.Context) {
	if h.triggerSecret == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	provided := c.GetHeader(TriggerHeader)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.triggerSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	result, ran, err := h.ticks.Tick(c.Request.Context(), h.clock())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ran": ran, "result": result})
}

// respondError maps domain sentinels to client errors and everything else to 500.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	status, reason := classifyError(err)
	body := gin.H{"error": reason}
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		body["code"] = coded.Code()
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("route", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, body)
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, pain.ErrInvalidLevel):
		return http.StatusBadRequest, "invalid_level"
	case errors.Is(err, pain.ErrInvalidDay):
		return http.StatusBadRequest, "invalid_date"
	case errors.Is(err, entries.ErrNoteTooLong):
		return http.StatusBadRequest, "note_too_long"
	case errors.Is(err, entries.ErrInvalidRange), errors.Is(err, calendar.ErrRangeReversed):
		return http.StatusBadRequest, "invalid_range"
	case errors.Is(err, calendar.ErrRangeTooLarge):
		return http.StatusBadRequest, "range_too_large"
	case errors.Is(err, entries.ErrFutureDate):
		return http.StatusUnprocessableEntity, "future_date"
	case errors.Is(err, reminders.ErrInvalidTime):
		return http.StatusBadRequest, "invalid_time"
	case errors.Is(err, reminders.ErrInvalidSubscription):
		return http.StatusBadRequest, "invalid_subscription"
	case errors.Is(err, medications.ErrInvalidMedication):
		return http.StatusBadRequest, "invalid_medication"
	case errors.Is(err, medications.ErrMedicationNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, medications.ErrMedicationArchived):
		return http.StatusConflict, "medication_archived"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
