package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"classattend/internal/attendance"
	"classattend/internal/auth"
	"classattend/internal/httpmiddleware"
	"classattend/internal/queue"
	"classattend/internal/roster"
)

// Accounts persists teacher profiles and refresh tokens.
type Accounts interface {
	UpsertTeacher(ctx context.Context, t auth.Teacher) error
	GetTeacher(ctx context.Context, id string) (auth.Teacher, error)
	SaveRefreshToken(ctx context.Context, teacherID, token string, expiresAt time.Time) error
	RevokeRefreshToken(ctx context.Context, token string) (string, error)
}

// TokenConfig controls issued JWTs.
type TokenConfig struct {
	Issuer     string
	SigningKey string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Deps are the collaborators of a Handler. Queue, Limiter and Health are
// optional; a zero SessionTTL uses DefaultSessionTTL.
type Deps struct {
	Service    *attendance.Service
	Roster     roster.Directory
	Accounts   Accounts
	Broker     *auth.Broker
	Queue      queue.Queue
	Limiter    httpmiddleware.Limiter
	Tokens     TokenConfig
	SessionTTL time.Duration
	Health     map[string]func(context.Context) bool
	Logger     zerolog.Logger
}

// Handler serves the attendance API.
type Handler struct {
	svc      *attendance.Service
	roster   roster.Directory
	accounts Accounts
	broker   *auth.Broker
	registry *Registry
	queue    queue.Queue
	limiter  httpmiddleware.Limiter
	tokens   TokenConfig
	health   map[string]func(context.Context) bool
	log      zerolog.Logger
}

// New builds a handler and its session registry.
func New(d Deps) *Handler {
	return &Handler{
		svc:      d.Service,
		roster:   d.Roster,
		accounts: d.Accounts,
		broker:   d.Broker,
		registry: NewRegistry(d.Service, d.Broker, d.SessionTTL),
		queue:    d.Queue,
		limiter:  d.Limiter,
		tokens:   d.Tokens,
		health:   d.Health,
		log:      d.Logger.With().Str("component", "http").Logger(),
	}
}

// Registry exposes the draft sessions.
func (h *Handler) Registry() *Registry { return h.registry }

// Close releases the registry subscription.
func (h *Handler) Close() { h.registry.Close() }

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.healthz)

	public := r.Group("/v1/auth")
	if h.limiter != nil {
		public.Use(httpmiddleware.RateLimit(h.limiter, h.log))
	}
	public.POST("/token", h.issueToken)
	public.POST("/logout", h.logout)

	v1 := r.Group("/v1", auth.TeacherAuth(h.tokens.SigningKey, h.tokens.Issuer))
	if h.limiter != nil {
		v1.Use(httpmiddleware.RateLimit(h.limiter, h.log))
	}

	v1.GET("/me", h.getProfile)
	v1.PUT("/me", h.updateProfile)

	class := v1.Group("/classes/:classId")
	class.GET("/roster", h.listRoster)
	class.PUT("/roster/:studentId", h.enrollStudent)
	class.DELETE("/roster/:studentId", h.deactivateStudent)

	class.GET("/attendance", h.getAttendance)
	class.POST("/attendance", h.commitAttendance)
	class.GET("/history", h.getHistory)
	class.GET("/statistics", h.getStatistics)

	class.GET("/draft", h.getDraft)
	class.DELETE("/draft", h.discardDraft)
	class.PUT("/draft/date", h.selectDraftDate)
	class.PUT("/draft/students/:studentId", h.editDraftEntry)
	class.POST("/draft/commit", h.commitDraft)
}

func (h *Handler) healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range h.health {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// teacherID is the subject of the verified token.
func teacherID(c *gin.Context) string {
	claims, _ := auth.ClaimsFrom(c)
	return claims.Subject
}
