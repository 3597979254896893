// Package httpapi is the operator surface: a gin router over the roster,
// leave, attendance, fee and reporting services.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"academy/internal/attendance"
	"academy/internal/cloudinary"
	"academy/internal/fees"
	"academy/internal/leave"
	"academy/internal/notify"
	"academy/internal/roster"
	"academy/internal/session"
)

// Archiver stores generated documents somewhere durable.
type Archiver interface {
	UploadDocument(ctx context.Context, data []byte, filename, publicID string) (*cloudinary.UploadResult, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Deps are the services the router talks to. Archive, Outbox, Limiter
// and Gatherer are optional.
type Deps struct {
	Academy    string
	Roster     *roster.Service
	Leaves     *leave.Service
	Attendance *attendance.Service
	Fees       *fees.Ledger
	Composer   *notify.Composer
	Outbox     *notify.Outbox
	Signer     *session.Signer
	Archive    Archiver
	Health     map[string]HealthCheck
	Limiter    gin.HandlerFunc
	Gatherer   prometheus.Gatherer
	Logger     *log.Logger
	Now        func() time.Time
}

// Server holds handler state.
type Server struct {
	Deps
}

// New creates a server.
func New(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Composer == nil {
		d.Composer = notify.NewComposer(d.Academy)
	}
	return &Server{Deps: d}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsCfg.MaxAge = 24 * time.Hour
	r.Use(cors.New(corsCfg))
	r.Use(securityHeaders())

	metricsHandler := promhttp.Handler()
	if s.Gatherer != nil {
		metricsHandler = promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})
	}
	r.GET("/metrics", gin.WrapH(metricsHandler))
	r.GET("/healthz", s.healthz)

	v1 := r.Group("/v1")
	if s.Limiter != nil {
		v1.Use(s.Limiter)
	}
	v1.GET("/batches", s.listBatches)
	v1.POST("/batches", s.addBatch)

	v1.GET("/students", s.listStudents)
	v1.POST("/students", s.addStudent)
	v1.PUT("/students/:id", s.updateStudent)
	v1.DELETE("/students/:id", s.deleteStudent)

	v1.POST("/leaves", s.recordLeave)
	v1.GET("/leaves", s.listLeaves)

	v1.GET("/attendance/subjects", s.listSubjects)
	v1.POST("/attendance/sessions", s.startSession)
	v1.POST("/attendance/sessions/submit", s.submitSession)
	v1.POST("/attendance/sessions/ack", s.acknowledgeSession)

	v1.GET("/analytics/students/:id", s.studentAnalytics)
	v1.GET("/analytics/batches/:batch", s.batchAnalytics)
	v1.GET("/reports/attendance", s.attendanceReport)

	v1.POST("/fees", s.recordFee)
	v1.GET("/fees", s.listFees)
	v1.GET("/fees/:receipt/receipt.pdf", s.receiptPDF)

	v1.POST("/notifications/compose", s.compose)
	return r
}

func (s *Server) healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range s.Health {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
