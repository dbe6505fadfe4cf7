// Package api exposes the admission services over HTTP with gin.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nonsonwune/admission_cycle/auth"
	"github.com/nonsonwune/admission_cycle/config"
	"github.com/nonsonwune/admission_cycle/importer"
	"github.com/nonsonwune/admission_cycle/metrics"
	"github.com/nonsonwune/admission_cycle/query"
	"github.com/nonsonwune/admission_cycle/store"
)

// Server holds the collaborators shared by the handlers.
type Server struct {
	cfg      *config.Config
	store    *store.Store
	importer *importer.DataImporter
	query    *query.Service
	gate     *auth.Gate
	metrics  *metrics.Metrics
}

// NewServer wires the handlers. m may be nil, in which case /metrics is not
// served.
func NewServer(cfg *config.Config, s *store.Store, imp *importer.DataImporter, q *query.Service, gate *auth.Gate, m *metrics.Metrics) *Server {
	return &Server{cfg: cfg, store: s, importer: imp, query: q, gate: gate, metrics: m}
}

// Router builds the gin engine with every route.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = s.cfg.MaxUploadBytes

	if s.metrics != nil {
		r.Use(s.metrics.Middleware())
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", s.health)

	public := r.Group("/api")
	{
		public.POST("/register", s.register)
		public.POST("/login", s.login)
		public.POST("/logout", s.logout)
	}

	protected := r.Group("/")
	protected.Use(s.AuthMiddleware())
	{
		protected.GET("/data/:table", s.readTable)
		protected.POST("/update/:table", s.updateTable)
		protected.POST("/validate/:table", s.validateTable)

		protected.GET("/api/stats", s.stats)
		protected.GET("/api/fees", s.fees)
		protected.GET("/api/students", s.students)
		protected.GET("/api/iterations", s.iterations)
		protected.GET("/api/iteration-count", s.iterationCount)
		protected.GET("/api/uploads", s.archivedUpload)
		protected.POST("/api/withdraw/student", s.withdrawStudent)
		protected.POST("/api/withdraw/upload", s.withdrawUpload)
		protected.GET("/api/validate-token", s.validateToken)
		protected.GET("/api/user", s.user)
	}
	return r
}

func (s *Server) health(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.logError("health check", "", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
