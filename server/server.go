package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ahmedelsayed5113/sells-project-1/storage"
	"github.com/ahmedelsayed5113/sells-project-1/syncer"
	"github.com/ahmedelsayed5113/sells-project-1/utils"
)

// Trigger is the sync surface the HTTP API needs: fire a cycle and report
// cycle status.
type Trigger interface {
	TriggerAsync() error
	Status() syncer.StatusView
}

// Server exposes the read, admin and trigger endpoints over HTTP.
type Server struct {
	reader  storage.UnitReader
	admin   storage.AdminStore
	trigger Trigger
	logger  *utils.Logger
	engine  *gin.Engine
}

// New builds the server and registers all routes.
func New(reader storage.UnitReader, admin storage.AdminStore, trigger Trigger, logger *utils.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		reader:  reader,
		admin:   admin,
		trigger: trigger,
		logger:  logger,
		engine:  gin.New(),
	}
	s.engine.Use(gin.Recovery())

	api := s.engine.Group("/api")
	api.GET("/units", s.listUnits)
	api.GET("/stats", s.stats)
	api.GET("/sync/status", s.syncStatus)
	api.POST("/sync", s.startSync)
	api.POST("/admin/reset-sold", s.resetSold)

	return s
}

// Run blocks serving HTTP on the given address.
func (s *Server) Run(addr string) error {
	s.logger.Info("[server] listening on %s", addr)
	return s.engine.Run(addr)
}

// Handler exposes the underlying handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) listUnits(c *gin.Context) {
	order := c.DefaultQuery("order", "price")
	units, err := s.reader.List(c.Request.Context(), order)
	if err != nil {
		s.logger.Error("[server] list units: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, units)
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.reader.Stats(c.Request.Context())
	if err != nil {
		s.logger.Error("[server] stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) syncStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.trigger.Status())
}

func (s *Server) startSync(c *gin.Context) {
	if err := s.trigger.TriggerAsync(); err != nil {
		if errors.Is(err, syncer.ErrCycleRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": "sync cycle already running"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (s *Server) resetSold(c *gin.Context) {
	n, err := s.admin.ResetSoldFlags(c.Request.Context())
	if err != nil {
		s.logger.Error("[server] reset sold flags: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.logger.Info("[server] sold flags reset on %d units", n)
	c.JSON(http.StatusOK, gin.H{"reset": n})
}
