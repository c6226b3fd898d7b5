// Package httpapi serves the small HTTP surface reminder action buttons
// point at.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ngrabbs/schedule-manager/internal/repository"
	"github.com/ngrabbs/schedule-manager/internal/service"
)

const snoozeInterval = 15 * time.Minute

// Server exposes task actions over HTTP: the "Done" and "Snooze" buttons on
// reminder notifications call these endpoints.
type Server struct {
	tasks *service.TaskService
	http  *http.Server
	log   *zap.SugaredLogger
}

func NewServer(addr string, tasks *service.TaskService, log *zap.SugaredLogger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		tasks: tasks,
		http:  &http.Server{Addr: addr, Handler: router},
		log:   log,
	}

	router.GET("/healthz", s.health)
	api := router.Group("/api/tasks")
	api.POST("/:id/complete", s.complete)
	api.POST("/:id/snooze", s.snooze)

	return s
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.log.Infow("http api listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) complete(c *gin.Context) {
	taskID, ok := s.taskID(c)
	if !ok {
		return
	}

	task, err := s.tasks.Complete(c.Request.Context(), taskID)
	if err != nil {
		s.taskError(c, taskID, err)
		return
	}
	s.log.Infow("task completed via api", "task_id", taskID)
	c.JSON(http.StatusOK, gin.H{"message": "completed", "task_id": task.ID})
}

func (s *Server) snooze(c *gin.Context) {
	taskID, ok := s.taskID(c)
	if !ok {
		return
	}

	task, err := s.tasks.Get(c.Request.Context(), taskID)
	if err != nil {
		s.taskError(c, taskID, err)
		return
	}
	if task.ScheduledTime == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "task has no schedule time"})
		return
	}

	newTime := task.ScheduledTime.Add(snoozeInterval)
	if _, err := s.tasks.RescheduleAt(c.Request.Context(), taskID, newTime); err != nil {
		s.taskError(c, taskID, err)
		return
	}
	s.log.Infow("task snoozed via api", "task_id", taskID, "until", newTime)
	c.JSON(http.StatusOK, gin.H{"message": "snoozed", "task_id": taskID, "scheduled_time": newTime})
}

func (s *Server) taskID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return 0, false
	}
	return uint(id), true
}

func (s *Server) taskError(c *gin.Context, taskID uint, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	s.log.Errorw("task action failed", "task_id", taskID, "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
