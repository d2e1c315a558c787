package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cuemby/hostkeeper/pkg/log"
	"github.com/cuemby/hostkeeper/pkg/metrics"
	"github.com/cuemby/hostkeeper/pkg/reconciler"
	"github.com/cuemby/hostkeeper/pkg/scheduler"
	"github.com/cuemby/hostkeeper/pkg/storage"
	"github.com/cuemby/hostkeeper/pkg/types"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ServerStore is the part of the store the API reads
type ServerStore interface {
	ListServers() ([]*types.Server, error)
	GetServer(id string) (*types.Server, error)
}

// CheckRunner runs an on-demand server check
type CheckRunner interface {
	RunNow(ctx context.Context, serverID string) (reconciler.Outcome, error)
}

// Server is the daemon's HTTP surface
type Server struct {
	store  ServerStore
	runner CheckRunner
	router *gin.Engine
	http   *http.Server
	logger zerolog.Logger
}

// NewServer builds the router
func NewServer(store ServerStore, runner CheckRunner) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		store:  store,
		runner: runner,
		router: gin.New(),
		logger: log.WithComponent("api"),
	}

	s.router.Use(gin.Recovery(), requestID(), accessLog(s.logger))

	s.router.GET("/health", gin.WrapF(metrics.HealthHandler()))
	s.router.GET("/ready", gin.WrapF(metrics.ReadyHandler()))
	s.router.GET("/live", gin.WrapF(metrics.LivenessHandler()))
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		servers := v1.Group("/servers")
		servers.GET("", s.listServers)
		servers.GET("/:id", s.getServer)
		servers.POST("/:id/check", s.checkServer)
	}
	return s
}

// Handler returns the router for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until Shutdown
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 90 * time.Second, // covers a synchronous check
		IdleTimeout:  60 * time.Second,
	}

	metrics.UpdateComponent(metrics.ComponentAPI, true, addr)
	s.logger.Info().Str("addr", addr).Msg("API listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		metrics.UpdateComponent(metrics.ComponentAPI, false, err.Error())
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) listServers(c *gin.Context) {
	servers, err := s.store.ListServers()
	if err != nil {
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", err)
		return
	}

	resp := make([]ServerResponse, 0, len(servers))
	for _, srv := range servers {
		resp = append(resp, NewServerResponse(srv))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getServer(c *gin.Context) {
	srv, err := s.store.GetServer(c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewServerResponse(srv))
}

func (s *Server) checkServer(c *gin.Context) {
	out, err := s.runner.RunNow(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, scheduler.ErrRunActive) {
			writeError(c, http.StatusConflict, "CHECK_IN_PROGRESS", err)
			return
		}
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOutcomeResponse(out))
}

func writeStoreError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(c, http.StatusNotFound, "SERVER_NOT_FOUND", err)
		return
	}
	writeError(c, http.StatusInternalServerError, "STORE_ERROR", err)
}

func writeError(c *gin.Context, status int, code string, err error) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": err.Error(),
		},
	})
}
