package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"forecast-dashboard/dashboard"
	"forecast-dashboard/export"
	"forecast-dashboard/models"
	"forecast-dashboard/permalink"
	"forecast-dashboard/store"
)

// Options configure a Server
type Options struct {
	Port        int
	GinMode     string
	WaitTimeout time.Duration
}

// Server represents the API server
type Server struct {
	data        *store.DataStore
	sessions    *SessionManager
	permalinks  permalink.Store
	engine      *gin.Engine
	server      *http.Server
	waitTimeout time.Duration
	logger      zerolog.Logger
}

// NewServer creates a new API server
func NewServer(data *store.DataStore, sessions *SessionManager, permalinks permalink.Store, opts Options, logger zerolog.Logger) *Server {
	if opts.GinMode != "" {
		gin.SetMode(opts.GinMode)
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 2 * time.Second
	}

	engine := gin.New()
	logger = logger.With().Str("component", "api").Logger()
	engine.Use(gin.Recovery(), requestLogger(logger))

	server := &Server{
		data:        data,
		sessions:    sessions,
		permalinks:  permalinks,
		engine:      engine,
		waitTimeout: opts.WaitTimeout,
		logger:      logger,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", opts.Port),
			Handler: engine,
		},
	}

	api := engine.Group("/api")
	api.GET("/health", server.handleHealthCheck)
	api.GET("/locations", server.handleGetLocations)
	api.GET("/permalinks/:code", server.handleGetPermalink)

	group := api.Group("/sessions")
	group.POST("", server.handleCreateSession)
	group.GET("/:id", server.withSession(server.handleGetSession))
	group.DELETE("/:id", server.handleDeleteSession)
	group.GET("/:id/view", server.withSession(server.handleGetView))
	group.GET("/:id/map", server.withSession(server.handleGetMap))
	group.GET("/:id/models", server.withSession(server.handleGetModels))
	group.PATCH("/:id/settings", server.withSession(server.handlePatchSettings))
	group.POST("/:id/forecast-date/:dir", server.withSession(server.handleMoveForecastDate))
	group.GET("/:id/export.xlsx", server.withSession(server.handleExport))
	group.POST("/:id/permalinks", server.withSession(server.handleCreatePermalink))

	return server
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins the API server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("starting API server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// requestLogger logs every request with its status and latency
func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// withSession resolves the :id parameter before calling handler
func (s *Server) withSession(handler func(*gin.Context, *Session)) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := s.sessions.Get(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		handler(c, session)
	}
}

// handleHealthCheck provides a simple health check endpoint
func (s *Server) handleHealthCheck(c *gin.Context) {
	snapshot := s.data.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"ready":     snapshot.Complete(),
		"updated":   snapshot.Updated,
		"sessions":  len(s.sessions.IDs()),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleGetLocations lists the known locations, by name or with ?order=id by id
func (s *Server) handleGetLocations(c *gin.Context) {
	lookup := s.data.Snapshot().Locations
	if lookup == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "locations not loaded yet"})
		return
	}

	items := lookup.Items()
	if c.Query("order") == "id" {
		items = lookup.ItemsByID()
	}
	c.JSON(http.StatusOK, gin.H{
		"locations": items,
		"count":     len(items),
	})
}

type createSessionInput struct {
	Query string `json:"query"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var input createSessionInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	session := s.sessions.Create(input.Query)
	c.JSON(http.StatusCreated, gin.H{
		"id":    session.ID,
		"query": session.Dashboard.Query(),
	})
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if err := s.sessions.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// handleGetSession describes the resolved state without waiting for the view
func (s *Server) handleGetSession(c *gin.Context, session *Session) {
	d := session.Dashboard
	response := gin.H{
		"id":       session.ID,
		"created":  session.Created,
		"query":    d.Query(),
		"can_prev": d.CanExecPrev(),
		"can_next": d.CanExecNext(),
	}
	if filter, err := d.Filter(); err == nil {
		response["filter"] = filter
	}
	if settings, err := d.DisplaySettings(); err == nil {
		response["display_settings"] = settings
	}
	if available, err := d.AvailableDates(); err == nil {
		response["available_dates"] = available
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) handleGetView(c *gin.Context, session *Session) {
	view, err := s.waitView(c, session)
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleGetMap(c *gin.Context, session *Session) {
	d := session.Dashboard
	values, err := d.LocationValues()
	if err != nil {
		s.writeDashboardError(c, err)
		return
	}
	header, err := d.MapLegendHeader()
	if err != nil {
		s.writeDashboardError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"legend_header": header,
		"values":        values,
	})
}

func (s *Server) handleGetModels(c *gin.Context, session *Session) {
	d := session.Dashboard
	all, err := d.AllModelNames()
	if err != nil {
		s.writeDashboardError(c, err)
		return
	}
	visible, _ := d.VisibleModels()
	ensemble, _ := d.EnsembleModelNames()
	c.JSON(http.StatusOK, gin.H{
		"all":      all,
		"visible":  visible,
		"ensemble": ensemble,
	})
}

func (s *Server) handleMoveForecastDate(c *gin.Context, session *Session) {
	dir, ok := dashboard.ParseDirection(c.Param("dir"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid direction %q", c.Param("dir"))})
		return
	}

	d := session.Dashboard
	if !d.ChangeForecastDateByDir(dir) {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("no %s forecast date available", dir)})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"query":    d.Query(),
		"can_prev": d.CanExecPrev(),
		"can_next": d.CanExecNext(),
	})
}

func (s *Server) handleExport(c *gin.Context, session *Session) {
	view, err := s.waitView(c, session)
	if err != nil {
		return
	}
	visible, _ := session.Dashboard.VisibleModels()

	c.Header("Content-Disposition", `attachment; filename="forecasts.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := export.WriteWorkbook(c.Writer, view, visible); err != nil {
		s.logger.Error().Err(err).Str("session", session.ID).Msg("failed to export workbook")
	}
}

func (s *Server) handleCreatePermalink(c *gin.Context, session *Session) {
	p, err := s.permalinks.Save(c.Request.Context(), session.Dashboard.Query())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to save permalink")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save permalink"})
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) handleGetPermalink(c *gin.Context) {
	p, err := s.permalinks.Get(c.Request.Context(), c.Param("code"))
	if errors.Is(err, permalink.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to get permalink")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get permalink"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// waitView waits for the settled view, writing the error response on failure
func (s *Server) waitView(c *gin.Context, session *Session) (models.ChartDataView, error) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.waitTimeout)
	defer cancel()

	view, err := session.Dashboard.View(ctx)
	if err != nil {
		s.writeDashboardError(c, err)
		return view, err
	}
	return view, nil
}

// writeDashboardError maps a missing view to 503 and pipeline failures to 500
func (s *Server) writeDashboardError(c *gin.Context, err error) {
	if errors.Is(err, dashboard.ErrNoView) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("dashboard pipeline failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
