package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"darksky-monitor/internal/alert"
	"darksky-monitor/internal/checker"
	"darksky-monitor/internal/forecast"
	"darksky-monitor/internal/observability"
	"darksky-monitor/internal/service"
)

// Notifier status is only read for /health.
type connectionStatus interface {
	IsConnected() bool
	Enabled() bool
}

type Server struct {
	router  *gin.Engine
	server  *http.Server
	svc     *service.Service
	checker *checker.Checker
	mqtt    connectionStatus
	port    int
	logger  *slog.Logger
}

type ServerConfig struct {
	Port    int
	Service *service.Service
	Checker *checker.Checker
	MQTT    connectionStatus
	Logger  *slog.Logger
	// Metrics serves /metrics from this handler; nil uses the default registry.
	Metrics http.Handler
}

func NewServer(cfg ServerConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	logger := cfg.Logger
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	router.Use(requestLogger(logger))

	s := &Server{
		router:  router,
		svc:     cfg.Service,
		checker: cfg.Checker,
		mqtt:    cfg.MQTT,
		port:    cfg.Port,
		logger:  logger,
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	s.setupRoutes(metrics)
	return s
}

func (s *Server) setupRoutes(metrics http.Handler) {
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/metrics", gin.WrapH(metrics))

	api := s.router.Group("/api/v1")
	{
		api.GET("/profiles/:owner", s.listProfilesHandler)
		api.POST("/profiles/:owner", s.createProfileHandler)
		api.GET("/profiles/:owner/:name", s.getProfileHandler)
		api.DELETE("/profiles/:owner/:name", s.deleteProfileHandler)
		api.PUT("/profiles/:owner/:name/duration", s.setDurationHandler)
		api.PUT("/profiles/:owner/:name/thresholds/:attribute", s.setThresholdHandler)
		api.DELETE("/profiles/:owner/:name/thresholds/:attribute", s.removeThresholdHandler)
		api.GET("/profiles/:owner/:name/check", s.checkProfileHandler)

		api.POST("/check", s.checkAllHandler)
		api.GET("/forecast/:location", s.forecastHandler)
		api.GET("/options/:attribute", s.optionsHandler)
	}
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("API server starting", "port", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	resp := gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
	}
	if s.checker != nil {
		resp["checker_running"] = s.checker.IsRunning()
		if last := s.checker.LastRun(); last != nil {
			resp["last_run"] = last
		}
	}
	if s.mqtt != nil && s.mqtt.Enabled() {
		resp["mqtt_connected"] = s.mqtt.IsConnected()
	}
	c.JSON(http.StatusOK, resp)
}

// writeError maps service errors to HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidArgument), errors.Is(err, service.ErrInvalidLocation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrProfileNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrProfileExists):
		status = http.StatusConflict
	case errors.Is(err, service.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) listProfilesHandler(c *gin.Context) {
	profiles, err := s.svc.ListProfiles(c.Param("owner"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profiles)
}

type createProfileRequest struct {
	Name     string `json:"name" binding:"required"`
	Location string `json:"location" binding:"required"`
	Duration int    `json:"duration" binding:"min=0"`
}

func (s *Server) createProfileHandler(c *gin.Context) {
	var req createProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := s.svc.CreateProfile(c.Request.Context(), c.Param("owner"), req.Name, req.Location, req.Duration)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) getProfileHandler(c *gin.Context) {
	p, err := s.svc.GetProfile(c.Param("owner"), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	if c.Query("format") == "text" {
		c.String(http.StatusOK, p.Describe())
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) deleteProfileHandler(c *gin.Context) {
	deleted, err := s.svc.DeleteProfile(c.Param("owner"), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

type durationRequest struct {
	Hours *int `json:"hours" binding:"required,min=0"`
}

func (s *Server) setDurationHandler(c *gin.Context) {
	var req durationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := s.svc.SetProfileDuration(c.Param("owner"), c.Param("name"), *req.Hours)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type thresholdRequest struct {
	// Either the persisted form (number, ordinal, [min, max]) or a string
	// accepted by alert.ParseThreshold.
	Value json.RawMessage `json:"value" binding:"required"`
}

func (s *Server) setThresholdHandler(c *gin.Context) {
	attr, err := forecast.ParseAttribute(c.Param("attribute"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req thresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t, err := decodeThresholdValue(attr, req.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := s.svc.UpdateProfileAttribute(c.Param("owner"), c.Param("name"), t)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func decodeThresholdValue(attr forecast.Attribute, raw json.RawMessage) (alert.Threshold, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return alert.ParseThreshold(attr, text)
	}
	return alert.DecodeThreshold(attr, raw)
}

func (s *Server) removeThresholdHandler(c *gin.Context) {
	attr, err := forecast.ParseAttribute(c.Param("attribute"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := s.svc.RemoveProfileAttribute(c.Param("owner"), c.Param("name"), attr)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) checkProfileHandler(c *gin.Context) {
	res, err := s.svc.CheckProfile(c.Request.Context(), c.Param("owner"), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) checkAllHandler(c *gin.Context) {
	results, err := s.svc.CheckAllProfiles(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

type pointResponse struct {
	Time     time.Time         `json:"time"`
	Values   map[string]string `json:"values"`
	Darkness []float64         `json:"darkness,omitempty"`
}

type forecastResponse struct {
	Location  string          `json:"location"`
	Malformed int             `json:"malformed_cells"`
	Points    []pointResponse `json:"points"`
}

func (s *Server) forecastHandler(c *gin.Context) {
	series, err := s.svc.Forecast(c.Request.Context(), c.Param("location"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newForecastResponse(series))
}

func newForecastResponse(series *forecast.Series) forecastResponse {
	resp := forecastResponse{
		Location:  series.Location,
		Malformed: series.Malformed,
		Points:    make([]pointResponse, 0, series.Len()),
	}
	for _, pt := range series.Points() {
		pr := pointResponse{Time: pt.Time, Values: map[string]string{}, Darkness: pt.Darkness()}
		for _, attr := range forecast.Attributes {
			if v, ok := pt.Value(attr); ok {
				pr.Values[attr.Key()] = forecast.FormatValue(v)
			}
		}
		resp.Points = append(resp.Points, pr)
	}
	return resp
}

func (s *Server) optionsHandler(c *gin.Context) {
	attr, err := forecast.ParseAttribute(c.Param("attribute"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	opts, err := alert.ThresholdOptions(attr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, opts)
}
