// Package api exposes the detector over HTTP.
package api

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"fake-news-detector/detector"
	"fake-news-detector/model"
	"fake-news-detector/scraper"
	"fake-news-detector/web"
)

const (
	msgNotLoaded  = "Model not loaded. Please train the model first."
	msgNoData     = "No data provided"
	msgEmptyInput = "Please provide either title or text"
)

// Predictor classifies articles.
type Predictor interface {
	Predict(ctx context.Context, in detector.Input) (detector.Prediction, error)
	ModelLoaded() bool
	TokenizerLoaded() bool
	Info(ctx context.Context) (detector.Info, bool)
}

// HistoryLister lists recent predictions.
type HistoryLister interface {
	List() []model.HistoryEntry
	Len() int
}

// Fetcher downloads an article for URL predictions.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (scraper.Article, error)
}

// RunSource provides the latest training run.
type RunSource interface {
	LatestRun(ctx context.Context) (model.TrainingRun, bool, error)
}

// Server holds the HTTP handlers' dependencies.
type Server struct {
	Detector Predictor
	History  HistoryLister
	Fetcher  Fetcher
	Runs     RunSource
	Static   fs.FS
	Logger   *slog.Logger
	Now      func() time.Time
}

type predictRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Router builds the gin engine with all routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:   []string{"Content-Length"},
		MaxAge:          12 * time.Hour,
	}))

	apiGroup := router.Group("/api")
	apiGroup.POST("/predict", s.handlePredict)
	apiGroup.GET("/history", s.handleHistory)
	apiGroup.GET("/model-info", s.handleModelInfo)
	apiGroup.GET("/health", s.handleHealth)
	apiGroup.GET("/training-history", s.handleTrainingHistory)

	router.GET("/", s.handleIndex)
	router.NoRoute(s.handleStatic)
	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger().Info("http_request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

func (s *Server) handlePredict(c *gin.Context) {
	if !s.Detector.ModelLoaded() || !s.Detector.TokenizerLoaded() {
		fail(c, http.StatusServiceUnavailable, msgNotLoaded)
		return
	}

	var raw map[string]any
	if err := c.ShouldBindBodyWith(&raw, binding.JSON); err != nil || len(raw) == 0 {
		fail(c, http.StatusBadRequest, msgNoData)
		return
	}
	var req predictRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		s.logger().Debug("predict_bind_failed", slog.String("error", err.Error()))
		fail(c, http.StatusBadRequest, msgNoData)
		return
	}

	ctx := c.Request.Context()
	if req.Title == "" && req.Text == "" && strings.TrimSpace(req.URL) != "" {
		if s.Fetcher == nil {
			fail(c, http.StatusBadRequest, "URL fetching is not enabled")
			return
		}
		article, err := s.Fetcher.Fetch(ctx, req.URL)
		if err != nil {
			s.logger().Warn("article_fetch_failed", slog.String("url", req.URL), slog.String("error", err.Error()))
			fail(c, http.StatusBadGateway, "Failed to fetch article: "+err.Error())
			return
		}
		req.Title, req.Text = article.Title, article.Text
	}

	pred, err := s.Detector.Predict(ctx, detector.Input{Title: req.Title, Text: req.Text})
	switch {
	case err == nil:
	case errors.Is(err, detector.ErrNotLoaded):
		fail(c, http.StatusServiceUnavailable, msgNotLoaded)
		return
	case errors.Is(err, detector.ErrEmptyInput):
		fail(c, http.StatusBadRequest, msgEmptyInput)
		return
	default:
		s.logger().Error("prediction_failed", slog.String("error", err.Error()))
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"prediction": pred.Result,
		"preview":    pred.Preview,
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	entries := s.History.List()
	c.JSON(http.StatusOK, gin.H{
		"history": entries,
		"count":   len(entries),
	})
}

func (s *Server) handleModelInfo(c *gin.Context) {
	info, ok := s.Detector.Info(c.Request.Context())
	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"status":  "inactive",
			"message": "Model not loaded",
		})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"model_loaded":      s.Detector.ModelLoaded(),
		"tokenizer_loaded":  s.Detector.TokenizerLoaded(),
		"total_predictions": s.History.Len(),
		"timestamp":         s.now().Format(time.RFC3339),
	})
}

func (s *Server) handleTrainingHistory(c *gin.Context) {
	if s.Runs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No training history found"})
		return
	}
	run, ok, err := s.Runs.LatestRun(c.Request.Context())
	if err != nil {
		s.logger().Error("training_history_failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No training history found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleIndex(c *gin.Context) {
	if s.Static == nil {
		c.Status(http.StatusNotFound)
		return
	}
	data, err := fs.ReadFile(s.Static, web.IndexFile)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}

func (s *Server) handleStatic(c *gin.Context) {
	path := c.Request.URL.Path
	if strings.HasPrefix(path, "/api/") || s.Static == nil || c.Request.Method != http.MethodGet {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.FileFromFS(path, http.FS(s.Static))
}
