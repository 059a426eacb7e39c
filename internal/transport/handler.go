package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anime-shed/receipt-inspector-go/internal/config"
	apperrors "github.com/anime-shed/receipt-inspector-go/internal/errors"
	"github.com/anime-shed/receipt-inspector-go/internal/logger"
	"github.com/anime-shed/receipt-inspector-go/internal/observer"
	"github.com/anime-shed/receipt-inspector-go/internal/service"
	"github.com/anime-shed/receipt-inspector-go/internal/storage"
	"github.com/anime-shed/receipt-inspector-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const uploadField = "image"

// StatsProvider exposes assessment counters
type StatsProvider interface {
	Snapshot() observer.Stats
}

func NewHandler(svc service.AssessmentService, stats StatsProvider, cfg *config.Config) http.Handler {
	r := gin.New()

	// Add middleware
	r.Use(
		gin.Recovery(),
		requestLogger(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck)

	v1 := r.Group("/v1")
	{
		v1.POST("/assessments", assessImage(svc, cfg))
		v1.POST("/assessments/upload", assessUpload(svc, cfg))
		v1.POST("/assessments/batch", assessBatch(svc, cfg))
		v1.GET("/assessments", listAssessments(svc))
		v1.GET("/assessments/:id", getAssessment(svc))
		v1.GET("/stats", getStats(stats))
	}

	return r
}

func assessImage(svc service.AssessmentService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		var req models.AssessRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, bindStatus(err), "invalid request format", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"url":     req.URL,
			"run_ocr": req.RunOCR,
		}).Debug("Assessing image")

		assessment, err := svc.AssessImage(ctx, req)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "assessment failed", err)
			return
		}

		c.JSON(http.StatusOK, assessment)
	}
}

func assessUpload(svc service.AssessmentService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		fileHeader, err := c.FormFile(uploadField)
		if err != nil {
			respondError(c, bindStatus(err), "multipart field \""+uploadField+"\" is required", err)
			return
		}

		opts, err := uploadOptions(c)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid form field", err)
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, "cannot read upload", err)
			return
		}
		defer file.Close()

		img, format, err := storage.DecodeImage(file, cfg.MaxPixels)
		if errors.Is(err, storage.ErrImageTooLarge) {
			respondError(c, http.StatusBadRequest, "image too large", err)
			return
		}
		if err != nil {
			respondError(c, http.StatusUnprocessableEntity, "image could not be decoded", err)
			return
		}
		opts.Format = format

		assessment, err := svc.AssessUpload(ctx, img, opts)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "assessment failed", err)
			return
		}

		c.JSON(http.StatusOK, assessment)
	}
}

func uploadOptions(c *gin.Context) (service.UploadOptions, error) {
	opts := service.UploadOptions{ExpectedText: c.PostForm("expected_text")}

	if v := strings.TrimSpace(c.PostForm("scale")); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, fmt.Errorf("scale: %w", err)
		}
		opts.Scale = scale
	}
	if v := strings.TrimSpace(c.PostForm("run_ocr")); v != "" {
		runOCR, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("run_ocr: %w", err)
		}
		opts.RunOCR = runOCR
	}
	return opts, nil
}

func assessBatch(svc service.AssessmentService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		var req models.BatchAssessRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, bindStatus(err), "invalid request format", err)
			return
		}

		resp, err := svc.AssessBatch(ctx, req.Items)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "batch assessment failed", err)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

func getAssessment(svc service.AssessmentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		assessment, err := svc.GetAssessment(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "lookup failed", err)
			return
		}
		c.JSON(http.StatusOK, assessment)
	}
}

func listAssessments(svc service.AssessmentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				respondError(c, http.StatusBadRequest, "invalid limit", fmt.Errorf("limit %q", v))
				return
			}
			limit = n
		}

		list, err := svc.ListAssessments(c.Request.Context(), c.Query("source"), limit)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "listing failed", err)
			return
		}
		c.JSON(http.StatusOK, models.AssessmentList{Assessments: list, Count: len(list)})
	}
}

func getStats(stats StatsProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, stats.Snapshot())
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("Request completed")
			return
		}
		entry.Info("Request completed")
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, apperrors.GetStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

// bindStatus maps body decoding failures; oversized bodies get 413
func bindStatus(err error) int {
	if appErr := apperrors.Classify(err); appErr.Type == apperrors.ErrorTypeTooLarge {
		return appErr.StatusCode
	}
	return http.StatusBadRequest
}

func respondError(c *gin.Context, code int, message string, err error) {
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
