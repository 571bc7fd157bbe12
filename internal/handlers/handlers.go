package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/tumor-check/internal/logging"
	"github.com/example/tumor-check/internal/protocol"
	"github.com/example/tumor-check/internal/usecase"
)

// MaxUploadSize is the default cap on the uploaded image, in bytes.
const MaxUploadSize = 10 << 20

// multipartOverhead is the slack allowed on top of the file for boundaries
// and part headers.
const multipartOverhead = 64 << 10

// AnalysisService is what the routes need from the use case layer.
type AnalysisService interface {
	Analyze(ctx context.Context, requestID string, upload protocol.Upload) (*protocol.AnalysisResult, error)
	GetMetricsSummary() *usecase.MetricsSummary
}

type analyzeHandler struct {
	svc       AnalysisService
	maxUpload int64
	logger    *zap.Logger
}

// RegisterRoutes wires the HTTP handlers to the Gin router. A non-positive
// maxUpload falls back to MaxUploadSize.
func RegisterRoutes(router *gin.Engine, svc AnalysisService, maxUpload int64, logger *zap.Logger) {
	if maxUpload <= 0 {
		maxUpload = MaxUploadSize
	}
	h := &analyzeHandler{svc: svc, maxUpload: maxUpload, logger: logger.Named("handlers")}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.GetMetricsSummary())
	})
	router.POST(protocol.AnalyzePath, h.analyze)
}

func (h *analyzeHandler) analyze(c *gin.Context) {
	requestID, _ := GetRequestID(c.Request.Context())
	opLogger := logging.WithOperation(h.logger, "handlers.analyze", requestID)

	if c.Request.ContentLength > h.maxUpload+multipartOverhead {
		respondError(c, http.StatusRequestEntityTooLarge, protocol.MsgFileTooLarge)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+multipartOverhead)

	file, err := c.FormFile(protocol.FileField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, protocol.MsgFileTooLarge)
			return
		}
		if errors.Is(err, http.ErrMissingFile) {
			respondError(c, http.StatusBadRequest, protocol.MsgNoFile)
			return
		}
		opLogger.Warn("failed to parse multipart form", zap.Error(err))
		respondError(c, http.StatusInternalServerError, protocol.MsgInternal)
		return
	}
	if file.Size == 0 {
		respondError(c, http.StatusBadRequest, protocol.MsgNoFile)
		return
	}
	if file.Size > h.maxUpload {
		respondError(c, http.StatusRequestEntityTooLarge, protocol.MsgFileTooLarge)
		return
	}

	src, err := file.Open()
	if err != nil {
		opLogger.Error("failed to open upload", zap.Error(err))
		respondError(c, http.StatusInternalServerError, protocol.MsgInternal)
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		opLogger.Error("failed to read upload", zap.Error(err))
		respondError(c, http.StatusInternalServerError, protocol.MsgInternal)
		return
	}

	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		opLogger.Info("rejected upload", zap.String("detected_type", detected.String()), zap.String("filename", file.Filename))
		respondError(c, http.StatusUnsupportedMediaType, protocol.MsgUnsupportedType)
		return
	}

	contentType := file.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = detected.String()
	}

	result, err := h.svc.Analyze(c.Request.Context(), requestID, protocol.Upload{
		Filename:    file.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		// the use case has already logged the cause
		respondError(c, http.StatusInternalServerError, protocol.MsgInternal)
		return
	}

	c.JSON(http.StatusOK, result)
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, protocol.ErrorResponse{Error: message})
}
