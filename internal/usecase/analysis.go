package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/tumor-check/internal/classifier"
	"github.com/example/tumor-check/internal/logging"
	"github.com/example/tumor-check/internal/protocol"
)

var (
	// ErrClassificationFailed wraps any failure raised by the classifier.
	ErrClassificationFailed = errors.New("classification failed")
	// ErrInvalidResult marks a classifier result that breaks the response invariants.
	ErrInvalidResult = errors.New("invalid classification result")
)

// AnalysisUseCase runs one upload through the classification capability.
type AnalysisUseCase struct {
	classifier classifier.Classifier
	logger     *zap.Logger
	timeout    time.Duration
	metrics    *Metrics
	now        func() time.Time
}

// NewAnalysisUseCase builds the use case. A zero timeout leaves the
// classifier bounded only by the caller's context.
func NewAnalysisUseCase(c classifier.Classifier, timeout time.Duration, logger *zap.Logger) *AnalysisUseCase {
	return &AnalysisUseCase{
		classifier: c,
		logger:     logger.Named("analysis_usecase"),
		timeout:    timeout,
		metrics:    &Metrics{},
		now:        time.Now,
	}
}

// Analyze classifies the upload and maps the outcome onto the response
// schema. requestID is used for logging; an empty id is replaced.
func (uc *AnalysisUseCase) Analyze(ctx context.Context, requestID string, upload protocol.Upload) (*protocol.AnalysisResult, error) {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	opLogger := logging.WithOperation(uc.logger, "usecase.analyze", requestID)
	started := uc.now()

	if uc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	res, err := uc.classify(ctx, upload)
	if err != nil {
		wrapped := logging.NewOperationError("usecase.classify", requestID, fmt.Errorf("%w: %w", ErrClassificationFailed, err))
		opLogger.Error("classification failed", zap.Error(wrapped), zap.String("filename", upload.Filename))
		uc.metrics.recordFailure(uc.now().Sub(started))
		return nil, wrapped
	}

	out := &protocol.AnalysisResult{
		Result:     res.Label,
		Confidence: res.Confidence,
		TumorType:  res.TumorType,
		IsHealthy:  res.IsHealthy,
	}
	if out.IsHealthy {
		out.TumorType = ""
	}
	if err := out.Validate(); err != nil {
		wrapped := logging.NewOperationError("usecase.validate_result", requestID, fmt.Errorf("%w: %w", ErrInvalidResult, err))
		opLogger.Error("classifier returned an invalid result", zap.Error(wrapped))
		uc.metrics.recordFailure(uc.now().Sub(started))
		return nil, wrapped
	}

	elapsed := uc.now().Sub(started)
	uc.metrics.recordSuccess(out, elapsed)
	opLogger.Info("analysis complete",
		zap.String("result", out.Result),
		zap.Float64("confidence", out.Confidence),
		zap.Bool("is_healthy", out.IsHealthy),
		zap.Duration("latency", elapsed),
	)
	return out, nil
}

// classify calls the classifier, turning a panic into an error.
func (uc *AnalysisUseCase) classify(ctx context.Context, upload protocol.Upload) (res *classifier.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("classifier panicked: %v", r)
		}
	}()

	res, err = uc.classifier.Classify(ctx, classifier.Image{
		Filename:    upload.Filename,
		ContentType: upload.ContentType,
		Data:        upload.Data,
	})
	if err == nil && res == nil {
		err = errors.New("classifier returned no result")
	}
	return res, err
}
