package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/tumor-check/internal/classifier"
	"github.com/example/tumor-check/internal/logging"
	"github.com/example/tumor-check/internal/protocol"
)

type stubClassifier struct {
	result     *classifier.Result
	err        error
	panicValue interface{}
	calls      int
	seen       classifier.Image
	ctx        context.Context
}

func (s *stubClassifier) Classify(ctx context.Context, img classifier.Image) (*classifier.Result, error) {
	s.calls++
	s.seen = img
	s.ctx = ctx
	if s.panicValue != nil {
		panic(s.panicValue)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

var testUpload = protocol.Upload{Filename: "scan.png", ContentType: "image/png", Data: []byte("image")}

func TestAnalyzeReturnsClassifierResultUnchanged(t *testing.T) {
	stub := &stubClassifier{result: &classifier.Result{
		Label: "Tumor Detected", Confidence: 0.95, TumorType: "glioma", IsHealthy: false,
	}}
	uc := NewAnalysisUseCase(stub, time.Second, zap.NewNop())

	res, err := uc.Analyze(context.Background(), "req-1", testUpload)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	want := protocol.AnalysisResult{Result: "Tumor Detected", Confidence: 0.95, TumorType: "glioma", IsHealthy: false}
	if *res != want {
		t.Fatalf("expected %+v, got %+v", want, *res)
	}
	if stub.calls != 1 {
		t.Fatalf("expected one classifier call, got %d", stub.calls)
	}
	if stub.seen.Filename != "scan.png" || string(stub.seen.Data) != "image" {
		t.Fatalf("classifier saw unexpected image %+v", stub.seen)
	}
	if _, ok := stub.ctx.Deadline(); !ok {
		t.Fatal("expected classifier context to carry the configured timeout")
	}
}

func TestAnalyzeClearsTumorTypeWhenHealthy(t *testing.T) {
	stub := &stubClassifier{result: &classifier.Result{
		Label: "No Tumor Detected", Confidence: 0.9, TumorType: "leftover", IsHealthy: true,
	}}
	uc := NewAnalysisUseCase(stub, 0, zap.NewNop())

	res, err := uc.Analyze(context.Background(), "", testUpload)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if res.TumorType != "" {
		t.Fatalf("expected empty tumor type, got %q", res.TumorType)
	}
}

func TestAnalyzeWrapsClassifierFailure(t *testing.T) {
	cause := errors.New("model crashed")
	uc := NewAnalysisUseCase(&stubClassifier{err: cause}, 0, zap.NewNop())

	_, err := uc.Analyze(context.Background(), "req-2", testUpload)
	if !errors.Is(err, ErrClassificationFailed) {
		t.Fatalf("expected ErrClassificationFailed, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
	var opErr *logging.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %T", err)
	}
	if opErr.Operation != "usecase.classify" || opErr.RequestID != "req-2" {
		t.Fatalf("unexpected operation error %+v", opErr)
	}
}

func TestAnalyzeRecoversClassifierPanic(t *testing.T) {
	uc := NewAnalysisUseCase(&stubClassifier{panicValue: "index out of range"}, 0, zap.NewNop())

	_, err := uc.Analyze(context.Background(), "req-3", testUpload)
	if !errors.Is(err, ErrClassificationFailed) {
		t.Fatalf("expected ErrClassificationFailed, got %v", err)
	}
}

func TestAnalyzeRejectsNilResult(t *testing.T) {
	uc := NewAnalysisUseCase(&stubClassifier{}, 0, zap.NewNop())

	if _, err := uc.Analyze(context.Background(), "req-4", testUpload); !errors.Is(err, ErrClassificationFailed) {
		t.Fatalf("expected ErrClassificationFailed, got %v", err)
	}
}

func TestAnalyzeRejectsOutOfRangeConfidence(t *testing.T) {
	stub := &stubClassifier{result: &classifier.Result{Label: "Tumor Detected", Confidence: 1.5, TumorType: "glioma"}}
	uc := NewAnalysisUseCase(stub, 0, zap.NewNop())

	if _, err := uc.Analyze(context.Background(), "req-5", testUpload); !errors.Is(err, ErrInvalidResult) {
		t.Fatalf("expected ErrInvalidResult, got %v", err)
	}
}

func TestAnalyzeRejectsTumorWithoutType(t *testing.T) {
	stub := &stubClassifier{result: &classifier.Result{Label: "Tumor Detected", Confidence: 0.7}}
	uc := NewAnalysisUseCase(stub, 0, zap.NewNop())

	if _, err := uc.Analyze(context.Background(), "req-6", testUpload); !errors.Is(err, ErrInvalidResult) {
		t.Fatalf("expected ErrInvalidResult, got %v", err)
	}
}

func TestAnalyzeTimesOutSlowClassifier(t *testing.T) {
	uc := NewAnalysisUseCase(classifier.NewFixed(time.Minute), 10*time.Millisecond, zap.NewNop())

	_, err := uc.Analyze(context.Background(), "req-7", testUpload)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestMetricsSummaryCountsOutcomes(t *testing.T) {
	stub := &stubClassifier{result: &classifier.Result{Label: "Tumor Detected", Confidence: 0.8, TumorType: "glioma"}}
	uc := NewAnalysisUseCase(stub, 0, zap.NewNop())

	_, _ = uc.Analyze(context.Background(), "a", testUpload)
	stub.result = &classifier.Result{Label: "No Tumor Detected", Confidence: 0.6, IsHealthy: true}
	_, _ = uc.Analyze(context.Background(), "b", testUpload)
	stub.err = errors.New("boom")
	_, _ = uc.Analyze(context.Background(), "c", testUpload)

	s := uc.GetMetricsSummary()
	if s.TotalRequests != 3 || s.SuccessfulRequests != 2 || s.FailedRequests != 1 || s.TumorDetected != 1 {
		t.Fatalf("unexpected counters %+v", s)
	}
	if s.AverageConfidence < 0.6999 || s.AverageConfidence > 0.7001 {
		t.Fatalf("unexpected average confidence %v", s.AverageConfidence)
	}
	if s.SuccessRate < 0.666 || s.SuccessRate > 0.667 {
		t.Fatalf("unexpected success rate %v", s.SuccessRate)
	}
}
