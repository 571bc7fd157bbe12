// Package classifier defines the classification capability consumed by the
// analysis endpoint and the in-process backends that implement it.
package classifier

import (
	"context"
	"errors"
)

// Labels reported by the bundled backends. Remote backends may return others.
const (
	LabelTumor   = "Tumor Detected"
	LabelNoTumor = "No Tumor Detected"
)

// ErrUndecodableImage is returned when the payload is not a readable image.
var ErrUndecodableImage = errors.New("image could not be decoded")

// ErrBlankImage is returned for a scan with no contrast to classify.
var ErrBlankImage = errors.New("image has no contrast")

// Image is the raw upload handed to a classifier.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Result is the outcome reported by a classifier.
type Result struct {
	Label      string
	Confidence float64
	TumorType  string
	IsHealthy  bool
}

// Classifier maps image bytes to a label, confidence and tumor type.
type Classifier interface {
	Classify(ctx context.Context, img Image) (*Result, error)
}

// Func adapts a plain function to the Classifier interface.
type Func func(ctx context.Context, img Image) (*Result, error)

func (f Func) Classify(ctx context.Context, img Image) (*Result, error) {
	return f(ctx, img)
}
