// Package protocol holds the wire contract between the submission client and
// the analysis endpoint.
package protocol

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	// AnalyzePath is the route that accepts uploads.
	AnalyzePath = "/analyze"
	// FileField is the multipart field carrying the image.
	FileField = "file"
)

// Error messages returned to callers. Internal detail never reaches these.
const (
	MsgNoFile          = "No file provided"
	MsgFileTooLarge    = "File too large"
	MsgUnsupportedType = "Unsupported file type"
	MsgInternal        = "Internal server error"

	// MsgAnalyzeFailed is what the client shows for any failed submission.
	MsgAnalyzeFailed = "Failed to analyze the image. Please try again."
)

// Upload is a selected file with its declared media type.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AnalysisResult is the 200 response body.
type AnalysisResult struct {
	Result     string  `json:"result"`
	Confidence float64 `json:"confidence"`
	TumorType  string  `json:"tumorType"`
	IsHealthy  bool    `json:"isHealthy"`
}

// Validate checks the invariants every result must satisfy before it is
// sent or rendered.
func (r *AnalysisResult) Validate() error {
	if r == nil {
		return errors.New("empty analysis result")
	}
	if math.IsNaN(r.Confidence) || r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", r.Confidence)
	}
	if !r.IsHealthy && strings.TrimSpace(r.TumorType) == "" {
		return fmt.Errorf("unhealthy result %q without tumor type", r.Result)
	}
	return nil
}

// ErrorResponse is the body of every non-200 response.
type ErrorResponse struct {
	Error string `json:"error"`
}
