package submission

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/example/tumor-check/internal/protocol"
)

// HTTPAnalyzer posts uploads to a running analysis endpoint.
type HTTPAnalyzer struct {
	client    *resty.Client
	fieldName string
}

// NewHTTPAnalyzer targets the server at baseURL, e.g. "http://localhost:8080".
func NewHTTPAnalyzer(baseURL string, timeout time.Duration) *HTTPAnalyzer {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &HTTPAnalyzer{client: client, fieldName: protocol.FileField}
}

func (a *HTTPAnalyzer) Analyze(ctx context.Context, upload protocol.Upload) (*protocol.AnalysisResult, error) {
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var (
		result  protocol.AnalysisResult
		errBody protocol.ErrorResponse
	)
	resp, err := a.client.R().
		SetContext(ctx).
		SetMultipartField(a.fieldName, upload.Filename, contentType, bytes.NewReader(upload.Data)).
		SetResult(&result).
		SetError(&errBody).
		Post(protocol.AnalyzePath)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", protocol.AnalyzePath, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("analysis endpoint returned %d: %q", resp.StatusCode(), errBody.Error)
	}
	return &result, nil
}
