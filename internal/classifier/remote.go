package classifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// remotePrediction is the JSON body an inference service answers with.
type remotePrediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	TumorType  string  `json:"tumor_type"`
	IsHealthy  bool    `json:"is_healthy"`
}

type remoteError struct {
	Error string `json:"error"`
}

// Remote forwards images to an HTTP inference service as a multipart upload.
type Remote struct {
	client *resty.Client
	path   string
}

// NewRemote targets baseURL; predictions are POSTed to baseURL + "/predict".
func NewRemote(baseURL string, timeout time.Duration) *Remote {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &Remote{client: client, path: "/predict"}
}

func (r *Remote) Classify(ctx context.Context, img Image) (*Result, error) {
	filename := img.Filename
	if filename == "" {
		filename = "upload"
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var (
		pred    remotePrediction
		errBody remoteError
	)
	resp, err := r.client.R().
		SetContext(ctx).
		SetMultipartField("file", filename, contentType, bytes.NewReader(img.Data)).
		SetResult(&pred).
		SetError(&errBody).
		Post(r.path)
	if err != nil {
		return nil, fmt.Errorf("call inference service: %w", err)
	}
	if resp.IsError() {
		if errBody.Error != "" {
			return nil, fmt.Errorf("inference service returned %d: %s", resp.StatusCode(), errBody.Error)
		}
		return nil, fmt.Errorf("inference service returned %d", resp.StatusCode())
	}
	if pred.Label == "" {
		return nil, errors.New("inference service returned no label")
	}

	return &Result{
		Label:      pred.Label,
		Confidence: pred.Confidence,
		TumorType:  pred.TumorType,
		IsHealthy:  pred.IsHealthy,
	}, nil
}
