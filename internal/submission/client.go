// Package submission implements the client side of an analysis: it holds the
// selected file, its preview and the outcome of the last submission, and
// moves between Idle, Submitting, Succeeded and Failed.
package submission

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/example/tumor-check/internal/protocol"
)

var (
	// ErrInvalidTransition is returned when OnSuccess or OnFailure is applied
	// outside the Submitting state.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrClosed is returned by operations on a closed client.
	ErrClosed = errors.New("submission client closed")
)

// State is the lifecycle position of a Client.
type State int

const (
	Idle State = iota
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Analyzer sends one upload to the analysis endpoint.
type Analyzer interface {
	Analyze(ctx context.Context, upload protocol.Upload) (*protocol.AnalysisResult, error)
}

// View is a point-in-time copy of the client state for rendering.
type View struct {
	State    State
	Filename string
	Preview  Preview
	Result   *protocol.AnalysisResult
	Error    string
}

// Client is the submission state machine. At most one request is in flight
// per Client.
type Client struct {
	analyzer   Analyzer
	newPreview PreviewFunc
	logger     *zap.Logger

	mu         sync.Mutex
	state      State
	file       *protocol.Upload
	preview    Preview
	result     *protocol.AnalysisResult
	errMsg     string
	generation uint64
	cancel     context.CancelFunc
	closed     bool
}

// Option customizes a Client.
type Option func(*Client)

// WithPreviewFunc replaces the default thumbnail preview.
func WithPreviewFunc(fn PreviewFunc) Option {
	return func(c *Client) { c.newPreview = fn }
}

// WithLogger sets the logger used for failed submissions.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient returns an Idle client with no file selected.
func NewClient(analyzer Analyzer, opts ...Option) *Client {
	c := &Client{
		analyzer:   analyzer,
		newPreview: NewThumbnailPreview,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("submission")
	return c
}

// SelectFile stores file, replaces the preview and clears any previous
// result or error, returning the client to Idle. A request still in flight
// is cancelled and its outcome discarded. If the preview cannot be built
// the file stays selected without one and the error is returned.
func (c *Client) SelectFile(file protocol.Upload) error {
	var (
		preview Preview
		perr    error
	)
	if c.newPreview != nil {
		preview, perr = c.newPreview(file)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		if preview != nil {
			preview.Release()
		}
		return ErrClosed
	}

	c.abortLocked()
	c.releasePreviewLocked()

	c.file = &file
	c.preview = preview
	c.result = nil
	c.errMsg = ""
	c.state = Idle

	if perr != nil {
		return fmt.Errorf("preview %s: %w", file.Filename, perr)
	}
	return nil
}

// Submit sends the selected file and blocks until the client reaches
// Succeeded or Failed. It returns false without sending anything when no
// file is selected, a submission is already in flight, or the client is
// closed.
func (c *Client) Submit(ctx context.Context) bool {
	c.mu.Lock()
	if c.closed || c.file == nil || c.state == Submitting {
		c.mu.Unlock()
		return false
	}
	c.state = Submitting
	c.result = nil
	c.errMsg = ""
	c.generation++
	gen := c.generation
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	upload := *c.file
	c.mu.Unlock()
	defer cancel()

	result, err := c.analyzer.Analyze(reqCtx, upload)
	if err == nil {
		err = result.Validate()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.state != Submitting {
		c.logger.Debug("dropping stale analysis outcome", zap.String("filename", upload.Filename))
		return true
	}
	c.cancel = nil
	if err != nil {
		c.logger.Warn("analysis request failed", zap.Error(err), zap.String("filename", upload.Filename))
		c.failLocked(protocol.MsgAnalyzeFailed)
		return true
	}
	c.succeedLocked(result)
	return true
}

// OnSuccess moves a Submitting client to Succeeded with result.
func (c *Client) OnSuccess(result *protocol.AnalysisResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Submitting {
		return fmt.Errorf("%w: success from %s", ErrInvalidTransition, c.state)
	}
	c.succeedLocked(result)
	return nil
}

// OnFailure moves a Submitting client to Failed with message.
func (c *Client) OnFailure(message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Submitting {
		return fmt.Errorf("%w: failure from %s", ErrInvalidTransition, c.state)
	}
	c.failLocked(message)
	return nil
}

// Snapshot returns the current state.
func (c *Client) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{State: c.state, Preview: c.preview, Error: c.errMsg}
	if c.file != nil {
		v.Filename = c.file.Filename
	}
	if c.result != nil {
		res := *c.result
		v.Result = &res
	}
	return v
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close releases the preview and cancels any request in flight, leaving a
// submitting client Idle. Further calls are no-ops.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.abortLocked()
	c.releasePreviewLocked()
	c.file = nil
	if c.state == Submitting {
		c.state = Idle
	}
	return nil
}

func (c *Client) succeedLocked(result *protocol.AnalysisResult) {
	c.cancel = nil
	c.state = Succeeded
	c.result = result
	c.errMsg = ""
}

func (c *Client) failLocked(message string) {
	c.cancel = nil
	c.state = Failed
	c.result = nil
	c.errMsg = message
}

// abortLocked invalidates the current submission so its outcome is dropped.
func (c *Client) abortLocked() {
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Client) releasePreviewLocked() {
	if c.preview != nil {
		c.preview.Release()
		c.preview = nil
	}
}
