package submission

import (
	"bytes"
	"image"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/example/tumor-check/internal/protocol"
)

// previewEdge bounds the thumbnail size in pixels.
const previewEdge = 256

// Preview is a locally held rendering of the selected file. The client
// releases it exactly once, when it is replaced or the client is closed.
type Preview interface {
	Release()
}

// PreviewFunc builds the preview for a newly selected file.
type PreviewFunc func(file protocol.Upload) (Preview, error)

// ThumbnailPreview is a downscaled copy of the selected image.
type ThumbnailPreview struct {
	mu    sync.Mutex
	image *image.NRGBA
}

// NewThumbnailPreview decodes the upload and fits it within 256x256.
func NewThumbnailPreview(file protocol.Upload) (Preview, error) {
	img, err := imaging.Decode(bytes.NewReader(file.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	return &ThumbnailPreview{image: imaging.Fit(img, previewEdge, previewEdge, imaging.Lanczos)}, nil
}

// Image returns the thumbnail, or nil once released.
func (p *ThumbnailPreview) Image() image.Image {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.image == nil {
		return nil
	}
	return p.image
}

func (p *ThumbnailPreview) Release() {
	p.mu.Lock()
	p.image = nil
	p.mu.Unlock()
}
