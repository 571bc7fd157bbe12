package classifier

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

// heuristicSize is the edge length images are normalized to before scoring.
const heuristicSize = 128

type heuristicRule struct {
	keywords  []string
	tumorType string
	lo, hi    float64
}

var heuristicRules = []heuristicRule{
	{keywords: []string{"tumor", "glioma"}, tumorType: "glioma", lo: 0.75, hi: 0.95},
	{keywords: []string{"meningioma"}, tumorType: "meningioma", lo: 0.70, hi: 0.90},
	{keywords: []string{"pituitary"}, tumorType: "pituitary", lo: 0.72, hi: 0.92},
}

// Heuristic is a mock model: it checks that the payload decodes as an image
// with some contrast at 128x128 grayscale, then picks a class from keywords in the filename with a confidence drawn
// from a class-specific range.
type Heuristic struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewHeuristic seeds the confidence generator. A zero seed uses the clock.
func NewHeuristic(seed int64) *Heuristic {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Heuristic{rng: rand.New(rand.NewSource(seed))}
}

func (h *Heuristic) Classify(ctx context.Context, img Image) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	decoded, err := imaging.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}
	normalized := imaging.Grayscale(imaging.Resize(decoded, heuristicSize, heuristicSize, imaging.Lanczos))
	if contrast(normalized.Pix) == 0 {
		return nil, ErrBlankImage
	}

	name := strings.ToLower(filepath.Base(img.Filename))
	for _, rule := range heuristicRules {
		for _, kw := range rule.keywords {
			if strings.Contains(name, kw) {
				return &Result{
					Label:      LabelTumor,
					Confidence: h.uniform(rule.lo, rule.hi),
					TumorType:  rule.tumorType,
				}, nil
			}
		}
	}
	return &Result{
		Label:      LabelNoTumor,
		Confidence: h.uniform(0.80, 0.98),
		IsHealthy:  true,
	}, nil
}

func (h *Heuristic) uniform(lo, hi float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return lo + h.rng.Float64()*(hi-lo)
}

// contrast is the spread between the darkest and brightest pixel of a
// grayscale NRGBA buffer.
func contrast(pix []uint8) uint8 {
	if len(pix) == 0 {
		return 0
	}
	lo, hi := pix[0], pix[0]
	for i := 0; i < len(pix); i += 4 {
		if pix[i] < lo {
			lo = pix[i]
		}
		if pix[i] > hi {
			hi = pix[i]
		}
	}
	return hi - lo
}
