package emotion

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

type Modality string

const (
	Audio Modality = "audio"
	Video Modality = "video"
)

var ErrDeviceUnavailable = errors.New("device unavailable")

// Sample is one classified reading from a single modality. Never mutated after publish.
type Sample struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
	Frame      []byte    `json:"-"`
}

// Classification is a classifier's best guess for one raw unit.
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classifier returns (nil, nil) when nothing usable was detected.
type Classifier interface {
	Classify(ctx context.Context, raw []byte) (*Classification, error)
}

// Source is a capture device. Open failures are fatal to Start; Capture failures skip one tick.
type Source interface {
	Open(ctx context.Context) error
	Capture(ctx context.Context) ([]byte, error)
	Close() error
}

// CombinedEmotion is one fused reading. At least one of Audio/Video is set.
type CombinedEmotion struct {
	Timestamp time.Time `json:"timestamp"`
	Audio     *Sample   `json:"audio,omitempty"`
	Video     *Sample   `json:"video,omitempty"`
}

// Dominant picks the representative label. Video wins only on strictly higher
// confidence; audio wins ties.
func (c CombinedEmotion) Dominant() (string, bool) {
	switch {
	case c.Audio == nil && c.Video == nil:
		return "", false
	case c.Audio == nil:
		return c.Video.Label, true
	case c.Video == nil:
		return c.Audio.Label, true
	case c.Video.Confidence > c.Audio.Confidence:
		return c.Video.Label, true
	default:
		return c.Audio.Label, true
	}
}

// Confidence is max(audio, video) with an absent modality counted as zero.
func (c CombinedEmotion) Confidence() float64 {
	var a, v float64
	if c.Audio != nil {
		a = c.Audio.Confidence
	}
	if c.Video != nil {
		v = c.Video.Confidence
	}
	if a > v {
		return a
	}
	return v
}

// NormalizeConfidence maps percentages (1,100] to [0,1] and clamps the rest.
func NormalizeConfidence(c float64) float64 {
	if c > 1 && c <= 100 {
		c /= 100
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
