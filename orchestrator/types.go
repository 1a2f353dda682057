package orchestrator

import (
	"time"

	"github.com/maastricht-university/companion/emotion"
)

type Window struct {
	T0      time.Time                 `json:"t0"`
	T1      time.Time                 `json:"t1"`
	Records []emotion.CombinedEmotion `json:"-"`
	// Aggregates
	Count        int                `json:"count"`
	Dominant     string             `json:"dominant,omitempty"`
	Emotions     map[string]float64 `json:"emotions,omitempty"` // label -> mean fused confidence
	AudioShare   float64            `json:"audio_share"`        // records carrying audio
	VideoShare   float64            `json:"video_share"`
	Disagreement float64            `json:"disagreement"` // both present, labels differ
}

type Report struct {
	SessionID   string             `json:"session_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Windows     []Window           `json:"windows"`
	Stats       map[string]float64 `json:"stats"`
}
