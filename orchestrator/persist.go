package orchestrator

import (
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/maastricht-university/companion/emotion"
)

func newSessionID() string { return "session_" + uuid.NewString() }

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func buildReport(sessionID string, now time.Time, records []emotion.CombinedEmotion, length, overlap time.Duration) Report {
	windows := window(records, length, overlap)
	for i := range windows {
		aggregate(&windows[i])
	}
	if windows == nil {
		windows = []Window{}
	}
	return Report{
		SessionID:   sessionID,
		GeneratedAt: now,
		Windows:     windows,
		Stats:       emotion.Stats(records),
	}
}
