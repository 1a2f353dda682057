package orchestrator

import (
	"sort"
	"time"

	"github.com/maastricht-university/companion/emotion"
)

// window slices fused records into fixed-length windows advancing by length-overlap.
// A record belongs to every window whose [t0, t1) contains its timestamp.
func window(records []emotion.CombinedEmotion, length, overlap time.Duration) []Window {
	if len(records) == 0 || length <= 0 {
		return nil
	}
	// compute session bounds
	start := records[0].Timestamp
	end := records[len(records)-1].Timestamp
	step := length - overlap
	if step <= 0 {
		step = length
	}

	var out []Window
	for t0 := start; !t0.After(end); t0 = t0.Add(step) {
		t1 := t0.Add(length)
		var slice []emotion.CombinedEmotion
		for _, r := range records {
			if r.Timestamp.Before(t0) || !r.Timestamp.Before(t1) {
				continue
			}
			slice = append(slice, r)
		}
		out = append(out, Window{T0: t0, T1: t1, Records: slice})
	}
	return out
}

func aggregate(w *Window) {
	w.Count = len(w.Records)
	if w.Count == 0 {
		return
	}
	w.Emotions = emotion.Stats(w.Records)

	var audio, video, disagree int
	counts := map[string]int{}
	for _, r := range w.Records {
		if r.Audio != nil {
			audio++
		}
		if r.Video != nil {
			video++
		}
		if r.Audio != nil && r.Video != nil && r.Audio.Label != r.Video.Label {
			disagree++
		}
		if label, ok := r.Dominant(); ok {
			counts[label]++
		}
	}
	n := float64(w.Count)
	w.AudioShare = float64(audio) / n
	w.VideoShare = float64(video) / n
	w.Disagreement = float64(disagree) / n
	w.Dominant = mostFrequent(counts)
}

// mostFrequent breaks count ties alphabetically so reports are stable.
func mostFrequent(counts map[string]int) string {
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	best := ""
	for _, l := range labels {
		if best == "" || counts[l] > counts[best] {
			best = l
		}
	}
	return best
}
