package emotion

// SampleStats averages confidence per label.
func SampleStats(samples []Sample) map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, s := range samples {
		sums[s.Label] += s.Confidence
		counts[s.Label]++
	}
	return means(sums, counts)
}

// Stats groups records by dominant label and averages max(audio, video) confidence
// within each group.
func Stats(records []CombinedEmotion) map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, rec := range records {
		label, ok := rec.Dominant()
		if !ok {
			continue
		}
		sums[label] += rec.Confidence()
		counts[label]++
	}
	return means(sums, counts)
}

func means(sums map[string]float64, counts map[string]int) map[string]float64 {
	out := make(map[string]float64, len(sums))
	for k, n := range counts {
		out[k] = sums[k] / float64(n)
	}
	return out
}
