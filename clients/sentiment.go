package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// --- Sentiment (/sentiment) ---
type SentimentReq struct {
	Text string `json:"text"`
}
type SentimentResp struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Mood is a sentiment score mapped onto a coarse mood word.
type Mood struct {
	Score float64 `json:"score"`
	Label string  `json:"mood"`
}

var moods = map[string]string{
	"POSITIVE": "happy",
	"NEGATIVE": "sad",
	"NEUTRAL":  "neutral",
}

func MoodFor(label string, score float64) Mood {
	m, ok := moods[strings.ToUpper(strings.TrimSpace(label))]
	if !ok {
		m = "neutral"
	}
	return Mood{Score: score, Label: m}
}

type SentimentClient struct {
	h   *HTTP
	url string
}

func (h *HTTP) Sentiment(url string) *SentimentClient { return &SentimentClient{h: h, url: url} }

func (s *SentimentClient) Sentiment(ctx context.Context, text string) (Mood, error) {
	resp, err := s.h.postJSON(ctx, s.url+"/sentiment", SentimentReq{Text: text})
	if err != nil {
		return Mood{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Mood{}, statusErr("sentiment", resp)
	}
	var out SentimentResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Mood{}, errors.Wrap(err, "sentiment decode")
	}
	return MoodFor(out.Label, out.Score), nil
}
