package clients

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/maastricht-university/companion/emotion"
)

// --- Emotion classifiers (/classify) ---
// The face service answers DeepFace-style: dominant_emotion plus a percentage map.
// The speech service answers with label/confidence directly.
type ClassifyResp struct {
	Label           string             `json:"label"`
	Confidence      float64            `json:"confidence"`
	DominantEmotion string             `json:"dominant_emotion"`
	Emotions        map[string]float64 `json:"emotion"`
}

type Classifier struct {
	h        *HTTP
	url      string
	svc      string
	filename string
}

// Classifier returns an emotion.Classifier backed by the service at url.
// filename names the uploaded unit (e.g. frame.jpg, clip.wav).
func (h *HTTP) Classifier(svc, url, filename string) *Classifier {
	return &Classifier{h: h, url: url, svc: svc, filename: filename}
}

func (c *Classifier) Classify(ctx context.Context, raw []byte) (*emotion.Classification, error) {
	resp, err := c.h.postFile(ctx, c.url+"/classify", c.filename, raw)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusErr(c.svc, resp)
	}

	var out ClassifyResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrapf(err, "%s decode", c.svc)
	}
	label, conf := out.Label, out.Confidence
	if label == "" && out.DominantEmotion != "" {
		label, conf = out.DominantEmotion, out.Emotions[out.DominantEmotion]
	}
	if label == "" {
		return nil, nil
	}
	return &emotion.Classification{Label: label, Confidence: emotion.NormalizeConfidence(conf)}, nil
}
