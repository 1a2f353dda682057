package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// --- ASR (/transcribe) ---
type TransSeg struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}
type ASRResp struct {
	Segments []TransSeg `json:"segments"`
	Language string     `json:"language"`
}

// Text joins the segments into one utterance.
func (r *ASRResp) Text() string {
	parts := make([]string, 0, len(r.Segments))
	for _, s := range r.Segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func (h *HTTP) ASR(ctx context.Context, url, filename string, audio []byte) (*ASRResp, error) {
	resp, err := h.postFile(ctx, url+"/transcribe", filename, audio)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusErr("asr", resp)
	}

	var out ASRResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "asr decode")
	}
	return &out, nil
}

func (h *HTTP) ASRFile(ctx context.Context, url, path string) (*ASRResp, error) {
	audio, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return h.ASR(ctx, url, filepath.Base(path), audio)
}
