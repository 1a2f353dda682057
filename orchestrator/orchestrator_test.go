package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/companion/clients"
	cfg "github.com/maastricht-university/companion/config"
	"github.com/maastricht-university/companion/emotion"
	"github.com/maastricht-university/companion/router"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func rec(offset time.Duration, audio, video *emotion.Sample) emotion.CombinedEmotion {
	return emotion.CombinedEmotion{Timestamp: t0.Add(offset), Audio: audio, Video: video}
}

func smp(label string, conf float64) *emotion.Sample {
	return &emotion.Sample{Label: label, Confidence: conf}
}

func TestWindowOverlap(t *testing.T) {
	records := []emotion.CombinedEmotion{
		rec(0, smp("calm", 0.6), nil),
		rec(4*time.Second, smp("calm", 0.8), nil),
		rec(6*time.Second, nil, smp("happy", 0.9)),
		rec(11*time.Second, smp("sad", 0.4), smp("happy", 0.4)),
	}

	ws := window(records, 10*time.Second, 5*time.Second)
	require.Len(t, ws, 3)
	assert.Equal(t, t0, ws[0].T0)
	assert.Equal(t, t0.Add(10*time.Second), ws[0].T1)
	assert.Len(t, ws[0].Records, 3)
	assert.Len(t, ws[1].Records, 2, "6s and 11s fall in [5s,15s)")
	assert.Len(t, ws[2].Records, 1)

	assert.Nil(t, window(nil, 10*time.Second, 0))
	assert.Len(t, window(records, 10*time.Second, 10*time.Second), 2, "non-advancing step falls back to the window length")
}

func TestAggregate(t *testing.T) {
	w := Window{Records: []emotion.CombinedEmotion{
		rec(0, smp("calm", 0.6), nil),
		rec(time.Second, smp("calm", 0.8), nil),
		rec(2*time.Second, nil, smp("happy", 0.9)),
		rec(3*time.Second, smp("sad", 0.5), smp("angry", 0.5)),
	}}
	aggregate(&w)

	assert.Equal(t, 4, w.Count)
	assert.Equal(t, "calm", w.Dominant)
	assert.InDelta(t, 0.7, w.Emotions["calm"], 1e-9)
	assert.InDelta(t, 0.9, w.Emotions["happy"], 1e-9)
	assert.InDelta(t, 0.5, w.Emotions["sad"], 1e-9, "audio wins the tie")
	assert.InDelta(t, 0.75, w.AudioShare, 1e-9)
	assert.InDelta(t, 0.5, w.VideoShare, 1e-9)
	assert.InDelta(t, 0.25, w.Disagreement, 1e-9)

	empty := Window{}
	aggregate(&empty)
	assert.Zero(t, empty.Count)
	assert.Nil(t, empty.Emotions)
}

func TestMostFrequentTie(t *testing.T) {
	assert.Equal(t, "calm", mostFrequent(map[string]int{"sad": 2, "calm": 2, "happy": 1}))
	assert.Equal(t, "", mostFrequent(nil))
}

func TestReportJSON(t *testing.T) {
	records := []emotion.CombinedEmotion{rec(0, smp("calm", 0.6), nil), rec(time.Second, nil, smp("happy", 0.9))}
	r := buildReport("session_x", t0, records, 30*time.Second, 0)

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, r))
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "session_x", out["session_id"])
	assert.Len(t, out["windows"], 1)
	assert.Equal(t, map[string]any{"calm": 0.6, "happy": 0.9}, out["stats"])
	assert.NotContains(t, buf.String(), "Records")

	empty := buildReport("session_y", t0, nil, 30*time.Second, 0)
	assert.NotNil(t, empty.Windows)
	assert.Empty(t, empty.Stats)
}

type scripted map[string]string

func (s scripted) Complete(_ context.Context, prompt string) (clients.Completion, error) {
	for prefix, reply := range s {
		if strings.HasPrefix(prompt, prefix) {
			return clients.Completion{Text: reply}, nil
		}
	}
	return clients.Completion{}, clients.ErrCompletionUnavailable
}

type staticSource struct{ data []byte }

func (s staticSource) Open(context.Context) error              { return nil }
func (s staticSource) Capture(context.Context) ([]byte, error) { return s.data, nil }
func (s staticSource) Close() error                            { return nil }

func classifierServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if hdr.Filename == "frame.jpg" {
			_, _ = io.WriteString(w, `{"dominant_emotion":"happy","emotion":{"happy":80}}`)
			return
		}
		_, _ = io.WriteString(w, `{"label":"calm","confidence":0.8}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(faceURL, speechURL string) *cfg.Root {
	c := cfg.Default()
	c.Services.Face.URL = faceURL
	c.Services.Speech.URL = speechURL
	c.Audio.DetectionInterval = 10
	c.Video.DetectionInterval = 10
	c.Fusion.SyncInterval = 10
	return c
}

func TestPipelineEndToEnd(t *testing.T) {
	srv := classifierServer(t)
	logger, _ := test.NewNullLogger()
	llm := scripted{
		"Categorize":                 "routine-related",
		"Extract the main routine":   "sleep",
		"Give one ADHD-friendly tip": "Keep a fixed bedtime.",
		"You are a supportive":       "That sounds hard.",
	}
	p := NewPipeline(testConfig(srv.URL, srv.URL), logrus.NewEntry(logger), Options{
		Completer:   llm,
		AudioSource: staticSource{data: []byte("RIFF")},
		VideoSource: staticSource{data: []byte{0xff, 0xd8}},
	})

	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() { _ = p.Stop() })

	require.Eventually(t, func() bool {
		cur, ok := p.Engine().Current()
		return ok && cur.Audio != nil && cur.Video != nil
	}, 2*time.Second, 5*time.Millisecond)

	cur, _ := p.Engine().Current()
	label, _ := cur.Dominant()
	assert.Equal(t, "calm", label, "0.8 vs 0.8 goes to audio")

	resp, err := p.Handle(context.Background(), router.Request{UserID: "u1", Message: "I slept 8 hours"})
	require.NoError(t, err)
	assert.Equal(t, "Noted your sleep routine. Keep a fixed bedtime.", resp.Text)
	assert.Len(t, p.Store().Entries("u1", "sleep"), 1)

	require.NoError(t, p.Stop())
	var buf bytes.Buffer
	require.NoError(t, p.WriteReport(&buf))
	var report Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, p.SessionID(), report.SessionID)
	assert.True(t, strings.HasPrefix(report.SessionID, "session_"))
	assert.NotEmpty(t, report.Windows)
	assert.Contains(t, report.Stats, "calm")

	families, err := p.Registry().Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["companion_fusion_records_total"])
	assert.True(t, names["companion_router_messages_total"])
}

func TestPipelineFusionDisabled(t *testing.T) {
	c := testConfig("", "")
	c.Fusion.Enabled = false
	p := NewPipeline(c, nil, Options{
		Completer:   scripted{"Categorize": "neutral-chat", "You are a supportive": "Hi there!"},
		AudioSource: staticSource{},
		VideoSource: staticSource{},
	})
	require.NoError(t, p.Start(context.Background()))
	assert.False(t, p.Engine().Running())

	resp, err := p.Handle(context.Background(), router.Request{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", resp.Text)
	record, ok := p.Store().Get(router.DefaultUserID)
	require.True(t, ok)
	assert.Equal(t, router.ConcernNeutral, record.LastConcern)
	require.NoError(t, p.Stop())
}

func TestPipelineNoModalities(t *testing.T) {
	c := testConfig("", "")
	c.Audio.Enabled = false
	c.Video.Enabled = false
	p := NewPipeline(c, nil, Options{Completer: scripted{}})
	require.NoError(t, p.Start(context.Background()))
	assert.False(t, p.Engine().Running())
	require.NoError(t, p.Stop())
}

func TestTranscribeClip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"segments":[{"start":0,"end":1,"text":"I had pasta for lunch"}]}`)
	}))
	defer srv.Close()

	c := testConfig("", "")
	c.Services.ASR.URL = srv.URL
	p := NewPipeline(c, nil, Options{Completer: scripted{}})
	text, err := p.TranscribeClip(context.Background(), []byte("RIFF"))
	require.NoError(t, err)
	assert.Equal(t, "I had pasta for lunch", text)

	c2 := testConfig("", "")
	_, err = NewPipeline(c2, nil, Options{Completer: scripted{}}).Transcribe(context.Background())
	assert.Error(t, err)
}
