package orchestrator

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/companion/clients"
	cfg "github.com/maastricht-university/companion/config"
	"github.com/maastricht-university/companion/device"
	"github.com/maastricht-university/companion/emotion"
	"github.com/maastricht-university/companion/metrics"
	"github.com/maastricht-university/companion/router"
	"github.com/maastricht-university/companion/routine"
)

// Pipeline owns the process-wide components: capability clients, the recognizers and
// fusion engine, the routine store and the router. Clients are built once here and
// injected everywhere else.
type Pipeline struct {
	cfg       *cfg.Root
	log       *logrus.Entry
	http      *clients.HTTP
	sessionID string

	registry *prometheus.Registry
	metrics  *metrics.Metrics

	audio  *emotion.Recognizer
	video  *emotion.Recognizer
	engine *emotion.Engine
	store  *routine.Store
	router *router.Router
}

// Options replaces collaborators that would otherwise be built from config.
type Options struct {
	Completer   router.Completer
	AudioSource emotion.Source
	VideoSource emotion.Source
	Registry    *prometheus.Registry
}

func NewPipeline(c *cfg.Root, log *logrus.Entry, opts Options) *Pipeline {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	p := &Pipeline{
		cfg:       c,
		log:       log,
		http:      clients.NewHTTP(cfg.DurSeconds(c.Services.Timeout)),
		sessionID: newSessionID(),
		registry:  reg,
		metrics:   metrics.New(reg),
		store:     routine.NewStore(),
	}

	var audioCh, videoCh emotion.Channel
	if c.Audio.Enabled {
		p.audio = emotion.NewRecognizer(emotion.RecognizerConfig{
			Modality:   emotion.Audio,
			Interval:   cfg.DurMillis(c.Audio.DetectionInterval),
			MaxSamples: c.Audio.MaxSamples,
			Retention:  cfg.DurSeconds(c.Audio.Retention),
			KeepFrames: c.Audio.KeepFrames,
		}, p.audioSource(opts.AudioSource), p.http.Classifier("speech", c.Services.Speech.URL, "clip.wav"), log, p.metrics)
		audioCh = p.audio
	}
	if c.Video.Enabled {
		p.video = emotion.NewRecognizer(emotion.RecognizerConfig{
			Modality:   emotion.Video,
			Interval:   cfg.DurMillis(c.Video.DetectionInterval),
			MaxSamples: c.Video.MaxSamples,
			Retention:  cfg.DurSeconds(c.Video.Retention),
			KeepFrames: c.Video.KeepFrames,
		}, p.videoSource(opts.VideoSource), p.http.Classifier("face", c.Services.Face.URL, "frame.jpg"), log, p.metrics)
		videoCh = p.video
	}
	p.engine = emotion.NewEngine(emotion.EngineConfig{
		SyncInterval: cfg.DurMillis(c.Fusion.SyncInterval),
		MaxRecords:   c.Fusion.MaxRecords,
		Retention:    cfg.DurSeconds(c.Fusion.Retention),
	}, audioCh, videoCh, log, p.metrics)

	llm := opts.Completer
	if llm == nil {
		llm = clients.NewCompleter(clients.CompleterConfig{
			APIKey:      c.APIKey(),
			BaseURL:     c.Completion.BaseURL,
			Model:       c.Completion.Model,
			Temperature: c.Completion.Temperature,
			Timeout:     cfg.DurSeconds(c.Completion.Timeout),
			MaxRetries:  c.Completion.MaxRetries,
		})
	}
	ropts := router.Options{
		Keywords: c.MealKeywords,
		Log:      log,
		Metrics:  p.metrics,
	}
	if c.Services.Sentiment.URL != "" {
		ropts.Sentiment = p.http.Sentiment(c.Services.Sentiment.URL)
	}
	if c.Fusion.Enabled {
		ropts.Emotions = p.engine
	}
	p.router = router.New(llm, p.store, ropts)
	return p
}

func (p *Pipeline) audioSource(override emotion.Source) emotion.Source {
	switch {
	case override != nil:
		return override
	case p.cfg.Audio.ReplayDir != "":
		return device.NewReplay(p.cfg.Audio.ReplayDir, ".wav")
	default:
		return device.NewMicrophone(p.micConfig(), p.log)
	}
}

func (p *Pipeline) videoSource(override emotion.Source) emotion.Source {
	switch {
	case override != nil:
		return override
	case p.cfg.Video.ReplayDir != "":
		return device.NewReplay(p.cfg.Video.ReplayDir, ".jpg", ".jpeg", ".png")
	default:
		return device.NewSnapshotCamera(p.cfg.Video.SnapshotURL, cfg.DurSeconds(p.cfg.Services.Timeout), p.log)
	}
}

func (p *Pipeline) micConfig() device.MicrophoneConfig {
	return device.MicrophoneConfig{
		SampleRate: p.cfg.Audio.SampleRate,
		Channels:   p.cfg.Audio.Channels,
		Clip:       cfg.DurMillis(p.cfg.Audio.ClipLength),
	}
}

// Start brings up the fusion engine (and with it the recognizers) when fusion is enabled.
func (p *Pipeline) Start(ctx context.Context) error {
	if !p.cfg.Fusion.Enabled {
		p.log.Info("fusion disabled, emotion context off")
		return nil
	}
	if p.audio == nil && p.video == nil {
		p.log.Warn("fusion enabled but both modalities disabled")
		return nil
	}
	return p.engine.Start(ctx)
}

func (p *Pipeline) Stop() error { return p.engine.Stop() }

// Handle routes one chat message.
func (p *Pipeline) Handle(ctx context.Context, req router.Request) (router.Response, error) {
	return p.router.Route(ctx, req)
}

// Transcribe records one microphone clip and returns the ASR text.
func (p *Pipeline) Transcribe(ctx context.Context) (string, error) {
	if p.cfg.Services.ASR.URL == "" {
		return "", errors.New("no asr service configured")
	}
	clip, err := device.Record(ctx, p.micConfig(), p.log)
	if err != nil {
		return "", errors.Wrap(err, "record")
	}
	return p.TranscribeClip(ctx, clip)
}

func (p *Pipeline) TranscribeClip(ctx context.Context, clip []byte) (string, error) {
	asr, err := p.http.ASR(ctx, p.cfg.Services.ASR.URL, "speech.wav", clip)
	if err != nil {
		return "", err
	}
	return asr.Text(), nil
}

// Report summarizes the fused history of this session in windows.
func (p *Pipeline) Report() Report {
	return buildReport(p.sessionID, time.Now(), p.engine.History(0),
		cfg.DurSeconds(p.cfg.Fusion.TimeWindow), cfg.DurSeconds(p.cfg.Fusion.Overlap))
}

func (p *Pipeline) WriteReport(w io.Writer) error {
	return errors.Wrap(writeJSON(w, p.Report()), "write report")
}

func (p *Pipeline) SessionID() string { return p.sessionID }
func (p *Pipeline) Engine() *emotion.Engine { return p.engine }
func (p *Pipeline) Store() *routine.Store { return p.store }
func (p *Pipeline) Registry() *prometheus.Registry { return p.registry }
