package emotion

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/companion/metrics"
)

type RecognizerConfig struct {
	Modality   Modality
	Interval   time.Duration
	MaxSamples int
	Retention  time.Duration
	KeepFrames bool
}

// Recognizer samples one capture source on a fixed interval, classifies each unit and
// keeps the latest sample plus a bounded history. current and history share one lock.
type Recognizer struct {
	cfg        RecognizerConfig
	source     Source
	classifier Classifier
	log        *logrus.Entry
	metrics    *metrics.Metrics
	now        func() time.Time

	life   sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	current *Sample
	history *ring[Sample]
}

func NewRecognizer(cfg RecognizerConfig, src Source, cls Classifier, log *logrus.Entry, m *metrics.Metrics) *Recognizer {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Recognizer{
		cfg:        cfg,
		source:     src,
		classifier: cls,
		log:        log.WithFields(logrus.Fields{"component": "recognizer", "modality": cfg.Modality}),
		metrics:    m,
		now:        time.Now,
		history:    newRing(cfg.MaxSamples, cfg.Retention, func(s Sample) time.Time { return s.Timestamp }),
	}
}

func (r *Recognizer) Modality() Modality { return r.cfg.Modality }

// Start opens the source and launches the sampling loop. Calling it on a running
// recognizer is a no-op.
func (r *Recognizer) Start(ctx context.Context) error {
	r.life.Lock()
	defer r.life.Unlock()
	if r.done != nil {
		return nil
	}
	if err := r.source.Open(ctx); err != nil {
		return errors.Wrapf(ErrDeviceUnavailable, "%s: %v", r.cfg.Modality, err)
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(loopCtx, r.done)
	r.log.WithField("interval", r.cfg.Interval).Info("recognizer started")
	return nil
}

// Stop cancels the loop, waits for it to exit and releases the source.
// No sample is published after Stop returns.
func (r *Recognizer) Stop() error {
	r.life.Lock()
	defer r.life.Unlock()
	if r.done == nil {
		return nil
	}
	r.cancel()
	<-r.done
	r.cancel, r.done = nil, nil
	if err := r.source.Close(); err != nil {
		return errors.Wrapf(err, "close %s source", r.cfg.Modality)
	}
	r.log.Info("recognizer stopped")
	return nil
}

func (r *Recognizer) Running() bool {
	r.life.Lock()
	defer r.life.Unlock()
	return r.done != nil
}

func (r *Recognizer) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(r.cfg.Interval)
	defer t.Stop()
	for {
		r.tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (r *Recognizer) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	raw, err := r.source.Capture(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.log.WithError(err).Warn("capture failed, skipping tick")
		r.metrics.Skip(string(r.cfg.Modality), "capture")
		return
	}
	res, err := r.classifier.Classify(ctx, raw)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.log.WithError(err).Warn("classification failed, skipping tick")
		r.metrics.Skip(string(r.cfg.Modality), "classify")
		return
	}
	if res == nil || res.Label == "" {
		r.metrics.Skip(string(r.cfg.Modality), "no_result")
		return
	}
	s := Sample{
		Label:      res.Label,
		Confidence: NormalizeConfidence(res.Confidence),
		Timestamp:  r.now(),
	}
	if r.cfg.KeepFrames {
		s.Frame = raw
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	r.current = &s
	r.history.push(s)
	r.history.evict(s.Timestamp)
	r.metrics.Sample(string(r.cfg.Modality))
	r.log.WithFields(logrus.Fields{"label": s.Label, "confidence": s.Confidence}).Debug("sample published")
}

func (r *Recognizer) Current() (Sample, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return Sample{}, false
	}
	return *r.current, true
}

// History returns samples newer than now-window. A non-positive window returns
// everything still retained.
func (r *Recognizer) History(window time.Duration) []Sample {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history.evict(now)
	return r.history.since(cutoffFor(now, window))
}

// Stats maps each label to its mean confidence over the window.
func (r *Recognizer) Stats(window time.Duration) map[string]float64 {
	return SampleStats(r.History(window))
}
