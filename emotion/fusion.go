package emotion

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/companion/metrics"
)

// Channel is one modality as seen by the engine. *Recognizer implements it.
type Channel interface {
	Start(ctx context.Context) error
	Stop() error
	Current() (Sample, bool)
}

type EngineConfig struct {
	SyncInterval time.Duration
	MaxRecords   int
	Retention    time.Duration
}

// Engine polls the audio and video channels on a fixed interval and fuses whatever each
// currently holds into one CombinedEmotion. Either channel may be nil (disabled).
type Engine struct {
	cfg     EngineConfig
	audio   Channel
	video   Channel
	log     *logrus.Entry
	metrics *metrics.Metrics
	now     func() time.Time

	life   sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	current *CombinedEmotion
	history *ring[CombinedEmotion]
}

func NewEngine(cfg EngineConfig, audio, video Channel, log *logrus.Entry, m *metrics.Metrics) *Engine {
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = time.Second
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{
		cfg:     cfg,
		audio:   audio,
		video:   video,
		log:     log.WithField("component", "fusion"),
		metrics: m,
		now:     time.Now,
		history: newRing(cfg.MaxRecords, cfg.Retention, func(c CombinedEmotion) time.Time { return c.Timestamp }),
	}
}

func (e *Engine) channels() []Channel {
	var out []Channel
	if e.audio != nil {
		out = append(out, e.audio)
	}
	if e.video != nil {
		out = append(out, e.video)
	}
	return out
}

// Start starts the channels, then the sync loop. If any channel fails to start the
// ones already running are stopped again.
func (e *Engine) Start(ctx context.Context) error {
	e.life.Lock()
	defer e.life.Unlock()
	if e.done != nil {
		return nil
	}
	chans := e.channels()
	if len(chans) == 0 {
		return errors.New("fusion: no modality enabled")
	}
	for i, ch := range chans {
		if err := ch.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				if serr := chans[j].Stop(); serr != nil {
					e.log.WithError(serr).Warn("rollback stop failed")
				}
			}
			return errors.Wrap(err, "fusion start")
		}
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(loopCtx, e.done)
	e.log.WithField("interval", e.cfg.SyncInterval).Info("fusion engine started")
	return nil
}

// Stop halts the sync loop first, then the channels.
func (e *Engine) Stop() error {
	e.life.Lock()
	defer e.life.Unlock()
	if e.done == nil {
		return nil
	}
	e.cancel()
	<-e.done
	e.cancel, e.done = nil, nil

	var first error
	for _, ch := range e.channels() {
		if err := ch.Stop(); err != nil && first == nil {
			first = err
		}
	}
	e.log.Info("fusion engine stopped")
	return first
}

func (e *Engine) Running() bool {
	e.life.Lock()
	defer e.life.Unlock()
	return e.done != nil
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(e.cfg.SyncInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			e.tick()
		}
	}
}

func (e *Engine) tick() {
	rec := CombinedEmotion{Timestamp: e.now()}
	if e.audio != nil {
		if s, ok := e.audio.Current(); ok {
			rec.Audio = &s
		}
	}
	if e.video != nil {
		if s, ok := e.video.Current(); ok {
			rec.Video = &s
		}
	}
	if rec.Audio == nil && rec.Video == nil {
		return
	}

	e.mu.Lock()
	e.current = &rec
	e.history.push(rec)
	e.history.evict(rec.Timestamp)
	e.mu.Unlock()

	e.metrics.Fused()
	if label, ok := rec.Dominant(); ok {
		e.log.WithFields(logrus.Fields{"dominant": label, "confidence": rec.Confidence()}).Debug("fused")
	}
}

func (e *Engine) Current() (CombinedEmotion, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return CombinedEmotion{}, false
	}
	return *e.current, true
}

// History returns fused records newer than now-window; a non-positive window returns all
// retained records.
func (e *Engine) History(window time.Duration) []CombinedEmotion {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.evict(now)
	return e.history.since(cutoffFor(now, window))
}

func (e *Engine) Stats(window time.Duration) map[string]float64 {
	return Stats(e.History(window))
}
