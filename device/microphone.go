package device

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var ErrCaptureFailed = errors.New("capture failed")

type MicrophoneConfig struct {
	SampleRate int
	Channels   int
	// Clip is the length of audio handed to the classifier on each Capture.
	Clip time.Duration
}

// Microphone records continuously into a ring of the last Clip worth of PCM and hands
// out that window as a WAV file.
type Microphone struct {
	cfg MicrophoneConfig
	log *logrus.Entry

	mctx   *malgo.AllocatedContext
	dev    *malgo.Device
	mu     sync.Mutex
	pcm    []int16
	next   int
	filled int
}

func NewMicrophone(cfg MicrophoneConfig, log *logrus.Entry) *Microphone {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.Clip <= 0 {
		cfg.Clip = 3 * time.Second
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	size := int(int64(cfg.Clip)*int64(cfg.SampleRate)/int64(time.Second)) * cfg.Channels
	return &Microphone{
		cfg: cfg,
		log: log.WithFields(logrus.Fields{"component": "device", "device": "microphone"}),
		pcm: make([]int16, size),
	}
}

func (m *Microphone) Open(_ context.Context) error {
	if m.dev != nil {
		return nil
	}
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		m.log.Debug(msg)
	})
	if err != nil {
		return errors.Wrap(err, "malgo init context")
	}

	dc := malgo.DefaultDeviceConfig(malgo.Capture)
	dc.Capture.Format = malgo.FormatS16
	dc.Capture.Channels = uint32(m.cfg.Channels)
	dc.SampleRate = uint32(m.cfg.SampleRate)
	dc.Alsa.NoMMap = 1

	dev, err := malgo.InitDevice(mctx.Context, dc, malgo.DeviceCallbacks{Data: m.onData})
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return errors.Wrap(err, "malgo init capture device")
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return errors.Wrap(err, "malgo start capture")
	}
	m.mctx, m.dev = mctx, dev
	m.log.WithFields(logrus.Fields{"sample_rate": m.cfg.SampleRate, "channels": m.cfg.Channels}).Info("microphone opened")
	return nil
}

func (m *Microphone) onData(_, input []byte, _ uint32) {
	m.write(input)
}

// write appends little-endian S16 bytes to the ring.
func (m *Microphone) write(input []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i+1 < len(input); i += 2 {
		m.pcm[m.next] = int16(binary.LittleEndian.Uint16(input[i:]))
		m.next = (m.next + 1) % len(m.pcm)
		if m.filled < len(m.pcm) {
			m.filled++
		}
	}
}

// snapshot returns the buffered PCM in capture order.
func (m *Microphone) snapshot() []int16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int16, 0, m.filled)
	if m.filled < len(m.pcm) {
		return append(out, m.pcm[:m.filled]...)
	}
	out = append(out, m.pcm[m.next:]...)
	return append(out, m.pcm[:m.next]...)
}

// Capture encodes the most recent clip. It fails until a full clip has been recorded.
func (m *Microphone) Capture(_ context.Context) ([]byte, error) {
	pcm := m.snapshot()
	if len(pcm) < len(m.pcm) {
		return nil, errors.Wrapf(ErrCaptureFailed, "microphone: %d of %d samples buffered", len(pcm), len(m.pcm))
	}
	return EncodeWAV(pcm, m.cfg.SampleRate, m.cfg.Channels)
}

func (m *Microphone) Close() error {
	if m.dev == nil {
		return nil
	}
	m.dev.Uninit()
	err := m.mctx.Uninit()
	m.mctx.Free()
	m.dev, m.mctx = nil, nil
	m.mu.Lock()
	m.next, m.filled = 0, 0
	m.mu.Unlock()
	return errors.Wrap(err, "malgo uninit context")
}

// Record opens the microphone, waits for one full clip and returns it as WAV.
func Record(ctx context.Context, cfg MicrophoneConfig, log *logrus.Entry) ([]byte, error) {
	mic := NewMicrophone(cfg, log)
	if err := mic.Open(ctx); err != nil {
		return nil, err
	}
	defer mic.Close()

	t := time.NewTimer(mic.cfg.Clip + 100*time.Millisecond)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.C:
	}
	return mic.Capture(ctx)
}
