package device

import (
	"bytes"
	"context"
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youpy/go-wav"
)

func TestEncodeWAV(t *testing.T) {
	pcm := []int16{0, 100, -100, 32767, -32768, 5}
	b, err := EncodeWAV(pcm, 16000, 1)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(b[:4]))
	assert.Equal(t, "WAVE", string(b[8:12]))

	r := wav.NewReader(bytes.NewReader(b))
	format, err := r.Format()
	require.NoError(t, err)
	assert.EqualValues(t, 16000, format.SampleRate)
	assert.EqualValues(t, 1, format.NumChannels)
	assert.EqualValues(t, 16, format.BitsPerSample)

	samples, err := r.ReadSamples(uint32(len(pcm)))
	require.NoError(t, err)
	require.Len(t, samples, len(pcm))
	for i, s := range samples {
		assert.Equal(t, int(pcm[i]), r.IntValue(s, 0))
	}
}

func TestEncodeWAVChannels(t *testing.T) {
	_, err := EncodeWAV([]int16{1, 2, 3}, 16000, 3)
	assert.Error(t, err)

	b, err := EncodeWAV([]int16{1, 2, 3, 4}, 8000, 2)
	require.NoError(t, err)
	format, err := wav.NewReader(bytes.NewReader(b)).Format()
	require.NoError(t, err)
	assert.EqualValues(t, 2, format.NumChannels)
}

func pcmBytes(vals ...int16) []byte {
	b := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(v))
	}
	return b
}

func TestMicrophoneRing(t *testing.T) {
	// 4 samples at 8 kHz mono is a 0.5ms clip.
	mic := NewMicrophone(MicrophoneConfig{SampleRate: 8000, Channels: 1, Clip: 500 * time.Microsecond}, nil)
	require.Len(t, mic.pcm, 4)

	mic.write(pcmBytes(1, 2, 3))
	_, err := mic.Capture(context.Background())
	assert.True(t, errors.Is(err, ErrCaptureFailed))
	assert.Equal(t, []int16{1, 2, 3}, mic.snapshot())

	mic.write(pcmBytes(4, 5, 6))
	assert.Equal(t, []int16{3, 4, 5, 6}, mic.snapshot())

	b, err := mic.Capture(context.Background())
	require.NoError(t, err)
	samples, err := wav.NewReader(bytes.NewReader(b)).ReadSamples(4)
	require.NoError(t, err)
	assert.Len(t, samples, 4)
}

func TestMicrophoneCloseUnopened(t *testing.T) {
	assert.NoError(t, NewMicrophone(MicrophoneConfig{}, nil).Close())
}

func TestReplayCycles(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{"b.jpg": "B", "a.jpg": "A", "notes.txt": "skip"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755))

	r := NewReplay(dir, ".JPG")
	ctx := context.Background()
	_, err := r.Capture(ctx)
	assert.True(t, errors.Is(err, ErrCaptureFailed), "capture before open")

	require.NoError(t, r.Open(ctx))
	var got []string
	for i := 0; i < 5; i++ {
		b, err := r.Capture(ctx)
		require.NoError(t, err)
		got = append(got, string(b))
	}
	assert.Equal(t, []string{"A", "B", "A", "B", "A"}, got)
	require.NoError(t, r.Close())
}

func TestReplayEmpty(t *testing.T) {
	assert.Error(t, NewReplay(t.TempDir(), ".wav").Open(context.Background()))
	assert.Error(t, NewReplay(filepath.Join(t.TempDir(), "missing")).Open(context.Background()))
}

func TestSnapshotCamera(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
	}))
	defer srv.Close()

	cam := NewSnapshotCamera(srv.URL, time.Second, nil)
	ctx := context.Background()
	require.NoError(t, cam.Open(ctx))

	frame, err := cam.Capture(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, frame)

	fail.Store(true)
	_, err = cam.Capture(ctx)
	assert.True(t, errors.Is(err, ErrCaptureFailed))
	assert.NoError(t, cam.Close())
}

func TestSnapshotCameraUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	assert.Error(t, NewSnapshotCamera(url, time.Second, nil).Open(context.Background()))
	assert.Error(t, NewSnapshotCamera("", time.Second, nil).Open(context.Background()))
}
