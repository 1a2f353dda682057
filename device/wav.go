package device

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/youpy/go-wav"
)

// EncodeWAV wraps interleaved 16-bit PCM in a RIFF/WAVE container.
func EncodeWAV(pcm []int16, sampleRate, channels int) ([]byte, error) {
	if channels < 1 || channels > 2 {
		return nil, errors.Errorf("wav: unsupported channel count %d", channels)
	}
	frames := len(pcm) / channels
	samples := make([]wav.Sample, frames)
	for i := range samples {
		for c := 0; c < channels; c++ {
			samples[i].Values[c] = int(pcm[i*channels+c])
		}
	}

	var buf bytes.Buffer
	w := wav.NewWriter(&buf, uint32(frames), uint16(channels), uint32(sampleRate), 16)
	if err := w.WriteSamples(samples); err != nil {
		return nil, errors.Wrap(err, "wav: write samples")
	}
	return buf.Bytes(), nil
}
