package decode

import (
	"bytes"
	"context"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/RyanBlaney/sonido-catalog/pkg/audio/common"
	"github.com/RyanBlaney/sonido-catalog/pkg/logging"
)

// Waveform holds a decoded mono PCM signal at its native sample rate.
// Produced once per upload and treated as immutable afterwards.
type Waveform struct {
	Samples    []float64 `json:"-"`
	SampleRate int       `json:"sample_rate"`
}

// Duration returns the signal duration in seconds
func (w *Waveform) Duration() float64 {
	if w.SampleRate == 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Decoder converts an MPEG audio byte stream into a mono waveform.
// The native sample rate is preserved; stereo is downmixed by averaging.
type Decoder struct {
	logger logging.Logger
}

// NewDecoder creates a new MPEG audio decoder
func NewDecoder() *Decoder {
	return &Decoder{
		logger: logging.WithFields(logging.Fields{
			"component": "mpeg_decoder",
		}),
	}
}

// Decode parses MPEG audio bytes into a mono waveform. It fails with a
// DECODE_FAILED pipeline error when the bytes are not parseable audio.
func (d *Decoder) Decode(ctx context.Context, data []byte) (*Waveform, error) {
	if len(data) == 0 {
		return nil, common.NewPipelineError(common.StageDecode, common.ErrCodeDecode,
			"empty audio byte stream", nil)
	}

	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, common.NewPipelineError(common.StageDecode, common.ErrCodeDecode,
			"failed to parse MPEG audio", err)
	}

	sampleRate := dec.SampleRate()

	// go-mp3 emits interleaved signed 16-bit little-endian stereo frames
	// regardless of the source channel layout.
	const frameBytes = 4

	// Length is known for fixed-bitrate files; use it as a capacity hint.
	capacity := 0
	if n := dec.Length(); n > 0 {
		capacity = int(n / frameBytes)
	}
	samples := make([]float64, 0, capacity)

	buf := make([]byte, 16*1024)
	carry := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		n, readErr := dec.Read(buf[carry:])
		n += carry
		carry = 0

		whole := n - n%frameBytes
		for i := 0; i+frameBytes <= whole; i += frameBytes {
			left := int16(uint16(buf[i]) | uint16(buf[i+1])<<8)
			right := int16(uint16(buf[i+2]) | uint16(buf[i+3])<<8)
			mono := (float64(left) + float64(right)) / 2.0 / 32768.0
			samples = append(samples, mono)
		}
		if whole < n {
			copy(buf, buf[whole:n])
			carry = n - whole
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, common.NewPipelineError(common.StageDecode, common.ErrCodeDecode,
				"failed to decode MPEG audio frames", readErr)
		}
	}

	if len(samples) == 0 {
		return nil, common.NewPipelineError(common.StageDecode, common.ErrCodeDecode,
			"MPEG stream contained no audio frames", nil)
	}

	d.logger.Debug("decoded MPEG audio", logging.Fields{
		"sample_rate": sampleRate,
		"samples":     len(samples),
	})

	return &Waveform{
		Samples:    samples,
		SampleRate: sampleRate,
	}, nil
}
