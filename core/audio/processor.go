package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"TuneBox/config"
)

// ErrNoAudio 数据中找不到任何音频帧
var ErrNoAudio = errors.New("no audio frames found")

// DurationProber measures the playing time of an audio stream.
type DurationProber interface {
	Probe(ctx context.Context, r io.Reader) (time.Duration, error)
}

// NewProber returns the prober selected by cfg.AudioProber.
func NewProber(cfg *config.Config) (DurationProber, error) {
	switch cfg.AudioProber {
	case config.ProberMP3, "":
		return NewMP3Prober(), nil
	case config.ProberFFprobe:
		return NewFFprobeProber(cfg.FFprobePath), nil
	default:
		return nil, fmt.Errorf("unsupported audio prober %q", cfg.AudioProber)
	}
}
