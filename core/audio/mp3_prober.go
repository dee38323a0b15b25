package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tcolgate/mp3"
)

// MP3Prober sums the durations of every MPEG audio frame in the stream.
// ID3 tags and junk between frames are skipped by the decoder.
type MP3Prober struct{}

func NewMP3Prober() *MP3Prober {
	return &MP3Prober{}
}

func (p *MP3Prober) Probe(ctx context.Context, r io.Reader) (time.Duration, error) {
	var (
		total   time.Duration
		frames  int
		frame   mp3.Frame
		skipped int
	)

	d := mp3.NewDecoder(r)
	for {
		if frames%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		err := d.Decode(&frame, &skipped)
		if err != nil {
			// 末尾被截断的帧不计入时长
			if errors.Is(err, io.EOF) || (frames > 0 && errors.Is(err, io.ErrUnexpectedEOF)) {
				break
			}
			return 0, fmt.Errorf("failed to decode mp3 frame %d: %w", frames, err)
		}
		total += frame.Duration()
		frames++
	}

	if frames == 0 || total <= 0 {
		return 0, ErrNoAudio
	}
	return total, nil
}
