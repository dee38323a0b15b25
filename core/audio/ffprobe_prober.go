package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// ffprobeOutput defines the structure for ffprobe JSON output.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// FFprobeProber asks an external ffprobe binary for the container duration.
type FFprobeProber struct {
	ffprobePath string
}

func NewFFprobeProber(ffprobePath string) *FFprobeProber {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFprobeProber{ffprobePath: ffprobePath}
}

// Probe spools r to a temp file because ffprobe needs a seekable input.
func (p *FFprobeProber) Probe(ctx context.Context, r io.Reader) (time.Duration, error) {
	tmp, err := os.CreateTemp("", "tunebox-probe-*.mp3")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to spool audio for ffprobe: %w", err)
	}

	return p.probeFile(ctx, tmp.Name())
}

func (p *FFprobeProber) probeFile(ctx context.Context, inputFile string) (time.Duration, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		inputFile,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe execution failed for %s: %w\nFFprobe Error: %s", inputFile, err, stderr.String())
	}
	return parseFFprobeOutput(out.Bytes())
}

func parseFFprobeOutput(data []byte) (time.Duration, error) {
	var probeData ffprobeOutput
	if err := json.Unmarshal(data, &probeData); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ffprobe output: %w", err)
	}
	if probeData.Format.Duration == "" {
		return 0, ErrNoAudio
	}

	seconds, err := strconv.ParseFloat(probeData.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration string %q: %w", probeData.Format.Duration, err)
	}
	if seconds <= 0 {
		return 0, ErrNoAudio
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
