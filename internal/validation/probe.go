package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Metadata is what a [Prober] learns about a video.
type Metadata struct {
	Duration   float64
	Resolution Resolution
	Codec      string
}

// Prober reads media metadata from a file.
type Prober interface {
	Probe(ctx context.Context, path string) (Metadata, error)
}

// ProberFunc adapts a function to [Prober].
type ProberFunc func(ctx context.Context, path string) (Metadata, error)

func (f ProberFunc) Probe(ctx context.Context, path string) (Metadata, error) { return f(ctx, path) }

// FFProbe probes files with the ffprobe executable.
type FFProbe struct {
	Path string
	run  func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewFFProbe returns a prober that runs the executable at path ("ffprobe" when empty).
func NewFFProbe(path string) *FFProbe {
	if path == "" {
		path = "ffprobe"
	}
	return &FFProbe{Path: path, run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

type ffprobeOutput struct {
	Streams []struct {
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe implements [Prober].
func (p *FFProbe) Probe(ctx context.Context, path string) (Metadata, error) {
	out, err := p.run(ctx, p.Path,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_name,width,height,duration:format=duration",
		"-print_format", "json",
		path,
	)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to run ffprobe: %w", err)
	}
	return parseFFProbe(out)
}

func parseFFProbe(out []byte) (Metadata, error) {
	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(parsed.Streams) == 0 {
		return Metadata{}, fmt.Errorf("no video stream found")
	}

	stream := parsed.Streams[0]
	raw := parsed.Format.Duration
	if raw == "" {
		raw = stream.Duration
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to parse duration: %w", err)
	}

	return Metadata{
		Duration:   duration,
		Resolution: Resolution{Width: stream.Width, Height: stream.Height},
		Codec:      normalizeCodec(stream.CodecName),
	}, nil
}

func normalizeCodec(name string) string {
	switch name = strings.ToLower(name); name {
	case "hevc":
		return "h265"
	case "avc", "avc1":
		return "h264"
	}
	return name
}
