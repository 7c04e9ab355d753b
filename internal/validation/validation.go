package validation

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/desertthunder/reels/internal/shared"
)

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Resolution) String() string {
	if r.IsZero() {
		return ""
	}
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// IsZero reports whether no resolution is known.
func (r Resolution) IsZero() bool { return r.Width == 0 && r.Height == 0 }

// Exceeds reports whether r is wider or taller than limit.
func (r Resolution) Exceeds(limit Resolution) bool {
	return r.Width > limit.Width || r.Height > limit.Height
}

// ParseResolution parses "WIDTHxHEIGHT".
func ParseResolution(s string) (Resolution, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Resolution{}, fmt.Errorf("%w: resolution %q", shared.ErrInvalidInput, s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: resolution width %q", shared.ErrInvalidInput, w)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: resolution height %q", shared.ErrInvalidInput, h)
	}
	return Resolution{Width: width, Height: height}, nil
}

// Rules is the rule set applied to every video.
type Rules struct {
	MaxFileSize    int64
	MinDuration    float64 // seconds
	MaxDuration    float64 // seconds
	AllowedFormats []string
	AllowedCodecs  []string
	MaxResolution  Resolution
}

// DefaultRules returns the platform limits for training reels.
func DefaultRules() Rules {
	return Rules{
		MaxFileSize:    100 * 1024 * 1024,
		MinDuration:    5,
		MaxDuration:    30,
		AllowedFormats: []string{"video/mp4", "video/quicktime", "video/x-msvideo", "video/webm"},
		AllowedCodecs:  []string{"h264", "h265", "vp8", "vp9"},
		MaxResolution:  Resolution{Width: 1920, Height: 1080},
	}
}

// RulesFrom builds rules from the [validation] config section, keeping defaults for unset values.
func RulesFrom(cfg shared.ValidationConfig) (Rules, error) {
	rules := DefaultRules()
	if cfg.MaxFileSize > 0 {
		rules.MaxFileSize = cfg.MaxFileSize
	}
	if cfg.MinDuration > 0 {
		rules.MinDuration = cfg.MinDuration
	}
	if cfg.MaxDuration > 0 {
		rules.MaxDuration = cfg.MaxDuration
	}
	if len(cfg.AllowedFormats) > 0 {
		rules.AllowedFormats = cfg.AllowedFormats
	}
	if len(cfg.AllowedCodecs) > 0 {
		rules.AllowedCodecs = cfg.AllowedCodecs
	}
	if cfg.MaxResolution != "" {
		res, err := ParseResolution(cfg.MaxResolution)
		if err != nil {
			return Rules{}, err
		}
		rules.MaxResolution = res
	}
	if rules.MinDuration > rules.MaxDuration {
		return Rules{}, fmt.Errorf("%w: min_duration %v exceeds max_duration %v", shared.ErrInvalidConfig, rules.MinDuration, rules.MaxDuration)
	}
	return rules, nil
}

// FileInfo describes the file under validation.
type FileInfo struct {
	Path     string
	Name     string
	Size     int64
	MimeType string
}

// Result separates blocking errors from advisory warnings.
type Result struct {
	Valid      bool     `json:"valid"`
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`
	FileSize   int64    `json:"fileSize"`
	MimeType   string   `json:"mimeType,omitempty"`
	Duration   float64  `json:"duration,omitempty"`
	Resolution string   `json:"resolution,omitempty"`
	Codec      string   `json:"codec,omitempty"`
}

// Err returns nil for a valid result, otherwise [shared.ErrValidationFailed] listing every error.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("%w: %s", shared.ErrValidationFailed, strings.Join(r.Errors, "; "))
}

func (r *Result) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validator applies [Rules] using a [Prober] for media metadata.
type Validator struct {
	rules  Rules
	prober Prober
}

// NewValidator creates a validator. A nil prober skips media checks.
func NewValidator(rules Rules, prober Prober) *Validator {
	return &Validator{rules: rules, prober: prober}
}

// Rules returns the rule set in use.
func (v *Validator) Rules() Rules { return v.rules }

// Validate checks format and size, then probes the media only if both passed.
func (v *Validator) Validate(ctx context.Context, f FileInfo) Result {
	result := Result{Valid: true, Errors: []string{}, Warnings: []string{}, FileSize: f.Size, MimeType: f.MimeType}

	if !slices.Contains(v.rules.AllowedFormats, f.MimeType) {
		result.fail("Unsupported file format. Allowed formats: %s", strings.Join(v.rules.AllowedFormats, ", "))
	}

	if f.Size > v.rules.MaxFileSize {
		result.fail("File too large. Maximum size: %s", FormatFileSize(v.rules.MaxFileSize))
	}

	if !result.Valid || v.prober == nil || !strings.HasPrefix(f.MimeType, "video/") {
		return result
	}

	meta, err := v.prober.Probe(ctx, f.Path)
	if err != nil {
		result.fail("Unable to read video file. Please ensure it's a valid video file.")
		return result
	}

	codec := meta.Codec
	if codec == "" {
		codec = assumedCodec(f.MimeType)
	}
	result.Duration = meta.Duration
	result.Resolution = meta.Resolution.String()
	result.Codec = codec

	if meta.Duration > v.rules.MaxDuration {
		result.fail("Video too long. Maximum duration: %ss", formatSeconds(v.rules.MaxDuration))
	}
	if meta.Duration < v.rules.MinDuration {
		result.fail("Video too short. Minimum duration: %ss", formatSeconds(v.rules.MinDuration))
	}

	if !meta.Resolution.IsZero() && meta.Resolution.Exceeds(v.rules.MaxResolution) {
		result.warn("High resolution video. Recommended: %s or lower", v.rules.MaxResolution)
	}

	if !slices.Contains(v.rules.AllowedCodecs, codec) {
		result.warn("Unsupported codec: %s. Recommended: %s", codec, strings.Join(v.rules.AllowedCodecs, ", "))
	}

	return result
}

// ValidateFile detects the MIME type from the file content and validates it.
// The error is non-nil only when the file cannot be opened.
func (v *Validator) ValidateFile(ctx context.Context, path string) (Result, FileInfo, error) {
	info, err := Inspect(path)
	if err != nil {
		return Result{}, info, err
	}
	return v.Validate(ctx, info), info, nil
}

// Inspect stats path and sniffs its MIME type.
func Inspect(path string) (FileInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if stat.IsDir() {
		return FileInfo{}, fmt.Errorf("%w: %s is a directory", shared.ErrInvalidInput, path)
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to detect file type: %w", err)
	}

	return FileInfo{Path: path, Name: stat.Name(), Size: stat.Size(), MimeType: baseMIME(mtype)}, nil
}

// baseMIME strips parameters and resolves aliases such as video/avi.
func baseMIME(m *mimetype.MIME) string {
	for _, allowed := range DefaultRules().AllowedFormats {
		if m.Is(allowed) {
			return allowed
		}
	}
	base, _, _ := strings.Cut(m.String(), ";")
	return base
}

// assumedCodec is used when the container was probed without a video stream codec.
func assumedCodec(mimeType string) string {
	switch mimeType {
	case "video/mp4":
		return "h264"
	case "video/webm":
		return "vp8"
	}
	return "unknown"
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}
