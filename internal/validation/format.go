package validation

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const maxFileNameLength = 255

var (
	invalidFileNameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	reservedFileNames    = []string{
		"CON", "PRN", "AUX", "NUL",
		"COM1", "COM2", "COM3", "COM4", "COM5", "COM6", "COM7", "COM8", "COM9",
		"LPT1", "LPT2", "LPT3", "LPT4", "LPT5", "LPT6", "LPT7", "LPT8", "LPT9",
	}
)

// FileNameResult reports problems with a file name and a safe replacement.
type FileNameResult struct {
	Valid     bool
	Errors    []string
	Sanitized string
}

// ValidateFileName checks for path characters, overly long names and reserved device names.
func ValidateFileName(name string) FileNameResult {
	result := FileNameResult{Sanitized: name}

	if invalidFileNameChars.MatchString(name) {
		result.Errors = append(result.Errors, "File name contains invalid characters")
		result.Sanitized = invalidFileNameChars.ReplaceAllString(name, "_")
	}

	if utf8.RuneCountInString(name) > maxFileNameLength {
		result.Errors = append(result.Errors, fmt.Sprintf("File name too long (max %d characters)", maxFileNameLength))
		result.Sanitized = string([]rune(result.Sanitized)[:maxFileNameLength])
	}

	stem, _, _ := strings.Cut(name, ".")
	if slices.Contains(reservedFileNames, strings.ToUpper(stem)) {
		result.Errors = append(result.Errors, "File name is reserved")
		result.Sanitized = "_" + result.Sanitized
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// UniqueFileName appends a timestamp and a short random suffix before the extension.
func UniqueFileName(name string, now time.Time, suffix string) string {
	ext := ""
	if i := strings.LastIndex(name, "."); i > 0 {
		name, ext = name[:i], name[i:]
	}
	return fmt.Sprintf("%s_%d_%s%s", name, now.UnixMilli(), suffix, ext)
}

// FormatFileSize renders bytes as "1.5 MB" with at most two decimals.
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	i := min(int(math.Floor(math.Log(float64(bytes))/math.Log(1024))), len(units)-1)
	value := float64(bytes) / math.Pow(1024, float64(i))
	return trimFloat(value, 2) + " " + units[i]
}

// FormatDuration renders seconds as "12s" or "1m 5s".
func FormatDuration(seconds float64) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", int(math.Round(seconds)))
	}
	minutes := int(seconds / 60)
	rest := int(math.Round(math.Mod(seconds, 60)))
	return fmt.Sprintf("%dm %ds", minutes, rest)
}

// OptimalChunkSize picks 1 MiB chunks below 10 MiB, 5 MiB below 100 MiB and 10 MiB otherwise.
func OptimalChunkSize(size int64) int64 {
	const mib = 1024 * 1024
	switch {
	case size < 10*mib:
		return mib
	case size < 100*mib:
		return 5 * mib
	default:
		return 10 * mib
	}
}

// EstimateUploadTime rounds size/bytesPerSecond up to whole seconds; the rate defaults to 1 MiB/s.
func EstimateUploadTime(size int64, bytesPerSecond float64) time.Duration {
	if bytesPerSecond <= 0 {
		bytesPerSecond = 1024 * 1024
	}
	return time.Duration(math.Ceil(float64(size)/bytesPerSecond)) * time.Second
}

// FormatUploadSpeed renders a transfer rate in B/s, KB/s or MB/s.
func FormatUploadSpeed(bytesPerSecond float64) string {
	if bytesPerSecond < 1024 {
		return trimFloat(bytesPerSecond, -1) + " B/s"
	}
	kbps := bytesPerSecond / 1024
	if kbps < 1024 {
		return strconv.FormatFloat(kbps, 'f', 1, 64) + " KB/s"
	}
	return strconv.FormatFloat(kbps/1024, 'f', 1, 64) + " MB/s"
}

// trimFloat rounds to prec decimals (any precision when negative) and drops trailing zeros.
func trimFloat(v float64, prec int) string {
	if prec >= 0 {
		p := math.Pow(10, float64(prec))
		v = math.Round(v*p) / p
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
