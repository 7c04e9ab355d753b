// Package validation runs pre-flight checks on a video before any network call is made.
//
// A [Validator] checks the detected MIME type and file size, then probes the media for duration,
// resolution and codec. Errors block the upload; warnings are reported but do not.
package validation
