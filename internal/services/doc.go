// Package services is the HTTP client for the training-reel platform backend.
//
// # Transport
//
// [APIService] joins paths to the configured base URL and sends JSON. Its [http.Client] uses an
// [oauth2.Transport] whose token source reads the [TokenStore] on every request, so the bearer
// token is attached to every call without threading it through the API groups. The token's JWT
// exp claim is decoded (unverified) to refuse expired tokens before a request leaves the machine.
//
// # API Groups
//
//   - [UploadAPI] : /uploads initiate, complete, status, cancel, active, resume
//   - [TranscodingAPI] : /transcoding jobs, retry, result, queue
//   - [ReelsAPI] : /reels create, get, delete, search
//   - [AuthAPI] : /auth/login and the local session
//
// # Error Handling
//
// Any non-2xx response becomes an [*APIError] that matches [shared.ErrAPIRequest] with errors.Is.
// A 401 also matches [shared.ErrNotAuthenticated] and clears the stored token as a side effect.
// Missing or expired tokens fail with [shared.ErrNotAuthenticated] or [shared.ErrTokenExpired].
package services
