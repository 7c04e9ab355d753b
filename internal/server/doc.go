// Package server exposes live upload state over a small local HTTP service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns, so "GET /uploads/{id}" style
// routes work and the wildcard is read with [http.Request.PathValue].
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple patterns and dispatch on [http.Request.Pattern].
//
// # Status Service
//
// [StatusHandler] reads from an [UploadSource] (the upload manager) and serves:
//
//	GET /uploads       every tracked upload
//	GET /uploads/{id}  one upload, 404 when unknown
//	GET /health        slot capacity and active upload count
//
// The upload commands start it with --status-addr through [Start] and stop it with [Server.Shutdown]
// once the upload finishes.
package server
