// Package models defines domain entities and persistence interfaces for the reels uploader.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): plain structs mirrored from the platform backend
//   - [VideoUpload] : In-memory upload record tracked by the chunked upload manager
//   - [UploadChunk] : One byte range of an upload with its entity tag
//   - [ProcessingJob] : Transcoding/transcription/tagging job polled after upload
//   - [Reel] : Published training reel with its metadata
//
// 2. Persistent Entities: database-backed models with full lifecycle management
//   - [UploadSession] : Local ledger entry for an upload started from this machine
//
// Persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
