// Package upload splits a local file into fixed-size byte ranges and PUTs them to pre-signed URLs.
//
// A [Manager] tracks one [models.VideoUpload] per upload id and bounds each upload's in-flight
// chunk transfers with its own FIFO [Semaphore]. Failed chunks are retried with linear backoff and
// progress snapshots go to a caller-supplied channel. Each upload runs under its own cancellable context so [Manager.AbortUpload]
// interrupts in-flight requests and prevents further attempts.
package upload
