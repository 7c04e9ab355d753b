// Package ui implements a terminal progress view for uploads using bubbletea's Elm architecture.
//
// The (view) [Model] runs a [RunFunc] (a single publish or a bulk publish) in the background and
// renders its [tasks.ProgressUpdate] stream:
//  1. [ProgressView] : Phase, latest message, and a chunk progress bar (charmbracelet/bubbles/progress)
//  2. [ResultView] : Upload, reel, and job identifiers or the per-file bulk outcome
//
// Progress updates flow through a channel, one message per tea.Cmd, so the view never blocks the run.
// Pressing a (or ctrl+c) while running calls the abort function, which aborts the in-flight upload; the
// run then finishes with an error and the result view shows it. q quits once the run is over.
package ui
