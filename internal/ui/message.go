package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/reels/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgRunComplete
)

// runOutcome is what a [RunFunc] returned.
type runOutcome struct {
	result any
	err    error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// runCompleteMsg is the constructor for [MsgRunComplete]
func runCompleteMsg(result any, err error) Msg {
	return Msg{kind: MsgRunComplete, data: runOutcome{result, err}}
}
