// Package pipeline describes the asm -> verify -> write build pipeline
// as a stream of events, the way the teacher's buildpipeline package
// describes its own parse -> diagnose -> lower -> build -> link -> run
// stages. cmd/hlbc's build subcommand fans these events into
// internal/ui's progress model.
package pipeline

// Stage identifies one step of the build pipeline for a single source
// file.
type Stage uint8

const (
	StageAsm Stage = iota
	StageVerify
	StageWrite
)

// Status is a stage's current disposition for one file.
type Status uint8

const (
	StatusQueued Status = iota
	StatusWorking
	StatusDone
	StatusError
)

// Event reports a (file, stage, status) transition. File is empty for
// pipeline-wide events (e.g. a stage-level label update with no
// per-file detail).
type Event struct {
	File   string
	Stage  Stage
	Status Status
	Err    error
}
