package scaffold

import (
	"errors"
	"fmt"
)

// Stage names the scaffolding step that failed.
type Stage string

const (
	StageResolve       Stage = "resolve"
	StageMkdirRoot     Stage = "mkdir_root"
	StageStageTemplate Stage = "stage_template"
	StageRenameNode    Stage = "rename_node"
	StageRenameSystem  Stage = "rename_system"
	StageCleanup       Stage = "cleanup"
	StageReadConfig    Stage = "read_config"
	StageWriteConfig   Stage = "write_config"
	StageClearProgram  Stage = "clear_program"
	StageAppendProgram Stage = "append_program"
	StageWriteBoard    Stage = "write_board"
	StageListNodes     Stage = "list_nodes"
	StageMoveNode      Stage = "move_node"
	StageReadProgram   Stage = "read_program"
)

var (
	ErrInvalidNodeName = errors.New("invalid node name")
	ErrNodeNotFound    = errors.New("node not found")
	ErrNodeExists      = errors.New("node already exists")
)

// ScaffoldError wraps a filesystem failure with the step it happened in.
type ScaffoldError struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *ScaffoldError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("scaffold %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("scaffold %s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *ScaffoldError) Unwrap() error { return e.Err }

func fail(stage Stage, path string, err error) error {
	return &ScaffoldError{Stage: stage, Path: path, Err: err}
}
