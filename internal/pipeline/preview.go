package pipeline

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/KevinKickass/FlasherCore/internal/codegen"
	"github.com/KevinKickass/FlasherCore/internal/deploy"
	"github.com/KevinKickass/FlasherCore/internal/types"
)

// Preview is what a deploy would write and run, computed without
// touching disk.
type Preview struct {
	Valid            bool                    `json:"valid"`
	ValidationErrors []types.ValidationError `json:"validation_errors,omitempty"`
	Program          []string                `json:"program,omitempty"`
	Board            string                  `json:"board,omitempty"`
	Diff             string                  `json:"diff,omitempty"`
	Command          *deploy.Command         `json:"command,omitempty"`
	Error            string                  `json:"error,omitempty"`
}

// Preview validates and generates the program and diffs it against the
// node's current program artifact.
func (p *Pipeline) Preview(req *types.DeployRequest) (*Preview, error) {
	layout, err := p.scaffolder.Resolve(req.NodeTarget)
	if err != nil {
		return nil, err
	}

	profile, verrs := p.validator.ValidateRequest(req.Controller, &req.Slots)
	if len(verrs) > 0 {
		return &Preview{ValidationErrors: verrs}, nil
	}

	lines, err := codegen.Generate(&req.Slots, p.catalog)
	if err != nil {
		return &Preview{Error: err.Error()}, nil
	}

	current, err := p.scaffolder.ReadProgram(layout)
	if err != nil {
		return nil, err
	}

	out := &Preview{
		Valid:   true,
		Program: lines,
		Board:   profile.Board,
		Diff:    LineDiff(current, joinLines(lines)),
	}

	if req.Transport != "" {
		cmd, err := p.builder.Build(req.Transport, req.Port, layout.NodeDir)
		if err != nil {
			out.Error = err.Error()
		} else {
			out.Command = &cmd
		}
	}

	return out, nil
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// LineDiff renders a line-level diff with " ", "-" and "+" prefixes.
// Identical inputs yield an empty string.
func LineDiff(before, after string) string {
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var out strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out.WriteString(prefix)
			out.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				out.WriteString("\n\\ No newline at end of file\n")
			}
		}
	}
	return out.String()
}
