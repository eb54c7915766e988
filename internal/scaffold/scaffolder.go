package scaffold

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/KevinKickass/FlasherCore/internal/types"
)

// Outcome tells which path Ensure took.
type Outcome string

const (
	OutcomeCreatedRoot Outcome = "created_root"
	OutcomeCreatedNode Outcome = "created_node"
	OutcomeExisting    Outcome = "existing"
)

const stagingPrefix = ".init_tmp-"

// Scaffolder materializes node project structures from a template
// directory holding the system document and the node template.
type Scaffolder struct {
	fs          afero.Fs
	templateDir string
	files       FileNames
	locks       *RootLocks
	logger      *zap.Logger
}

func NewScaffolder(fsys afero.Fs, templateDir string, files FileNames, logger *zap.Logger) *Scaffolder {
	return &Scaffolder{
		fs:          fsys,
		templateDir: os.ExpandEnv(templateDir),
		files:       files,
		locks:       NewRootLocks(),
		logger:      logger,
	}
}

// Resolve computes the layout for a node without touching disk.
func (s *Scaffolder) Resolve(target types.NodeTarget) (*Layout, error) {
	layout, err := s.files.Resolve(target.Folder, target.NodeName)
	if err != nil {
		return nil, fail(StageResolve, target.Folder, err)
	}
	return layout, nil
}

// Lock serializes callers working on the same root.
func (s *Scaffolder) Lock(root string) func() {
	return s.locks.Lock(root)
}

// Ensure brings the node scaffold into existence. Creation always goes
// through a staging directory inside the root followed by renames, so a
// failure never leaves a node directory that looks complete. Callers
// hold the root lock.
func (s *Scaffolder) Ensure(layout *Layout) (Outcome, error) {
	systemExists, err := s.isFile(layout.SystemDoc)
	if err != nil {
		return "", fail(StageResolve, layout.SystemDoc, err)
	}
	nodeExists, err := s.isDir(layout.NodeDir)
	if err != nil {
		return "", fail(StageResolve, layout.NodeDir, err)
	}

	switch {
	case !systemExists:
		if err := s.createRoot(layout, nodeExists); err != nil {
			return "", err
		}
		s.logger.Info("Configuration root initialized",
			zap.String("root", layout.Root),
			zap.String("node", layout.NodeDir))
		return OutcomeCreatedRoot, nil

	case !nodeExists:
		if err := s.createNode(layout); err != nil {
			return "", err
		}
		s.logger.Info("Node scaffold created", zap.String("node", layout.NodeDir))
		return OutcomeCreatedNode, nil

	default:
		return OutcomeExisting, nil
	}
}

func (s *Scaffolder) createRoot(layout *Layout, nodeExists bool) error {
	if err := s.fs.MkdirAll(layout.Root, 0o755); err != nil {
		return fail(StageMkdirRoot, layout.Root, err)
	}

	staging, err := afero.TempDir(s.fs, layout.Root, stagingPrefix)
	if err != nil {
		return fail(StageStageTemplate, layout.Root, err)
	}
	defer s.removeStaging(staging)

	if err := s.copyTree(s.templateDir, staging); err != nil {
		return fail(StageStageTemplate, s.templateDir, err)
	}

	if !nodeExists {
		src := filepath.Join(staging, s.files.NodeTemplate)
		if err := s.fs.Rename(src, layout.NodeDir); err != nil {
			return fail(StageRenameNode, layout.NodeDir, err)
		}
	}

	// The system document goes last: its presence marks a complete root.
	src := filepath.Join(staging, s.files.SystemDoc)
	if err := s.fs.Rename(src, layout.SystemDoc); err != nil {
		return fail(StageRenameSystem, layout.SystemDoc, err)
	}

	if err := s.fs.RemoveAll(staging); err != nil {
		return fail(StageCleanup, staging, err)
	}
	return nil
}

func (s *Scaffolder) createNode(layout *Layout) error {
	staging, err := afero.TempDir(s.fs, layout.Root, stagingPrefix)
	if err != nil {
		return fail(StageStageTemplate, layout.Root, err)
	}
	defer s.removeStaging(staging)

	staged := filepath.Join(staging, filepath.Base(layout.NodeDir))
	src := filepath.Join(s.templateDir, s.files.NodeTemplate)
	if err := s.copyTree(src, staged); err != nil {
		return fail(StageStageTemplate, src, err)
	}

	if err := s.fs.Rename(staged, layout.NodeDir); err != nil {
		return fail(StageRenameNode, layout.NodeDir, err)
	}

	if err := s.fs.RemoveAll(staging); err != nil {
		return fail(StageCleanup, staging, err)
	}
	return nil
}

// removeStaging is the failure-path cleanup; success paths remove the
// staging directory explicitly and report errors.
func (s *Scaffolder) removeStaging(dir string) {
	if err := s.fs.RemoveAll(dir); err != nil {
		s.logger.Warn("Failed to remove staging directory",
			zap.String("path", dir),
			zap.Error(err))
	}
}

// copyTree copies the directory src to dst, which must not exist yet.
func (s *Scaffolder) copyTree(src, dst string) error {
	info, err := s.fs.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("template %s is not a directory", src)
	}

	return afero.Walk(s.fs, src, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return s.fs.MkdirAll(target, info.Mode().Perm()|0o700)
		}
		if !info.Mode().IsRegular() {
			s.logger.Debug("Skipping non-regular template entry", zap.String("path", path))
			return nil
		}
		return s.copyFile(path, target, info.Mode().Perm())
	})
}

func (s *Scaffolder) copyFile(src, dst string, perm fs.FileMode) error {
	in, err := s.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := s.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// MergeCredentials rewrites the system document with the supplied
// credentials. Empty credential fields leave existing lines in place.
func (s *Scaffolder) MergeCredentials(layout *Layout, creds types.Credentials) error {
	updates := CredentialSettings(creds)
	if len(updates) == 0 {
		return nil
	}

	data, err := afero.ReadFile(s.fs, layout.SystemDoc)
	if err != nil {
		return fail(StageReadConfig, layout.SystemDoc, err)
	}

	doc := ParseConfigDocument(string(data))
	doc.Merge(updates)

	if err := s.writeAtomic(layout.SystemDoc, []byte(doc.String())); err != nil {
		return fail(StageWriteConfig, layout.SystemDoc, err)
	}

	keys := make([]string, 0, len(updates))
	for _, u := range updates {
		keys = append(keys, u.Key)
	}
	s.logger.Debug("System configuration merged",
		zap.String("path", layout.SystemDoc),
		zap.Strings("keys", keys))

	return nil
}

// ReadSystemDoc parses the current system document.
func (s *Scaffolder) ReadSystemDoc(layout *Layout) (*ConfigDocument, error) {
	data, err := afero.ReadFile(s.fs, layout.SystemDoc)
	if err != nil {
		return nil, fail(StageReadConfig, layout.SystemDoc, err)
	}
	return ParseConfigDocument(string(data)), nil
}

// ClearProgram truncates (or creates) the program artifact.
func (s *Scaffolder) ClearProgram(layout *Layout) error {
	if err := afero.WriteFile(s.fs, layout.Program, nil, 0o644); err != nil {
		return fail(StageClearProgram, layout.Program, err)
	}
	return nil
}

// AppendProgram appends one line per statement to the program artifact.
func (s *Scaffolder) AppendProgram(layout *Layout, lines []string) error {
	f, err := s.fs.OpenFile(layout.Program, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fail(StageAppendProgram, layout.Program, err)
	}

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return fail(StageAppendProgram, layout.Program, err)
	}
	if err := f.Close(); err != nil {
		return fail(StageAppendProgram, layout.Program, err)
	}
	return nil
}

// ReadProgram returns the current program artifact; a missing file reads
// as empty.
func (s *Scaffolder) ReadProgram(layout *Layout) (string, error) {
	data, err := afero.ReadFile(s.fs, layout.Program)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fail(StageReadProgram, layout.Program, err)
	}
	return string(data), nil
}

// WriteBoard overwrites the board descriptor.
func (s *Scaffolder) WriteBoard(layout *Layout, board string) error {
	content := fmt.Sprintf("board=%q\n", board)
	if err := afero.WriteFile(s.fs, layout.Board, []byte(content), 0o644); err != nil {
		return fail(StageWriteBoard, layout.Board, err)
	}
	return nil
}

func (s *Scaffolder) writeAtomic(path string, data []byte) error {
	tmp, err := afero.TempFile(s.fs, filepath.Dir(path), "."+filepath.Base(path)+"-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = s.fs.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return err
	}
	if err := s.fs.Chmod(tmpName, 0o644); err != nil {
		_ = s.fs.Remove(tmpName)
		return err
	}
	if err := s.fs.Rename(tmpName, path); err != nil {
		_ = s.fs.Remove(tmpName)
		return err
	}
	return nil
}

func (s *Scaffolder) isFile(path string) (bool, error) {
	info, err := s.fs.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

func (s *Scaffolder) isDir(path string) (bool, error) {
	info, err := s.fs.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
