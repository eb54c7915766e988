package scaffold

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/KevinKickass/FlasherCore/internal/types"
)

// NodeInfo describes one node directory below a root.
type NodeInfo struct {
	Name       string `json:"name"`
	HasProgram bool   `json:"has_program"`
	Board      string `json:"board,omitempty"`
}

// ListNodes returns the node directories below root, sorted by name.
// Hidden entries (staging directories included) are skipped. A root
// that does not exist yet has no nodes.
func (s *Scaffolder) ListNodes(root string) ([]NodeInfo, error) {
	root, err := CleanRoot(root)
	if err != nil {
		return nil, fail(StageResolve, root, err)
	}

	entries, err := afero.ReadDir(s.fs, root)
	if errors.Is(err, fs.ErrNotExist) {
		return []NodeInfo{}, nil
	}
	if err != nil {
		return nil, fail(StageListNodes, root, err)
	}

	nodes := make([]NodeInfo, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") || ValidateNodeName(e.Name()) != nil {
			continue
		}
		nl, err := s.files.Resolve(root, e.Name())
		if err != nil {
			continue
		}
		info := NodeInfo{Name: e.Name()}
		if ok, _ := s.isFile(nl.Program); ok {
			info.HasProgram = true
		}
		if data, err := afero.ReadFile(s.fs, nl.Board); err == nil {
			info.Board = ParseConfigDocument(string(data)).boardValue()
		}
		nodes = append(nodes, info)
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	return nodes, nil
}

// CreateNode scaffolds a new node. It fails with ErrNodeExists when the
// node directory is already present.
func (s *Scaffolder) CreateNode(target types.NodeTarget) (*Layout, error) {
	layout, err := s.Resolve(target)
	if err != nil {
		return nil, err
	}

	unlock := s.Lock(layout.Root)
	defer unlock()

	exists, err := s.isDir(layout.NodeDir)
	if err != nil {
		return nil, fail(StageResolve, layout.NodeDir, err)
	}
	if exists {
		return nil, fail(StageResolve, layout.NodeDir, fmt.Errorf("%w: %s", ErrNodeExists, target.NodeName))
	}

	if _, err := s.Ensure(layout); err != nil {
		return nil, err
	}
	return layout, nil
}

// RenameNode moves node from to to inside root.
func (s *Scaffolder) RenameNode(root, from, to string) (*Layout, error) {
	src, err := s.files.Resolve(root, from)
	if err != nil {
		return nil, fail(StageResolve, root, err)
	}
	dst, err := s.files.Resolve(root, to)
	if err != nil {
		return nil, fail(StageResolve, root, err)
	}

	unlock := s.Lock(src.Root)
	defer unlock()

	if ok, err := s.isDir(src.NodeDir); err != nil || !ok {
		if err == nil {
			err = fmt.Errorf("%w: %s", ErrNodeNotFound, from)
		}
		return nil, fail(StageResolve, src.NodeDir, err)
	}
	if _, err := s.fs.Stat(dst.NodeDir); err == nil {
		return nil, fail(StageResolve, dst.NodeDir, fmt.Errorf("%w: %s", ErrNodeExists, to))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fail(StageResolve, dst.NodeDir, err)
	}

	if err := s.fs.Rename(src.NodeDir, dst.NodeDir); err != nil {
		return nil, fail(StageMoveNode, dst.NodeDir, err)
	}

	s.logger.Info("Node renamed",
		zap.String("root", src.Root),
		zap.String("from", from),
		zap.String("to", to))

	return dst, nil
}

func (d *ConfigDocument) boardValue() string {
	v, _ := d.Get("board")
	return v
}
