package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var nodeNamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// FileNames are the artifact names inside a configuration root.
type FileNames struct {
	SystemDoc    string `mapstructure:"system_doc"`
	NodeTemplate string `mapstructure:"node_template"`
	Program      string `mapstructure:"program"`
	Board        string `mapstructure:"board"`
}

// DefaultFileNames matches the layout of the upstream system template.
func DefaultFileNames() FileNames {
	return FileNames{
		SystemDoc:    "system.conf",
		NodeTemplate: "node_template",
		Program:      "setup.cpp",
		Board:        "node.conf",
	}
}

// Layout is the resolved on-disk structure of one node.
type Layout struct {
	Root      string `json:"root"`
	SystemDoc string `json:"system_doc"`
	NodeDir   string `json:"node_dir"`
	Program   string `json:"program"`
	Board     string `json:"board"`
}

// ValidateNodeName rejects names that are not a single safe path element.
func ValidateNodeName(name string) error {
	if !nodeNamePattern.MatchString(name) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidNodeName, name)
	}
	return nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Resolve computes the layout of node below root.
func (n FileNames) Resolve(root, node string) (*Layout, error) {
	if err := ValidateNodeName(node); err != nil {
		return nil, err
	}
	root, err := CleanRoot(root)
	if err != nil {
		return nil, err
	}
	nodeDir := filepath.Join(root, node)

	return &Layout{
		Root:      root,
		SystemDoc: filepath.Join(root, n.SystemDoc),
		NodeDir:   nodeDir,
		Program:   filepath.Join(nodeDir, n.Program),
		Board:     filepath.Join(nodeDir, n.Board),
	}, nil
}

// CleanRoot expands and cleans a configuration root path.
func CleanRoot(root string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", fmt.Errorf("configuration root is empty")
	}
	root, err := ExpandHome(root)
	if err != nil {
		return "", err
	}
	return filepath.Clean(root), nil
}
