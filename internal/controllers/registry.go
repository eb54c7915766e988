package controllers

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed controllers.yaml
var defaultRegistry []byte

// ErrUnknownController is returned when neither an id nor an alias matches.
var ErrUnknownController = errors.New("unknown controller")

type registryFile struct {
	Controllers []*Profile `yaml:"controllers"`
}

// Registry resolves controller ids and aliases to profiles.
type Registry struct {
	profiles map[string]*Profile
	aliases  map[string]string
	logger   *zap.Logger
}

// NewRegistry loads the built-in registry and, when overridePath is set
// and exists, merges the override file on top (entries replaced by id).
func NewRegistry(overridePath string, logger *zap.Logger) (*Registry, error) {
	v, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	r := &Registry{
		profiles: make(map[string]*Profile),
		aliases:  make(map[string]string),
		logger:   logger,
	}

	if err := r.merge(v, defaultRegistry, "builtin"); err != nil {
		return nil, err
	}

	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Debug("No controller override file", zap.String("path", overridePath))
		case err != nil:
			return nil, fmt.Errorf("failed to read controller registry %s: %w", overridePath, err)
		default:
			if err := r.merge(v, data, overridePath); err != nil {
				return nil, err
			}
		}
	}

	logger.Info("Controller registry loaded", zap.Int("controllers", len(r.profiles)))

	return r, nil
}

func (r *Registry) merge(v *validator, data []byte, source string) error {
	if err := v.validateYAML(data); err != nil {
		return fmt.Errorf("validation failed for %s: %w", source, err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", source, err)
	}

	for _, p := range file.Controllers {
		if old, ok := r.profiles[p.ID]; ok {
			for _, alias := range old.Aliases {
				delete(r.aliases, strings.ToLower(alias))
			}
		}
		r.profiles[p.ID] = p
		for _, alias := range p.Aliases {
			r.aliases[strings.ToLower(alias)] = p.ID
		}
	}

	return nil
}

// Lookup resolves an id (exact) or alias (case-insensitive).
func (r *Registry) Lookup(name string) (*Profile, error) {
	if p, ok := r.profiles[name]; ok {
		return p, nil
	}
	if id, ok := r.aliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return r.profiles[id], nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownController, name)
}

// List returns all profiles sorted by id.
func (r *Registry) List() []*Profile {
	out := make([]*Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
