package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// DefaultFileName is the catalog resource looked up in each search path.
const DefaultFileName = "sensors.ini"

// LoadError reports that the catalog resource could not be loaded.
type LoadError struct {
	SearchPaths []string
	FileName    string
	Err         error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalog %s: %v", e.FileName, e.Err)
	}
	return fmt.Sprintf("catalog %s not found (searched in: %v)", e.FileName, e.SearchPaths)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Store holds the device and filter catalogs. It starts empty; Load and
// Reload replace the device catalog atomically.
type Store struct {
	searchPaths []string
	fileName    string
	logger      *zap.Logger

	mu      sync.RWMutex
	devices map[string]*DeviceType
	source  string
	filters map[string]*Filter
}

func NewStore(searchPaths []string, fileName string, logger *zap.Logger) *Store {
	if fileName == "" {
		fileName = DefaultFileName
	}
	return &Store{
		searchPaths: searchPaths,
		fileName:    fileName,
		logger:      logger,
		devices:     make(map[string]*DeviceType),
		filters:     BuiltinFilters(),
	}
}

// NewStaticStore builds a store around an in-memory device catalog.
func NewStaticStore(devices map[string]*DeviceType, logger *zap.Logger) *Store {
	s := NewStore(nil, "", logger)
	s.devices = devices
	return s
}

// Load reads the catalog from the first search path that has it. On
// failure the previous catalog stays in place (empty on first load).
func (s *Store) Load() error {
	path, err := s.locate()
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return &LoadError{SearchPaths: s.searchPaths, FileName: s.fileName, Err: err}
	}
	defer f.Close()

	devices, err := Parse(f)
	if err != nil {
		return &LoadError{SearchPaths: s.searchPaths, FileName: path, Err: err}
	}

	for _, dev := range devices {
		if err := dev.CheckTemplate(); err != nil {
			s.logger.Warn("Catalog entry has unresolved template tokens",
				zap.String("device", dev.Key),
				zap.Error(err))
		}
	}

	s.mu.Lock()
	s.devices = devices
	s.source = path
	s.mu.Unlock()

	s.logger.Info("Device catalog loaded",
		zap.String("path", path),
		zap.Int("devices", len(devices)))

	return nil
}

// Reload is Load under a name that reads well at call sites.
func (s *Store) Reload() error {
	return s.Load()
}

func (s *Store) locate() (string, error) {
	for _, searchPath := range s.searchPaths {
		fullPath := filepath.Join(searchPath, s.fileName)
		info, err := os.Stat(fullPath)
		if err == nil && !info.IsDir() {
			return fullPath, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("Catalog candidate not readable",
				zap.String("path", fullPath),
				zap.Error(err))
		}
	}
	return "", &LoadError{SearchPaths: s.searchPaths, FileName: s.fileName}
}

// Source returns the path of the loaded catalog file ("" if none).
func (s *Store) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Device resolves a device key (canonical or alias).
func (s *Store) Device(key string) (*DeviceType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[key]
	return d, ok
}

// Devices returns all catalog entries sorted by key, aliases included.
func (s *Store) Devices() []*DeviceType {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*DeviceType, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Filter resolves a filter key.
func (s *Store) Filter(key string) (*Filter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.filters[key]
	return f, ok
}

// Filters returns the filter catalog sorted by key.
func (s *Store) Filters() []*Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedFilters(s.filters)
}
