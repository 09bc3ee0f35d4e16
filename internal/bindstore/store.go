// Package bindstore persists mesh bindings across runs. Records are YAML
// encoded and kept in the platform data directory through gdata; without a
// data manager the store keeps them in memory for the life of the process.
package bindstore

import (
	"fmt"

	"github.com/quasilyte/gdata/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/animdirector/internal/director"
)

const (
	bindingsObject = "bindings"
	currentVersion = 1
)

// document is the stored layout.
type document struct {
	Version  int                      `yaml:"version"`
	Bindings []director.BindingRecord `yaml:"bindings"`
}

// Store loads and saves binding records under named profiles.
type Store struct {
	manager *gdata.Manager // nil means memory-only
	memory  map[string][]byte
	log     *zap.Logger
}

// Open creates a store for appName. An empty appName gives a memory-only
// store.
func Open(appName string, log *zap.Logger) (*Store, error) {
	if appName == "" {
		return New(nil, log), nil
	}
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("opening data dir for %s: %w", appName, err)
	}
	return New(m, log), nil
}

// New wraps an existing manager. A nil manager gives a memory-only store.
func New(manager *gdata.Manager, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		manager: manager,
		memory:  make(map[string][]byte),
		log:     log,
	}
}

// Persistent reports whether records outlive the process.
func (s *Store) Persistent() bool { return s.manager != nil }

// Exists reports whether profile has saved records.
func (s *Store) Exists(profile string) bool {
	profile = normalize(profile)
	if s.manager == nil {
		_, ok := s.memory[profile]
		return ok
	}
	return s.manager.ObjectPropExists(bindingsObject, profile)
}

// Save replaces the records stored under profile.
func (s *Store) Save(profile string, records []director.BindingRecord) error {
	profile = normalize(profile)
	data, err := yaml.Marshal(document{Version: currentVersion, Bindings: records})
	if err != nil {
		return fmt.Errorf("encoding bindings: %w", err)
	}
	if s.manager == nil {
		s.memory[profile] = data
	} else if err := s.manager.SaveObjectProp(bindingsObject, profile, data); err != nil {
		return fmt.Errorf("saving bindings %s: %w", profile, err)
	}
	s.log.Debug("bindings saved", zap.String("profile", profile), zap.Int("count", len(records)))
	return nil
}

// Load returns the records stored under profile. A missing profile yields
// no records and no error.
func (s *Store) Load(profile string) ([]director.BindingRecord, error) {
	profile = normalize(profile)
	var data []byte
	if s.manager == nil {
		var ok bool
		if data, ok = s.memory[profile]; !ok {
			return nil, nil
		}
	} else {
		if !s.manager.ObjectPropExists(bindingsObject, profile) {
			return nil, nil
		}
		var err error
		if data, err = s.manager.LoadObjectProp(bindingsObject, profile); err != nil {
			return nil, fmt.Errorf("loading bindings %s: %w", profile, err)
		}
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding bindings %s: %w", profile, err)
	}
	if doc.Version > currentVersion {
		return nil, fmt.Errorf("bindings %s: unsupported version %d", profile, doc.Version)
	}
	s.log.Debug("bindings loaded", zap.String("profile", profile), zap.Int("count", len(doc.Bindings)))
	return doc.Bindings, nil
}

// Clear empties profile. Stored data is overwritten rather than removed.
func (s *Store) Clear(profile string) error {
	if !s.Exists(profile) {
		return nil
	}
	return s.Save(profile, nil)
}

func normalize(profile string) string {
	if profile == "" {
		return "default"
	}
	return profile
}
