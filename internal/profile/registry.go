package profile

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sanya94592-stack/ecu-editor/internal/ecuerr"
	"github.com/sanya94592-stack/ecu-editor/internal/logging"
)

//go:embed profiles/profiles.yaml
var profilesYAML []byte

// Registry is an immutable catalog of ECU profiles keyed by name.
type Registry struct {
	// profiles keeps catalog order for listing
	profiles []*ECUProfile

	// index maps profile names to entries for fast lookup
	index map[string]*ECUProfile
}

// catalogFile is for YAML unmarshaling
type catalogFile struct {
	Profiles []*ECUProfile `yaml:"profiles"`
}

var (
	// defaultRegistry is built from the embedded catalog on first use
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
	defaultRegistryErr  error
)

// Default returns the registry built from the embedded catalog.
// The catalog is parsed once; every call returns the same instance.
func Default() (*Registry, error) {
	defaultRegistryOnce.Do(func() {
		var profiles []*ECUProfile
		profiles, defaultRegistryErr = Parse(profilesYAML)
		if defaultRegistryErr != nil {
			defaultRegistryErr = fmt.Errorf("failed to parse embedded profiles.yaml: %w", defaultRegistryErr)
			return
		}
		defaultRegistry, defaultRegistryErr = NewRegistry(profiles...)
	})
	return defaultRegistry, defaultRegistryErr
}

// Parse decodes a profile catalog document. Profiles are validated but not
// checked for name collisions; NewRegistry does that.
func Parse(data []byte) ([]*ECUProfile, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid profile catalog: %w", err)
	}
	if len(file.Profiles) == 0 {
		return nil, fmt.Errorf("profile catalog defines no profiles")
	}

	for _, p := range file.Profiles {
		if p == nil {
			return nil, fmt.Errorf("profile catalog contains an empty entry")
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return file.Profiles, nil
}

// LoadFile reads a profile catalog from a YAML file on disk.
func LoadFile(path string) ([]*ECUProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ecuerr.IOError{Op: "read profiles", Path: path, Err: err}
	}
	profiles, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return profiles, nil
}

// LoadRegistry returns the built-in catalog extended with the profiles of
// each file, in order. Empty paths are skipped.
func LoadRegistry(files ...string) (*Registry, error) {
	reg, err := Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in profiles: %w", err)
	}

	for _, path := range files {
		if path == "" {
			continue
		}
		extra, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if reg, err = reg.With(extra...); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		logging.Debug("Loaded profile file", zap.String("path", path), zap.Int("profiles", len(extra)))
	}
	return reg, nil
}

// NewRegistry builds a registry from the given profiles. Profiles are copied,
// so later changes to the arguments do not affect the registry.
func NewRegistry(profiles ...*ECUProfile) (*Registry, error) {
	r := &Registry{
		profiles: make([]*ECUProfile, 0, len(profiles)),
		index:    make(map[string]*ECUProfile, len(profiles)),
	}

	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.index[p.Name]; dup {
			return nil, fmt.Errorf("duplicate profile %q", p.Name)
		}
		c := p.clone()
		r.profiles = append(r.profiles, c)
		r.index[c.Name] = c
	}

	return r, nil
}

// With returns a new registry holding r's profiles followed by extra.
// r itself is left unchanged.
func (r *Registry) With(extra ...*ECUProfile) (*Registry, error) {
	all := make([]*ECUProfile, 0, len(r.profiles)+len(extra))
	all = append(all, r.profiles...)
	all = append(all, extra...)
	return NewRegistry(all...)
}

// Lookup retrieves a profile by name.
func (r *Registry) Lookup(name string) (*ECUProfile, error) {
	p, ok := r.index[name]
	if !ok {
		return nil, &ecuerr.UnknownProfileError{Name: name, Available: r.Names()}
	}
	return p, nil
}

// Names returns all profile names in catalog order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for _, p := range r.profiles {
		names = append(names, p.Name)
	}
	return names
}

// MapNames returns the map names of the named profile.
func (r *Registry) MapNames(profileName string) ([]string, error) {
	p, err := r.Lookup(profileName)
	if err != nil {
		return nil, err
	}
	return p.MapNames(), nil
}

// List returns all profiles in catalog order.
func (r *Registry) List() []*ECUProfile {
	return append([]*ECUProfile(nil), r.profiles...)
}

// Count returns the number of profiles in the registry.
func (r *Registry) Count() int {
	return len(r.profiles)
}

// MatchSize returns the profiles whose image size equals n. Used to suggest
// a profile when the user did not pick one.
func (r *Registry) MatchSize(n int) []*ECUProfile {
	var matches []*ECUProfile
	for _, p := range r.profiles {
		if p.Size == n {
			matches = append(matches, p)
		}
	}
	return matches
}
