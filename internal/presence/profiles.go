package presence

import (
	"fmt"
	"sort"
	"strings"

	"stillpoint/internal/config"
)

// Registry holds the loaded profile set and the shared size ceiling.
type Registry struct {
	profiles    map[string]Profile
	order       []string
	defaultName string
	ceiling     float64
}

// NewRegistry builds a Registry from configuration. Config validation has
// already rejected malformed profiles.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("presence registry requires config")
	}
	profiles := make(map[string]Profile, len(cfg.Presence.Profiles))
	order := make([]string, 0, len(cfg.Presence.Profiles))
	for name, pc := range cfg.Presence.Profiles {
		key := strings.ToLower(strings.TrimSpace(name))
		profiles[key] = Profile{
			Name:               key,
			MinSize:            pc.MinSize,
			MaxSize:            pc.MaxSize,
			MultiplierMin:      pc.MultiplierMin,
			MultiplierMax:      pc.MultiplierMax,
			ImmersionThreshold: pc.ImmersionThreshold,
			MaxImmersion:       pc.MaxImmersion,
			SmoothingFactor:    pc.SmoothingFactor,
		}
		order = append(order, key)
	}
	sort.Strings(order)

	defaultName := strings.ToLower(strings.TrimSpace(cfg.Presence.DefaultProfile))
	if _, ok := profiles[defaultName]; !ok {
		return nil, fmt.Errorf("default profile %q is not defined", defaultName)
	}

	return &Registry{
		profiles:    profiles,
		order:       order,
		defaultName: defaultName,
		ceiling:     cfg.Presence.SizeCeiling,
	}, nil
}

// Lookup returns the profile registered under name.
func (r *Registry) Lookup(name string) (Profile, bool) {
	profile, ok := r.profiles[strings.ToLower(strings.TrimSpace(name))]
	return profile, ok
}

// Default returns the configured default profile.
func (r *Registry) Default() Profile {
	return r.profiles[r.defaultName]
}

// Names returns the registered profile names in sorted order.
func (r *Registry) Names() []string {
	cp := make([]string, len(r.order))
	copy(cp, r.order)
	return cp
}

// Ceiling returns the hard presence size bound shared by all profiles.
func (r *Registry) Ceiling() float64 {
	return r.ceiling
}
