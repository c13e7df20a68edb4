// Package profiles provides named call profiles: which app, zome function and
// payload a call targets.
package profiles

import (
	"encoding/json"
	"sort"
)

// Profile is one named call target.
type Profile struct {
	Description string      `yaml:"description,omitempty"`
	AppID       string      `yaml:"app_id"`
	Zome        string      `yaml:"zome"`
	Fn          string      `yaml:"fn"`
	Payload     interface{} `yaml:"payload,omitempty"`
}

// PayloadJSON returns the payload as compact JSON, or "null".
func (p *Profile) PayloadJSON() string {
	raw, err := json.Marshal(p.Payload)
	if err != nil {
		return "null"
	}
	return string(raw)
}

// File is the root of a profiles YAML file.
type File struct {
	Name     string             `yaml:"name"`
	Version  string             `yaml:"version"`
	Profiles map[string]Profile `yaml:"profiles"`
}

// Set provides lookup of loaded profiles.
type Set struct {
	name     string
	version  string
	profiles map[string]*Profile
}

// NewSet builds a Set for fast lookups.
func NewSet(f *File) *Set {
	profiles := make(map[string]*Profile, len(f.Profiles))
	for name, p := range f.Profiles {
		p := p
		profiles[name] = &p
	}
	return &Set{name: f.Name, version: f.Version, profiles: profiles}
}

// Get returns a profile by name, or nil.
func (s *Set) Get(name string) *Profile {
	return s.profiles[name]
}

// Names returns all profile names, sorted.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Name returns the profile file name.
func (s *Set) Name() string { return s.name }

// Version returns the profile file version.
func (s *Set) Version() string { return s.version }
