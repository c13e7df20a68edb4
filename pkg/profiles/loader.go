package profiles

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

const logPrefix = "profiles:loader"

// SupportedVersions is the constraint a profile file version must satisfy.
const SupportedVersions = "^1.0.0"

// Load loads profiles from file paths or environment. It tries paths in
// order: first any paths passed in, then PROFILES_FILE, then defaults. The
// first readable file is parsed, validated and merged over the built-in
// profiles. When no file is readable the built-in profiles are returned.
func Load(paths ...string) (*Set, error) {
	all := make([]string, 0, len(paths)+3)
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	if envPath := os.Getenv("PROFILES_FILE"); envPath != "" {
		all = append(all, envPath)
	}
	all = append(all, "config/profiles.yaml", "profiles.yaml")

	for _, p := range all {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		f, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s - %s: %w", logPrefix, p, err)
		}
		slog.Info(fmt.Sprintf("%s - Loaded profiles from %s", logPrefix, p))
		return NewSet(Merge(DefaultFile(), f)), nil
	}

	slog.Debug(fmt.Sprintf("%s - Using default profiles", logPrefix))
	return NewSet(DefaultFile()), nil
}

// Parse decodes and validates a profiles file.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid profiles YAML: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the file version and that every profile names a function.
func (f *File) Validate() error {
	if f.Version == "" {
		return fmt.Errorf("profiles file has no version")
	}
	v, err := semver.NewVersion(f.Version)
	if err != nil {
		return fmt.Errorf("invalid profiles version %q: %w", f.Version, err)
	}
	c, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return fmt.Errorf("unsupported profiles version %s (want %s)", f.Version, SupportedVersions)
	}
	for name, p := range f.Profiles {
		if p.AppID == "" || p.Zome == "" || p.Fn == "" {
			return fmt.Errorf("profile %q needs app_id, zome and fn", name)
		}
	}
	return nil
}

// DefaultFile returns the built-in profiles.
func DefaultFile() *File {
	return &File{
		Name:    "zomecall-defaults",
		Version: "1.0.0",
		Profiles: map[string]Profile{
			"squareroot": {
				Description: "Square root of a number",
				AppID:       "test-app",
				Zome:        "squareroots",
				Fn:          "square_root",
				Payload:     map[string]interface{}{"number": 7},
			},
			"pcrtest": {
				Description: "Book a PCR test for a patient",
				AppID:       "test-app",
				Zome:        "pcrtests",
				Fn:          "book_pcrtest",
				Payload:     map[string]interface{}{"patientinfo": "ab"},
			},
			"hotavgtrdprice": {
				Description: "Average HOT trade price for a year",
				AppID:       "test-app",
				Zome:        "holotoken",
				Fn:          "fetch_averagehot",
				Payload:     map[string]interface{}{"tradeyear": "2021"},
			},
		},
	}
}

// Merge merges override's profiles into base. Override wins on name clashes
// and its name and version replace base's.
func Merge(base, override *File) *File {
	merged := &File{
		Name:     base.Name,
		Version:  base.Version,
		Profiles: make(map[string]Profile, len(base.Profiles)+len(override.Profiles)),
	}
	for name, p := range base.Profiles {
		merged.Profiles[name] = p
	}
	for name, p := range override.Profiles {
		merged.Profiles[name] = p
	}
	if override.Name != "" {
		merged.Name = override.Name
	}
	if override.Version != "" {
		merged.Version = override.Version
	}
	return merged
}
