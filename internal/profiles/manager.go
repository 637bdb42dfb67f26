package profiles

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kadirbelkuyu/oracle2pg/internal/config"
	"gopkg.in/yaml.v3"
)

const defaultDir = "configs"

var fileNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Profile is a saved migration configuration.
type Profile struct {
	Name     string
	Path     string
	Owner    string
	Target   string
	Modified time.Time
}

// Manager discovers and persists migration profiles under a directory.
type Manager struct {
	dir string
}

// NewManager constructs a profile manager using the provided directory.
func NewManager(dir string) *Manager {
	if strings.TrimSpace(dir) == "" {
		dir = defaultDir
	}
	return &Manager{dir: dir}
}

// Directory returns the configured profile directory.
func (m *Manager) Directory() string {
	return m.dir
}

// List returns the loadable profiles, filtered by source owner when provided.
func (m *Manager) List(owner string) ([]Profile, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var profiles []Profile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !isProfileFile(name) {
			continue
		}
		path := filepath.Join(m.dir, name)
		cfg, err := config.LoadConfig(path)
		if err != nil {
			continue
		}
		if owner != "" && !strings.EqualFold(cfg.Source.Owner, owner) {
			continue
		}
		info, err := entry.Info()
		profiles = append(profiles, newProfile(name, path, cfg, modifiedTime(info, err)))
	}

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Name < profiles[j].Name
	})
	return profiles, nil
}

func newProfile(file, path string, cfg *config.Config, modified time.Time) Profile {
	return Profile{
		Name:     strings.TrimSuffix(file, filepath.Ext(file)),
		Path:     path,
		Owner:    cfg.Source.Owner,
		Target:   fmt.Sprintf("%s:%d/%s", cfg.Target.Host, cfg.Target.Port, cfg.Target.Database),
		Modified: modified,
	}
}

func isProfileFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".toml":
		return true
	}
	return false
}

func modifiedTime(info os.FileInfo, err error) time.Time {
	if err != nil || info == nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Save persists the provided config under the given alias and returns the resulting profile.
func (m *Manager) Save(alias string, cfg *config.Config) (Profile, error) {
	if cfg == nil {
		return Profile{}, fmt.Errorf("config cannot be nil")
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return Profile{}, err
	}

	base := strings.TrimSpace(alias)
	if base == "" {
		base = fmt.Sprintf("%s-%s", strings.ToLower(cfg.Source.Owner), time.Now().Format("20060102_150405"))
	}

	base = sanitizeName(base)
	if !strings.HasSuffix(strings.ToLower(base), ".yaml") && !strings.HasSuffix(strings.ToLower(base), ".yml") {
		base += ".yaml"
	}

	path := filepath.Join(m.dir, base)
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return Profile{}, err
	}

	// Profiles may hold passwords.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return Profile{}, err
	}

	return newProfile(base, path, cfg, time.Now()), nil
}

// Load reads a profile by alias or file path.
func (m *Manager) Load(alias string) (*config.Config, error) {
	if strings.TrimSpace(alias) == "" {
		return nil, fmt.Errorf("profile alias cannot be empty")
	}

	return config.LoadConfig(m.resolve(alias))
}

func (m *Manager) resolve(alias string) string {
	if strings.ContainsRune(alias, os.PathSeparator) {
		return alias
	}
	if isProfileFile(alias) {
		return filepath.Join(m.dir, alias)
	}
	return filepath.Join(m.dir, alias+".yaml")
}

func sanitizeName(input string) string {
	cleaned := fileNameSanitizer.ReplaceAllString(input, "_")
	cleaned = strings.Trim(cleaned, "_")
	if cleaned == "" {
		return "profile"
	}
	return cleaned
}

// Delete removes a saved profile.
func (m *Manager) Delete(alias string) error {
	if strings.TrimSpace(alias) == "" {
		return fmt.Errorf("profile alias cannot be empty")
	}

	path := m.resolve(alias)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("profile not found: %s", alias)
	}

	return os.Remove(path)
}
