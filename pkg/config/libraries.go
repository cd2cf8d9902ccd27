package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Library is a named directory of fragment potential files
type Library struct {
	Name        string `yaml:"name"`
	Path        string `yaml:"path"`
	Description string `yaml:"description,omitempty"`
}

// Libraries holds the registered potential libraries
type Libraries struct {
	Libraries []Library `yaml:"libraries"`
	Selected  string    `yaml:"selected,omitempty"`
}

// LibrariesFile returns the default location of the library registry
func LibrariesFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".fragmd", "libraries.yaml"), nil
}

// LoadLibraries loads the library registry from the default location
func LoadLibraries() (*Libraries, error) {
	path, err := LibrariesFile()
	if err != nil {
		return nil, err
	}
	return LoadLibrariesFromFile(path)
}

// LoadLibrariesFromFile loads the library registry from a specific file
func LoadLibrariesFromFile(path string) (*Libraries, error) {
	// If file doesn't exist, return default registry
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return defaultLibraries(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read library registry: %w", err)
	}

	var libs Libraries
	if err := yaml.Unmarshal(data, &libs); err != nil {
		return nil, fmt.Errorf("failed to parse library registry: %w", err)
	}

	return &libs, nil
}

// SaveLibraries saves the library registry to the default location
func SaveLibraries(libs *Libraries) error {
	path, err := LibrariesFile()
	if err != nil {
		return err
	}
	return SaveLibrariesToFile(libs, path)
}

// SaveLibrariesToFile saves the library registry to a specific file
func SaveLibrariesToFile(libs *Libraries, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(libs)
	if err != nil {
		return fmt.Errorf("failed to marshal library registry: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write library registry: %w", err)
	}

	return nil
}

// Find returns the library with the given name
func (l *Libraries) Find(name string) (*Library, bool) {
	for i := range l.Libraries {
		if l.Libraries[i].Name == name {
			return &l.Libraries[i], true
		}
	}
	return nil, false
}

// Add registers a new library. Names must be unique.
func (l *Libraries) Add(lib Library) error {
	if _, ok := l.Find(lib.Name); ok {
		return fmt.Errorf("library %s already exists", lib.Name)
	}
	l.Libraries = append(l.Libraries, lib)
	return nil
}

// Remove drops a library, clearing the selection if it pointed at it
func (l *Libraries) Remove(name string) bool {
	kept := make([]Library, 0, len(l.Libraries))
	for _, lib := range l.Libraries {
		if lib.Name != name {
			kept = append(kept, lib)
		}
	}
	removed := len(kept) != len(l.Libraries)
	l.Libraries = kept
	if removed && l.Selected == name {
		l.Selected = ""
	}
	return removed
}

// SelectedPath returns the directory of the selected library, if any
func (l *Libraries) SelectedPath() (string, bool) {
	if l.Selected == "" {
		return "", false
	}
	lib, ok := l.Find(l.Selected)
	if !ok {
		return "", false
	}
	return lib.Path, true
}

// defaultLibraries returns the registry used before anything is saved
func defaultLibraries() *Libraries {
	return &Libraries{
		Libraries: []Library{
			{
				Name:        "system",
				Path:        DefaultFraglibPath,
				Description: "Fragment library installed with fragmd",
			},
		},
	}
}
