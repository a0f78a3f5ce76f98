package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest filenames checked in order at each directory level.
var manifestNames = []string{"refract.yaml", ".refract.yaml"}

// Manifest is a per-project server declaration checked into the source
// tree. The nearest manifest above the file being refactored wins over
// the user-level config.
type Manifest struct {
	Servers []ManifestServer `yaml:"servers"`

	// Path is where the manifest was found, not part of the YAML.
	Path string `yaml:"-"`
}

// ManifestServer names one analysis server a project uses.
type ManifestServer struct {
	Name      string   `yaml:"name"`
	Command   string   `yaml:"command"`
	Args      []string `yaml:"args"`
	Languages []string `yaml:"languages"`
}

// FindManifest walks from dir toward the filesystem root and returns
// the nearest manifest. Returns nil with no error when the path holds
// no manifest at all.
func FindManifest(dir string) (*Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	for {
		for _, name := range manifestNames {
			path := filepath.Join(abs, name)
			if _, err := os.Stat(path); err == nil {
				return LoadManifest(path)
			}
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return nil, nil
		}
		abs = parent
	}
}

// LoadManifest reads and decodes a single manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	m.Path = path
	return &m, nil
}

// ServerFor returns the first server claiming the given language. An
// empty language matches the first server listed. Returns nil when
// nothing matches.
func (m *Manifest) ServerFor(language string) *ManifestServer {
	if m == nil || len(m.Servers) == 0 {
		return nil
	}
	if language == "" {
		return &m.Servers[0]
	}
	for i := range m.Servers {
		for _, lang := range m.Servers[i].Languages {
			if strings.EqualFold(lang, language) {
				return &m.Servers[i]
			}
		}
	}
	return nil
}

// DetectLanguage returns the manifest language name for a file path.
// Returns "" for unknown extensions.
func DetectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".dart":
		return "dart"
	case ".go":
		return "go"
	case ".rs":
		return "rust"
	case ".ts", ".tsx":
		return "typescript"
	case ".js", ".jsx":
		return "javascript"
	case ".py":
		return "python"
	case ".rb":
		return "ruby"
	case ".java":
		return "java"
	case ".kt", ".kts":
		return "kotlin"
	case ".c", ".h":
		return "c"
	case ".cpp", ".cc", ".cxx", ".hpp":
		return "cpp"
	case ".cs":
		return "csharp"
	case ".swift":
		return "swift"
	default:
		return ""
	}
}
