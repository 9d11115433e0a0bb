package catalog

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Loader reads the catalog file.
type Loader struct {
	filePath string
	lookup   func(string) (string, bool)
}

func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
		lookup:   os.LookupEnv,
	}
}

func (l *Loader) Path() string { return l.filePath }

// Load reads and parses the catalog. Unknown keys are rejected.
func (l *Loader) Load() (Catalog, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return l.Parse(data)
}

// Parse decodes catalog YAML after expanding ${VAR} references.
func (l *Loader) Parse(data []byte) (Catalog, error) {
	data = l.expandEnv(data)

	var cat Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cat); err != nil {
		return Catalog{}, fmt.Errorf("failed to parse catalog yaml: %w", err)
	}
	return cat, nil
}

// expandEnv replaces ${VAR} with its value; unset variables become empty.
// Example: ${STATUS_HOST} -> status.example.com
func (l *Loader) expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envRef.FindSubmatch(m)[1]
		v, _ := l.lookup(string(name))
		return []byte(v)
	})
}
