package directory

import (
	"fmt"
	"os"

	"cityguardian/models"

	"gopkg.in/yaml.v3"
)

type yamlDirectory struct {
	DefaultEmail string              `yaml:"default_email"`
	Departments  []models.Department `yaml:"departments"`
}

// LoadYAML reads a directory file. The file's default_email wins over defaultEmail
// when both are set.
func LoadYAML(path, defaultEmail string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}
	return ParseYAML(data, defaultEmail)
}

// ParseYAML builds a directory from YAML document data.
func ParseYAML(data []byte, defaultEmail string) (*Directory, error) {
	var doc yamlDirectory
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse directory file: %w", err)
	}
	if doc.DefaultEmail != "" {
		defaultEmail = doc.DefaultEmail
	}
	if defaultEmail == "" {
		defaultEmail = DefaultEmail
	}
	return New(doc.Departments, defaultEmail)
}
