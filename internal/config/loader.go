package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"onboarding_flow/internal/core"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed flows.yaml
var defaultFlows []byte

// FlowFile represents the structure of a flow table file
type FlowFile struct {
	Flows []core.FlowDefinition `yaml:"flows" toml:"flows"`
}

// LoadFlows reads flow definitions from path, or the built-in table when
// path is empty. The format follows the extension: .yaml, .yml or .toml.
func LoadFlows(path string) ([]core.FlowDefinition, error) {
	if path == "" {
		return ParseYAML(defaultFlows)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading flow file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".toml":
		return ParseTOML(data)
	default:
		return nil, fmt.Errorf("unsupported flow file format: %s", path)
	}
}

// ParseYAML decodes a YAML flow table
func ParseYAML(data []byte) ([]core.FlowDefinition, error) {
	var file FlowFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error parsing YAML: %w", err)
	}
	return file.Flows, nil
}

// ParseTOML decodes a TOML flow table
func ParseTOML(data []byte) ([]core.FlowDefinition, error) {
	var file FlowFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error parsing TOML: %w", err)
	}
	return file.Flows, nil
}

// LoadCatalog loads and validates the flow table
func LoadCatalog(path string) (*core.Catalog, error) {
	flows, err := LoadFlows(path)
	if err != nil {
		return nil, err
	}
	return core.NewCatalog(flows)
}
