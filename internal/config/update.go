package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/vigil/internal/errors"
	"gopkg.in/yaml.v3"
)

// WriteDefault writes the default config to path. An existing file is only
// replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force && fileExists(path) {
		return errors.New(errors.ErrConfig,
			"Config file already exists: "+path,
			"Use --force to overwrite it")
	}

	data, err := Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot create config directory "+dir, "Check directory permissions")
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write config file", "Check file permissions for "+path)
	}
	return nil
}

// Marshal renders cfg as YAML with durations in their string form.
func Marshal(cfg *Config) ([]byte, error) {
	var buf strings.Builder
	buf.WriteString("# vigil configuration\n")
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(toYAML(cfg)); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig, "Failed to encode config", "")
	}
	encoder.Close()
	return []byte(buf.String()), nil
}

// yaml.v3 encodes time.Duration as an integer, so durations go out as strings.
type yamlStream struct {
	Interval string `yaml:"interval"`
	Capacity int    `yaml:"capacity"`
}

type yamlConfig struct {
	Version  int `yaml:"version"`
	Provider struct {
		URL         string `yaml:"url"`
		Timeout     string `yaml:"timeout"`
		ScanTimeout string `yaml:"scan_timeout"`
	} `yaml:"provider"`
	Streams map[string]yamlStream `yaml:"streams"`
	Export  ExportConfig          `yaml:"export"`
	Server  ServerConfig          `yaml:"server"`
	Alerts  AlertsConfig          `yaml:"alerts"`
	Archive ArchiveConfig         `yaml:"archive"`
}

func toYAML(cfg *Config) yamlConfig {
	out := yamlConfig{
		Version: cfg.Version,
		Streams: make(map[string]yamlStream, len(cfg.Streams)),
		Export:  cfg.Export,
		Server:  cfg.Server,
		Alerts:  cfg.Alerts,
		Archive: cfg.Archive,
	}
	out.Provider.URL = cfg.Provider.URL
	out.Provider.Timeout = cfg.Provider.Timeout.String()
	out.Provider.ScanTimeout = cfg.Provider.ScanTimeout.String()
	for id, s := range cfg.Streams {
		out.Streams[id] = yamlStream{Interval: s.Interval.String(), Capacity: s.Capacity}
	}
	return out
}

// SetValue sets a dotted key (e.g. "streams.traffic.interval") in the
// config file at path. Existing comments and ordering are preserved;
// missing intermediate mappings are created.
func SetValue(configPath, key, value string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file", "Run 'vigil config init' first")
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to parse config file", "Check the YAML syntax in "+configPath)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return errors.New(errors.ErrConfig, "Invalid YAML document structure", "")
	}

	node := root.Content[0]
	if node.Kind != yaml.MappingNode {
		return errors.New(errors.ErrConfig, "Expected mapping at document root", "")
	}

	parts := strings.Split(key, ".")
	for _, part := range parts[:len(parts)-1] {
		child := findMapValue(node, part)
		if child == nil {
			child = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			node.Content = append(node.Content, scalar(part), child)
		}
		if child.Kind != yaml.MappingNode {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("'%s' is not a section", part), "")
		}
		node = child
	}

	last := parts[len(parts)-1]
	if existing := findMapValue(node, last); existing != nil {
		existing.Kind = yaml.ScalarNode
		existing.Tag = ""
		existing.Value = value
		existing.Content = nil
	} else {
		v := scalar(value)
		v.Tag = ""
		node.Content = append(node.Content, scalar(last), v)
	}

	var buf strings.Builder
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&root); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Failed to encode config", "")
	}
	encoder.Close()

	if err := os.WriteFile(configPath, []byte(buf.String()), 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write config file", "Check file permissions for "+configPath)
	}
	return nil
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

// findMapValue finds a value in a mapping node by key name.
func findMapValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i < len(node.Content)-1; i += 2 {
		keyNode := node.Content[i]
		valueNode := node.Content[i+1]

		if keyNode.Kind == yaml.ScalarNode && keyNode.Value == key {
			return valueNode
		}
	}

	return nil
}
