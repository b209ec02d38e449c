package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"pdfscan/internal/models"
)

// YAMLConfig represents the structure of the config.yaml file.
type YAMLConfig struct {
	Keywords []KeywordConfig `yaml:"keywords"`
	Pipeline PipelineConfig  `yaml:"pipeline"`
}

// KeywordConfig is one seed keyword. A bare string is accepted as shorthand
// for a keyword without description.
type KeywordConfig struct {
	Keyword     string `yaml:"keyword"`
	Description string `yaml:"description,omitempty"`
}

// UnmarshalYAML accepts either a scalar or a mapping.
func (k *KeywordConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		k.Keyword = node.Value
		return nil
	}
	type plain KeywordConfig
	return node.Decode((*plain)(k))
}

// PipelineConfig overrides pipeline settings not given in the environment.
type PipelineConfig struct {
	SourceDir      string   `yaml:"source_dir"`
	DestDir        string   `yaml:"dest_dir"`
	ContextWindow  *int     `yaml:"context_window"`
	DedupPolicy    string   `yaml:"dedup_policy"`
	ExtractEngines []string `yaml:"extract_engines"`
	RunSchedule    string   `yaml:"run_schedule"`
}

// LoadYAMLConfig loads the YAML configuration file.
// Path is determined by CONFIG_FILE env var, defaulting to "config.yaml".
// Returns nil without error if the config file doesn't exist.
func LoadYAMLConfig() (*YAMLConfig, error) {
	return LoadYAMLFile(getEnv("CONFIG_FILE", "config.yaml"))
}

// LoadYAMLFile loads the YAML configuration at path; a missing file yields nil.
func LoadYAMLFile(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file is optional
			return nil, nil
		}
		return nil, err
	}

	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SeedKeywords returns the configured keywords, trimmed, without blanks.
func (c *YAMLConfig) SeedKeywords() []models.Keyword {
	if c == nil {
		return nil
	}
	var keywords []models.Keyword
	for _, k := range c.Keywords {
		text := strings.TrimSpace(k.Keyword)
		if text == "" {
			continue
		}
		kw := models.Keyword{Keyword: text}
		if desc := strings.TrimSpace(k.Description); desc != "" {
			kw.Description = &desc
		}
		keywords = append(keywords, kw)
	}
	return keywords
}
