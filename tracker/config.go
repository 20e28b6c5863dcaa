package tracker

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type InputConfig struct {
	// Folder is scanned for the most recently modified CSV/XLSX feed.
	Folder string `yaml:"folder"`
	// File, when set, is used directly and Folder is ignored.
	File string `yaml:"file"`
}

type TrackingConfig struct {
	Folder   string `yaml:"folder"`
	Basename string `yaml:"basename"`
	// FixedName writes one <basename>.xlsx instead of timestamped artifacts.
	FixedName bool `yaml:"fixed_name"`
	// Backup copies the existing fixed-name workbook aside before overwrite.
	// Defaults to true; only meaningful with fixed_name.
	Backup *bool `yaml:"backup"`
}

type LedgerConfig struct {
	Folder string `yaml:"folder"`
	Prefix string `yaml:"prefix"`
}

// RecipientList accepts either a YAML sequence or a comma-separated scalar:
//
//	to: [a@x.com, b@x.com]
//	to: a@x.com, b@x.com
type RecipientList []string

func (r *RecipientList) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case yaml.ScalarNode:
		var out []string
		for _, p := range strings.Split(value.Value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*r = out
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := value.Decode(&out); err != nil {
			return err
		}
		*r = out
		return nil
	default:
		return nil
	}
}

type NotifyConfig struct {
	SMTPAddr       string        `yaml:"smtp_addr"`
	From           string        `yaml:"from"`
	To             RecipientList `yaml:"to"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
}

type FileConfig struct {
	Input    InputConfig    `yaml:"input"`
	Tracking TrackingConfig `yaml:"tracking"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Notify   NotifyConfig   `yaml:"notify"`

	// CommentSource selects the carry-forward strategy: "archive" (default)
	// or "view".
	CommentSource string `yaml:"comment_source"`

	// SkipDuplicateInput skips a run when the resolved feed file was already
	// processed (same path and content digest).
	SkipDuplicateInput bool `yaml:"skip_duplicate_input"`

	Debug bool `yaml:"debug"`
}

func LoadConfig(path string) (*FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
