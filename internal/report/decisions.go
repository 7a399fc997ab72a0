package report

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/csvrepair-cli/internal/utils"
	"gopkg.in/yaml.v3"
)

// Decision pins the text column chosen for an ambiguous source line.
type Decision struct {
	Line   int    `json:"line" yaml:"line"`
	Column string `json:"column" yaml:"column"`
}

// Decisions is the on-disk form of recorded choices.
type Decisions struct {
	Input   string     `yaml:"input,omitempty"`
	Choices []Decision `yaml:"choices"`
}

// LoadDecisions reads a YAML decisions file.
func LoadDecisions(path string) (*Decisions, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read decisions: %w", err)
	}
	var d Decisions
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parse decisions: %w", err)
	}
	for _, c := range d.Choices {
		if c.Line <= 0 || c.Column == "" {
			return nil, fmt.Errorf("parse decisions: invalid entry line=%d column=%q", c.Line, c.Column)
		}
	}
	return &d, nil
}

// SaveDecisions writes d as YAML, replacing any existing file.
func SaveDecisions(path string, d *Decisions) error {
	b, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	return utils.SafeWriteFile(path, b)
}
