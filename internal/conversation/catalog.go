package conversation

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type Stage struct {
	ID                int      `yaml:"id" json:"id"`
	Name              string   `yaml:"name" json:"name"`
	Description       string   `yaml:"description" json:"description"`
	KeyQuestions      []string `yaml:"key_questions" json:"key_questions"`
	DataToCollect     []string `yaml:"data_to_collect" json:"data_to_collect"`
	ProgressThreshold int      `yaml:"progress_threshold" json:"progress_threshold"`
}

type Persona struct {
	Name      string `yaml:"name" json:"name"`
	Role      string `yaml:"role" json:"role"`
	Tone      string `yaml:"tone" json:"tone"`
	Expertise string `yaml:"expertise" json:"expertise"`
}

// Catalog is the static conversation script: stages, plan personas and
// keyword lists used for insight extraction.
type Catalog struct {
	Stages           []Stage             `yaml:"stages"`
	DefaultPersona   string              `yaml:"default_persona"`
	Personas         map[string]Persona  `yaml:"personas"`
	ExpectedOutcomes []string            `yaml:"expected_outcomes"`
	InsightTopics    map[string][]string `yaml:"insight_topics"`
}

func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse conversation catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Stages) == 0 {
		return fmt.Errorf("conversation catalog has no stages")
	}
	for i, s := range c.Stages {
		if s.ID != i+1 {
			return fmt.Errorf("conversation catalog stage %d has id %d, stages must be numbered from 1 in order", i+1, s.ID)
		}
		if s.ProgressThreshold <= 0 || s.ProgressThreshold > 100 {
			return fmt.Errorf("stage %d progress threshold %d out of range", s.ID, s.ProgressThreshold)
		}
	}
	if _, ok := c.Personas[c.DefaultPersona]; !ok {
		return fmt.Errorf("default persona %q is not defined", c.DefaultPersona)
	}
	return nil
}

// Stage returns the stage with the given id, falling back to the first stage.
func (c *Catalog) Stage(id int) Stage {
	if id < 1 || id > len(c.Stages) {
		return c.Stages[0]
	}
	return c.Stages[id-1]
}

// Persona returns the persona for a plan, or the default persona for unknown plans.
func (c *Catalog) Persona(plan string) Persona {
	if p, ok := c.Personas[plan]; ok {
		return p
	}
	return c.Personas[c.DefaultPersona]
}

func (c *Catalog) TotalStages() int { return len(c.Stages) }
