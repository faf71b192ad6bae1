package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"wishloop/internal/campaign"
)

// stageSpec is the YAML shape of one campaign stage.
type stageSpec struct {
	Key              string `yaml:"key"`
	TargetDelayHours int    `yaml:"target_delay_hours"`
	Policy           string `yaml:"policy"`
	SpanHours        int    `yaml:"span_hours"`
	AnchorHour       int    `yaml:"anchor_hour"`
	CooldownHours    int    `yaml:"cooldown_hours"`
	Subject          string `yaml:"subject"`
	Template         string `yaml:"template"`
}

type stageFile struct {
	Stages []stageSpec `yaml:"stages"`
}

// LoadStages reads and validates the campaign stage file. Any defect
// fails the run here, before a database connection is even opened.
func LoadStages(path string) ([]campaign.Stage, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stages file: %w", err)
	}

	var file stageFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse stages file %s: %w", path, err)
	}

	stages := make([]campaign.Stage, 0, len(file.Stages))
	for _, spec := range file.Stages {
		policy := campaign.WindowPolicy(spec.Policy)
		if spec.Policy == "" {
			policy = campaign.PolicyRelative
		}

		stages = append(stages, campaign.Stage{
			Key:         spec.Key,
			TargetDelay: time.Duration(spec.TargetDelayHours) * time.Hour,
			Policy:      policy,
			Span:        time.Duration(spec.SpanHours) * time.Hour,
			AnchorHour:  spec.AnchorHour,
			Cooldown:    time.Duration(spec.CooldownHours) * time.Hour,
			Subject:     spec.Subject,
			Template:    spec.Template,
		})
	}

	if err := campaign.ValidateStages(stages); err != nil {
		return nil, err
	}

	return stages, nil
}
