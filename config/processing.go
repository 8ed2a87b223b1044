package config

import "time"

// ProcessingConfig controls the simulated processing pipeline. The
// stage list itself is fixed; these knobs bound how long each stage
// takes and how coarse its progress ticks are.
type ProcessingConfig struct {
	// StepDelayMin is the lower bound for the randomized delay between
	// progress ticks within a stage.
	StepDelayMin time.Duration `env:"PROCESSING_STEP_DELAY_MIN" envDefault:"50ms"`

	// StepDelayMax is the upper bound for the randomized inter-tick delay.
	StepDelayMax time.Duration `env:"PROCESSING_STEP_DELAY_MAX" envDefault:"500ms"`

	// StepPercentMax is the ceiling for one randomized progress increment
	// within a stage (percent of that stage).
	StepPercentMax float64 `env:"PROCESSING_STEP_PERCENT_MAX" envDefault:"25"`

	// OutputRoot is the directory artifacts are written under.
	OutputRoot string `env:"PROCESSING_OUTPUT_ROOT" envDefault:"output"`
}

// Sanitize applies guardrails to processing configuration values.
func (p *ProcessingConfig) Sanitize() {
	if p.StepDelayMin <= 0 {
		p.StepDelayMin = time.Millisecond
	}
	if p.StepDelayMax < p.StepDelayMin {
		p.StepDelayMax = p.StepDelayMin
	}
	if p.StepPercentMax <= 0 || p.StepPercentMax > 100 {
		p.StepPercentMax = 25
	}
	if p.OutputRoot == "" {
		p.OutputRoot = "output"
	}
}
