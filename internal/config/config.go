// Package config loads starsynth scenario files. A scenario is one
// YAML document holding the generation settings, the observation spec
// and logging options, so a single file drives the whole pipeline.
package config

import (
	"fmt"
	"os"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/nordlund/starsynth/internal/observe"
	"github.com/nordlund/starsynth/internal/popmodel"
)

// Config is one scenario file.
type Config struct {
	Generation  GenerationConfig  `yaml:"generation"`
	Observation ObservationConfig `yaml:"observation"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig configures operational logging.
type LoggingConfig struct {
	// Level sets verbosity: "info" (default), "debug", or "trace".
	// "debug" and "trace" enable the JSONL sampling trace.
	Level string `yaml:"level"`
}

// GenerationConfig drives the population sampler.
type GenerationConfig struct {
	// Bursts holds star-formation bursts as [t_low, t_high] or
	// [t_low, t_high, weight] rows, ages in Gyr.
	Bursts [][]float64 `yaml:"bursts"`

	// NS is the target number of accepted stars.
	NS int `yaml:"ns"`

	FeHMean float64 `yaml:"feh_mean"`
	FeHDisp float64 `yaml:"feh_disp"`

	// IMFAlpha is the power-law exponent; 2.35 is the Salpeter slope.
	IMFAlpha float64 `yaml:"imf_alpha"`

	Seed uint64 `yaml:"seed"`

	// ExtraGiants in [0, 1] forces that fraction of the final sample
	// to be giants.
	ExtraGiants float64 `yaml:"extra_giants"`

	// MaxRejects caps rejected draws; 0 uses the sampler default.
	MaxRejects int `yaml:"max_rejects"`
}

// Validate checks the generation settings.
func (c GenerationConfig) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.NS, validation.Required, validation.Min(1)),
		validation.Field(&c.IMFAlpha, validation.Required, validation.Min(1.0).Exclusive()),
		validation.Field(&c.FeHDisp, validation.Min(0.0)),
		validation.Field(&c.ExtraGiants, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.MaxRejects, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("generation: %w", err)
	}
	_, err := c.BurstModel()
	return err
}

// BurstModel converts the burst rows to a population model. Rows must
// have two columns (interval) or three (interval plus weight).
func (c GenerationConfig) BurstModel() (popmodel.Bursts, error) {
	if len(c.Bursts) == 0 {
		return nil, fmt.Errorf("generation: no star-formation bursts configured")
	}
	bursts := make(popmodel.Bursts, len(c.Bursts))
	for i, row := range c.Bursts {
		switch len(row) {
		case 2:
			bursts[i] = popmodel.Burst{TLow: row[0], THigh: row[1], Weight: 1}
		case 3:
			bursts[i] = popmodel.Burst{TLow: row[0], THigh: row[1], Weight: row[2]}
		default:
			return nil, fmt.Errorf("generation: burst row %d has %d columns, want 2 or 3", i, len(row))
		}
	}
	if err := bursts.Validate(); err != nil {
		return nil, err
	}
	return bursts, nil
}

// ObservationConfig drives the observation simulator.
type ObservationConfig struct {
	Seed   uint64            `yaml:"seed"`
	Params ObservationParams `yaml:"params"`
}

// Spec converts the configured parameter list to an observation spec.
func (c ObservationConfig) Spec() (observe.Spec, error) {
	spec := observe.Spec{Params: make([]observe.ParamSpec, 0, len(c.Params.Entries))}
	for _, e := range c.Params.Entries {
		p := observe.ParamSpec{Name: e.Name, Sigma: e.Sigma}
		if e.Name == "plx" {
			policy, err := observe.ParsePlxPolicy(e.Token, e.Number, e.IsNumber)
			if err != nil {
				return observe.Spec{}, err
			}
			p.Plx = policy
		} else {
			if !e.IsNumber {
				return observe.Spec{}, fmt.Errorf("observation: parameter %q needs a numeric uncertainty, got %q", e.Name, e.Token)
			}
			p.Sigma = e.Number
		}
		spec.Params = append(spec.Params, p)
	}
	return spec, nil
}

// ParamEntry is one requested observable as written in the scenario
// file: a number (uncertainty, or constant parallax for plx), a token
// (parallax policy), or a mapping with explicit policy and sigma.
type ParamEntry struct {
	Name     string
	Number   float64
	IsNumber bool
	Token    string
	Sigma    float64
}

// ObservationParams preserves the file order of requested parameters;
// column order in the observed catalog follows it.
type ObservationParams struct {
	Entries []ParamEntry
}

// UnmarshalYAML decodes the params mapping without losing key order.
func (p *ObservationParams) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("observation params: expected a mapping, got %s", node.Tag)
	}
	for i := 0; i < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		entry := ParamEntry{Name: key.Value}

		switch val.Kind {
		case yaml.ScalarNode:
			if n, err := strconv.ParseFloat(val.Value, 64); err == nil {
				entry.Number, entry.IsNumber = n, true
				if entry.Name != "plx" {
					entry.Sigma = n
				}
			} else {
				entry.Token = val.Value
			}
		case yaml.MappingNode:
			var ext struct {
				Policy string  `yaml:"policy"`
				Sigma  float64 `yaml:"sigma"`
			}
			if err := val.Decode(&ext); err != nil {
				return fmt.Errorf("observation params: %q: %w", key.Value, err)
			}
			entry.Sigma = ext.Sigma
			if n, err := strconv.ParseFloat(ext.Policy, 64); err == nil {
				entry.Number, entry.IsNumber = n, true
			} else {
				entry.Token = ext.Policy
			}
		default:
			return fmt.Errorf("observation params: %q: unsupported value", key.Value)
		}
		p.Entries = append(p.Entries, entry)
	}
	return nil
}

// Default returns a scenario with the reference settings: one burst
// over 1-10 Gyr, solar metallicity, Salpeter IMF.
func Default() *Config {
	return &Config{
		Generation: GenerationConfig{
			Bursts:   [][]float64{{1, 10}},
			NS:       100,
			FeHMean:  0,
			FeHDisp:  0.1,
			IMFAlpha: 2.35,
			Seed:     1,
		},
		Observation: ObservationConfig{
			Seed: 1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromFile loads a scenario from a YAML file and applies
// STARSYNTH_* environment overrides.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing scenario file: %w", err)
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Validate checks the whole scenario.
func (c *Config) Validate() error {
	if err := c.Generation.Validate(); err != nil {
		return err
	}
	switch c.Logging.Level {
	case "", "info", "debug", "trace":
	default:
		return fmt.Errorf("logging: invalid level %q (valid: info, debug, trace)", c.Logging.Level)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STARSYNTH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("STARSYNTH_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Generation.Seed = n
		}
	}
	if v := os.Getenv("STARSYNTH_NS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Generation.NS = n
		}
	}
}
