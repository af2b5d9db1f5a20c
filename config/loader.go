package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. Fields absent from the file keep their [Default] values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and
// validates the result. Useful in tests where configs are constructed
// from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Provider.IsValid() {
		errs = append(errs, fmt.Errorf("provider %q is invalid; valid values: whisper, groq, openai, deepgram", cfg.Provider))
	}
	if cfg.Language == "" {
		errs = append(errs, errors.New("language must not be empty; use \"auto\" for detection"))
	}
	if cfg.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample_rate %d must be positive", cfg.SampleRate))
	}
	if cfg.Provider == ProviderWhisper && cfg.SampleRate != 16000 {
		errs = append(errs, fmt.Errorf("sample_rate %d is unsupported by the whisper backend; it requires 16000", cfg.SampleRate))
	}
	if cfg.MaxDurationS <= 0 {
		errs = append(errs, fmt.Errorf("max_duration_s %d must be positive", cfg.MaxDurationS))
	}
	if cfg.Silence.Enabled {
		if cfg.Silence.Threshold <= 0 || cfg.Silence.Threshold >= 1 {
			errs = append(errs, fmt.Errorf("silence.threshold %.4f is out of range (0, 1)", cfg.Silence.Threshold))
		}
		if cfg.Silence.TimeoutS <= 0 {
			errs = append(errs, fmt.Errorf("silence.timeout_s %d must be positive", cfg.Silence.TimeoutS))
		}
	}
	if cfg.Provider == ProviderWhisper && cfg.Whisper.Model == "" && cfg.Whisper.ModelPath == "" {
		errs = append(errs, errors.New("whisper.model or whisper.model_path is required for the whisper provider"))
	}

	return errors.Join(errs...)
}
