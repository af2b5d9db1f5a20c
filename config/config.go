// Package config provides the configuration schema, loader, and path
// resolution for the murmur daemon.
package config

import "os"

// Provider selects the transcription backend.
type Provider string

const (
	ProviderWhisper  Provider = "whisper"
	ProviderGroq     Provider = "groq"
	ProviderOpenAI   Provider = "openai"
	ProviderDeepgram Provider = "deepgram"
)

// IsValid reports whether p is a recognised provider.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderWhisper, ProviderGroq, ProviderOpenAI, ProviderDeepgram:
		return true
	}
	return false
}

// Local reports whether p runs inference in-process.
func (p Provider) Local() bool { return p == ProviderWhisper }

// Config is the root configuration for murmur, loaded from a YAML file
// using [Load] or [LoadFromReader]. The daemon treats it as an immutable
// snapshot; nothing in the process writes it back.
type Config struct {
	// Provider selects the transcription backend.
	Provider Provider `yaml:"provider"`

	// Language is the hint passed to the backend; "auto" means detect.
	Language string `yaml:"language"`

	// Device is the capture device id; empty selects the system default.
	Device string `yaml:"device"`

	// SampleRate is the capture rate in Hz. whisper.cpp requires 16000.
	SampleRate int `yaml:"sample_rate"`

	// MaxDurationS caps a recording; reaching it stops the session as if
	// the user had issued stop.
	MaxDurationS int `yaml:"max_duration_s"`

	AutoPaste        bool `yaml:"auto_paste"`
	RestoreClipboard bool `yaml:"restore_clipboard"`
	AudioFeedback    bool `yaml:"audio_feedback"`

	// Socket overrides the control socket path; empty uses [SocketPath].
	Socket string `yaml:"socket"`

	Silence  SilenceConfig  `yaml:"silence"`
	Whisper  WhisperConfig  `yaml:"whisper"`
	Groq     CloudConfig    `yaml:"groq"`
	OpenAI   CloudConfig    `yaml:"openai"`
	Deepgram DeepgramConfig `yaml:"deepgram"`
}

// SilenceConfig controls the optional auto-stop on sustained silence.
type SilenceConfig struct {
	Enabled bool `yaml:"enabled"`

	// Threshold is the RMS level (0..1) below which audio counts as silent.
	Threshold float64 `yaml:"threshold"`

	// TimeoutS is how long the level must stay below Threshold before the
	// recording is stopped.
	TimeoutS int `yaml:"timeout_s"`
}

// WhisperConfig configures the local whisper.cpp backend.
type WhisperConfig struct {
	// Model is a known model name (e.g. "base", "small.en"); resolved to
	// a file under the model directory when ModelPath is empty.
	Model string `yaml:"model"`

	// ModelPath points at a ggml model file directly and wins over Model.
	ModelPath string `yaml:"model_path"`

	// Threads caps inference threads; 0 lets the library decide.
	Threads int `yaml:"threads"`
}

// CloudConfig holds the credential and model for an HTTP backend.
type CloudConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// DeepgramConfig extends CloudConfig with Deepgram's feature toggles.
type DeepgramConfig struct {
	APIKey   string   `yaml:"api_key"`
	Model    string   `yaml:"model"`
	Features []string `yaml:"features"`
}

// Default returns a Config populated with working defaults: local whisper
// with the base model, auto-detected language, 16 kHz mono capture, five
// minute cap, paste and feedback on.
func Default() *Config {
	return &Config{
		Provider:         ProviderWhisper,
		Language:         "auto",
		SampleRate:       16000,
		MaxDurationS:     300,
		AutoPaste:        true,
		RestoreClipboard: true,
		AudioFeedback:    true,
		Silence: SilenceConfig{
			Enabled:   false,
			Threshold: 0.012,
			TimeoutS:  30,
		},
		Whisper: WhisperConfig{
			Model: "base",
		},
		Groq:   CloudConfig{Model: "whisper-large-v3"},
		OpenAI: CloudConfig{Model: "whisper-1"},
		Deepgram: DeepgramConfig{
			Model:    "nova-2",
			Features: []string{"punctuate", "smart_format"},
		},
	}
}

// GroqKey returns the Groq credential, falling back to GROQ_API_KEY.
func (c *Config) GroqKey() string {
	if c.Groq.APIKey != "" {
		return c.Groq.APIKey
	}
	return os.Getenv("GROQ_API_KEY")
}

// OpenAIKey returns the OpenAI credential, falling back to OPENAI_API_KEY.
func (c *Config) OpenAIKey() string {
	if c.OpenAI.APIKey != "" {
		return c.OpenAI.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

// DeepgramKey returns the Deepgram credential, falling back to DEEPGRAM_API_KEY.
func (c *Config) DeepgramKey() string {
	if c.Deepgram.APIKey != "" {
		return c.Deepgram.APIKey
	}
	return os.Getenv("DEEPGRAM_API_KEY")
}
