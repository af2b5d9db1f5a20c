package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const exampleYAML = `# murmur configuration
#
# Transcription backend: whisper (local), groq, openai, or deepgram.
provider: whisper

# Language hint passed to the backend. "auto" detects the spoken language.
language: auto

# Capture device id from "murmur devices". Empty picks the system default.
device: ""

# Capture sample rate in Hz. The whisper backend requires 16000.
sample_rate: 16000

# A recording that reaches this length is stopped as if you pressed stop.
max_duration_s: 300

# Paste the transcript into the focused window after copying it.
auto_paste: true

# Put the previous clipboard contents back shortly after pasting.
restore_clipboard: true

# Play short tones on record start/stop and on errors.
audio_feedback: true

# Control socket path. Empty uses $XDG_RUNTIME_DIR/murmur.sock.
socket: ""

# Stop the recording automatically after sustained silence.
silence:
  enabled: false
  threshold: 0.012
  timeout_s: 30

whisper:
  # Known model names: tiny, tiny.en, base, base.en, small, small.en,
  # medium, medium.en, large-v3, large-v3-turbo.
  # Fetch one with: murmur download-model base
  model: base
  # Absolute path to a ggml model file; overrides "model" when set.
  model_path: ""
  # 0 lets whisper.cpp pick a thread count.
  threads: 0

groq:
  # Falls back to $GROQ_API_KEY when empty.
  api_key: ""
  model: whisper-large-v3

openai:
  # Falls back to $OPENAI_API_KEY when empty.
  api_key: ""
  model: whisper-1

deepgram:
  # Falls back to $DEEPGRAM_API_KEY when empty.
  api_key: ""
  model: nova-2
  features: [punctuate, smart_format]
`

// WriteExample writes the commented starter config to path. It refuses to
// clobber an existing file.
func WriteExample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: create dir for %q: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("config: %q already exists, not overwriting", path)
		}
		return fmt.Errorf("config: create %q: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(exampleYAML); err != nil {
		return fmt.Errorf("config: write %q: %w", path, err)
	}
	return nil
}
