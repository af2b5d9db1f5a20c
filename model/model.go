// Package model locates and fetches the ggml whisper models used for
// local inference.
package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"murmur/config"
)

// knownModels are the ggml conversions published alongside whisper.cpp.
var knownModels = []string{
	"tiny", "tiny.en",
	"base", "base.en",
	"small", "small.en",
	"medium", "medium.en",
	"large-v1", "large-v2", "large-v3", "large-v3-turbo",
}

const modelURLBase = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// Known reports whether name is a published model.
func Known(name string) bool {
	for _, m := range knownModels {
		if m == name {
			return true
		}
	}
	return false
}

// Names returns the published model names, smallest first.
func Names() []string {
	out := make([]string, len(knownModels))
	copy(out, knownModels)
	return out
}

// FileName returns the on-disk name for a model, e.g. "ggml-base.bin".
func FileName(name string) string {
	return "ggml-" + name + ".bin"
}

// URL returns the download location for a model.
func URL(name string) string {
	return modelURLBase + FileName(name)
}

// Resolve decides which model file local inference should load. An
// explicit whisper.model_path wins; otherwise the configured model name
// maps into the local model directory. The file itself may not exist
// yet; the provider reports that per session.
func Resolve(cfg *config.Config) (string, error) {
	if cfg.Whisper.ModelPath != "" {
		return cfg.Whisper.ModelPath, nil
	}
	name := cfg.Whisper.Model
	if name == "" {
		return "", errors.New("whisper.model is not set")
	}
	if !Known(name) {
		return "", fmt.Errorf("unknown model %q (known: %s)", name, strings.Join(knownModels, ", "))
	}
	dir, err := config.ModelDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName(name)), nil
}
