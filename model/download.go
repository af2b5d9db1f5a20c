package model

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"murmur/config"
)

// ErrExists means the model file is already in place.
var ErrExists = errors.New("model already downloaded")

// Download fetches a model into the local model directory and returns
// the final path. The file lands under a temp name first and is renamed
// into place, so an interrupted download never leaves a half model that
// the provider would try to load.
func Download(name string) (string, error) {
	if !Known(name) {
		return "", fmt.Errorf("unknown model %q (known: %s)", name, strings.Join(knownModels, ", "))
	}

	path, err := downloadPath(name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return path, ErrExists
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create model directory: %w", err)
	}

	// Temp file in the same directory so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(dir, ".murmur-download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath) // cleanup on any error path

	resp, err := http.Get(URL(name))
	if err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		tmpFile.Close()
		return "", fmt.Errorf("download model: %s", resp.Status)
	}

	src := io.Reader(resp.Body)
	if resp.ContentLength > 0 {
		src = &progressReader{r: resp.Body, total: resp.ContentLength}
	}
	if _, err := io.Copy(tmpFile, src); err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("write model: %w", err)
	}
	if resp.ContentLength > 0 {
		fmt.Fprintln(os.Stderr) // newline after progress
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("write model: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("install model: %w", err)
	}
	return path, nil
}

func downloadPath(name string) (string, error) {
	dir, err := config.ModelDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName(name)), nil
}

type progressReader struct {
	r     io.Reader
	total int64
	read  int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	pct := float64(p.read) / float64(p.total) * 100
	fmt.Fprintf(os.Stderr, "\r  %.0f%% (%d / %d MB)", pct, p.read/(1024*1024), p.total/(1024*1024))
	return n, err
}
