// Package doctor checks the pieces murmur needs at runtime: config, log
// directory, daemon socket, capture devices, the transcription backend,
// and the clipboard/paste path. One PASS/FAIL line per check; no check
// records audio or calls a cloud API.
package doctor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"murmur/audio"
	"murmur/clipboard"
	"murmur/config"
	"murmur/control"
	"murmur/log"
	"murmur/model"
	"murmur/paste"
)

type Options struct {
	ConfigPath string // empty = default location
	LogPath    string
	Socket     string
}

type state struct {
	opts Options
	cfg  *config.Config
}

type check struct {
	name string
	fn   func(*state) (string, error)
}

// Run executes all checks and returns an exit code (0 = all pass).
func Run(opts Options) int {
	fmt.Println("murmur doctor")
	fmt.Println("=============")

	// Later checks fall back to defaults when the config check fails.
	st := &state{opts: opts, cfg: config.Default()}
	checks := []check{
		{"config", checkConfig},
		{"log directory", checkLogDir},
		{"daemon", checkDaemon},
		{"capture devices", checkDevices},
		{"transcription backend", checkBackend},
		{"clipboard", checkClipboard},
		{"paste", checkPaste},
	}

	failed := 0
	for i, c := range checks {
		fmt.Printf("\n[%d/%d] %s\n", i+1, len(checks), c.name)
		detail, err := c.fn(st)
		if err != nil {
			failed++
			fmt.Printf("  FAIL: %v\n", err)
			continue
		}
		fmt.Printf("  PASS: %s\n", detail)
	}

	fmt.Println()
	if failed > 0 {
		fmt.Printf("%d of %d checks failed. See details above.\n", failed, len(checks))
		return 1
	}
	fmt.Println("All checks passed.")
	return 0
}

func checkConfig(st *state) (string, error) {
	path := st.opts.ConfigPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Sprintf("no config at %s, defaults apply (write one with: murmur init-config)", path), nil
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return "", err
	}
	st.cfg = cfg
	return fmt.Sprintf("%s (provider %s, language %s)", path, cfg.Provider, cfg.Language), nil
}

func checkLogDir(st *state) (string, error) {
	dir, err := log.ResolveDir(st.opts.LogPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	probe := filepath.Join(dir, ".murmur-doctor")
	if err := os.WriteFile(probe, []byte("probe\n"), 0644); err != nil {
		return "", fmt.Errorf("%s is not writable: %w", dir, err)
	}
	os.Remove(probe)
	return dir + " is writable", nil
}

func checkDaemon(st *state) (string, error) {
	socket := st.opts.Socket
	if socket == "" {
		socket = st.cfg.Socket
	}
	if socket == "" {
		socket = config.SocketPath()
	}

	resp, err := control.Send(socket, "status")
	if errors.Is(err, control.ErrNotRunning) {
		// Not an error: doctor is often run before the first start.
		return fmt.Sprintf("not running (socket %s is free)", socket), nil
	}
	if err != nil {
		return "", fmt.Errorf("socket %s: %w", socket, err)
	}
	return fmt.Sprintf("responding on %s: %s", socket, resp), nil
}

func checkDevices(st *state) (string, error) {
	ctx, err := audio.NewContext()
	if err != nil {
		return "", err
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		return "", err
	}
	if len(devices) == 0 {
		return "", errors.New("no capture devices found")
	}

	if st.cfg.Device != "" {
		if _, err := audio.FindDevice(ctx, st.cfg.Device); err != nil {
			return "", err
		}
	}

	bt := 0
	for _, d := range devices {
		if audio.IsBluetooth(d.Name) {
			bt++
		}
	}
	detail := fmt.Sprintf("%d device(s) found", len(devices))
	if bt > 0 {
		detail += fmt.Sprintf(", %d bluetooth (capture quality drops to HSP)", bt)
	}
	return detail, nil
}

func checkBackend(st *state) (string, error) {
	cfg := st.cfg
	switch cfg.Provider {
	case config.ProviderWhisper:
		path, err := model.Resolve(cfg)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("model file %s missing (fetch it with: murmur download-model %s)", path, cfg.Whisper.Model)
		}
		return "whisper model " + path, nil
	case config.ProviderGroq:
		if cfg.GroqKey() == "" {
			return "", errors.New("no groq api key (set groq.api_key or GROQ_API_KEY)")
		}
		return "groq api key present", nil
	case config.ProviderOpenAI:
		if cfg.OpenAIKey() == "" {
			return "", errors.New("no openai api key (set openai.api_key or OPENAI_API_KEY)")
		}
		return "openai api key present", nil
	case config.ProviderDeepgram:
		if cfg.DeepgramKey() == "" {
			return "", errors.New("no deepgram api key (set deepgram.api_key or DEEPGRAM_API_KEY)")
		}
		return "deepgram api key present", nil
	}
	return "", fmt.Errorf("unknown provider %q", cfg.Provider)
}

func checkClipboard(st *state) (string, error) {
	if err := clipboard.Check(); err != nil {
		return "", err
	}

	prev, _ := clipboard.Read()
	sentinel := fmt.Sprintf("murmur-doctor-%d", os.Getpid())
	if err := clipboard.Copy(sentinel); err != nil {
		return "", fmt.Errorf("copy: %w", err)
	}
	got, err := clipboard.Read()
	if prev != "" {
		clipboard.Copy(prev) // put the user's clipboard back
	}
	if err != nil {
		return "", fmt.Errorf("read back: %w", err)
	}
	if got != sentinel {
		return "", fmt.Errorf("round trip mismatch: got %q", got)
	}
	return "round trip ok", nil
}

func checkPaste(st *state) (string, error) {
	if !st.cfg.AutoPaste {
		return "auto_paste disabled, skipped", nil
	}
	if err := paste.Check(); err != nil {
		return "", err
	}
	return "paste backend ready", nil
}
