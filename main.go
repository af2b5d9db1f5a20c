package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"murmur/app"
	"murmur/audio"
	"murmur/beep"
	"murmur/config"
	"murmur/control"
	"murmur/dispatch"
	"murmur/doctor"
	"murmur/log"
	"murmur/model"
	"murmur/stt"
)

var version = "dev"

// echoTranscript is what the -test-provider backend returns, so
// integration tests can assert on delivery without credentials.
const echoTranscript = "this is a test transcription"

const usageText = `murmur — push-to-talk voice typing

Usage:
  murmur [flags]                  run the daemon
  murmur toggle|start|stop|cancel|status
                                  send one command to the running daemon
  murmur devices [-pick]          list capture devices / pick one
  murmur init-config              write a starter config file
  murmur download-model <name>    fetch a whisper.cpp model (e.g. base)
  murmur doctor                   check the environment and report problems
  murmur version                  print the version

Flags:
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usageText)
		flag.PrintDefaults()
	}

	configFlag := flag.String("config", "", "config file path (default: OS config dir)")
	logPathFlag := flag.String("logpath", "", "log directory (default: OS data dir)")
	socketFlag := flag.String("socket", "", "control socket path (overrides config)")
	testFlag := flag.String("test", "", "test mode: replay the given WAV instead of the microphone, script on stdin")
	testProviderFlag := flag.String("test-provider", "", `use a fake transcription backend ("echo") instead of the configured one`)
	profileFlag := flag.String("profile", "", "pprof listen address (e.g. localhost:6060)")
	crashFlag := flag.Bool("crash", false, "trigger a synthetic panic to verify crash logging")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("murmur %s\n", version)
		return
	}

	args := flag.Args()
	word := ""
	if len(args) > 0 {
		word = args[0]
	}

	switch word {
	case "", "daemon":
		os.Exit(daemon(daemonOptions{
			configPath:   *configFlag,
			logPath:      *logPathFlag,
			socket:       *socketFlag,
			testWAV:      *testFlag,
			testProvider: *testProviderFlag,
			profile:      *profileFlag,
			crash:        *crashFlag,
		}))
	case "toggle", "start", "stop", "cancel", "status":
		os.Exit(trigger(word, *configFlag, *socketFlag))
	case "devices":
		os.Exit(devicesCmd(args[1:]))
	case "init-config":
		os.Exit(initConfigCmd(*configFlag))
	case "download-model":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: murmur download-model <name>")
			fmt.Fprintf(os.Stderr, "Known models: %s\n", strings.Join(model.Names(), ", "))
			os.Exit(2)
		}
		os.Exit(downloadModelCmd(args[1]))
	case "doctor":
		os.Exit(doctor.Run(doctor.Options{
			ConfigPath: *configFlag,
			LogPath:    *logPathFlag,
			Socket:     *socketFlag,
		}))
	case "version":
		fmt.Printf("murmur %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", word)
		flag.Usage()
		os.Exit(2)
	}
}

type daemonOptions struct {
	configPath   string
	logPath      string
	socket       string
	testWAV      string
	testProvider string
	profile      string
	crash        bool
}

func daemon(opts daemonOptions) int {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logDir, err := log.ResolveDir(opts.logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logDir)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	// Crash logging before anything that can panic in CGO.
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	if opts.crash {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	if opts.profile != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", opts.profile)
			if err := http.ListenAndServe(opts.profile, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	if !cfg.AudioFeedback {
		beep.Disable()
	}

	provider, err := newProvider(cfg, opts.testProvider)
	if err != nil {
		log.Errorf("startup: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	socket := resolveSocket(opts.socket, cfg)

	if opts.testWAV != "" {
		return runTestMode(opts.testWAV, cfg, provider, socket)
	}

	audioCtx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		return 1
	}
	defer audioCtx.Close()

	return runDaemon(cfg, audioCtx, provider, socket)
}

func runDaemon(cfg *config.Config, audioCtx audio.Context, provider stt.Provider, socket string) int {
	a, err := app.New(app.Options{
		Config:   cfg,
		Audio:    audioCtx,
		Provider: provider,
		Output: dispatch.New(dispatch.Config{
			AutoPaste:        cfg.AutoPaste,
			RestoreClipboard: cfg.RestoreClipboard,
		}),
	})
	if err != nil {
		log.Errorf("startup: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	srv := control.NewServer(socket, control.HandlerFunc(a.Do))
	if err := srv.Listen(); err != nil {
		log.Errorf("control socket: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Infof("murmur %s: socket=%s provider=%s", version, socket, provider.Name())
	fmt.Printf("murmur %s — socket %s, provider %s\n", version, socket, provider.Name())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Run(gctx) })
	g.Go(func() error { return srv.Serve(gctx) })
	if err := g.Wait(); err != nil {
		log.Errorf("daemon: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	log.Info("daemon stopped")
	return 0
}

// loadConfig reads the config file. An explicit -config path must exist;
// a missing file at the default location just means defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	def, err := config.DefaultPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(def)
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

func resolveSocket(flagValue string, cfg *config.Config) string {
	if flagValue != "" {
		return flagValue
	}
	if cfg.Socket != "" {
		return cfg.Socket
	}
	return config.SocketPath()
}

func newProvider(cfg *config.Config, testProvider string) (stt.Provider, error) {
	switch testProvider {
	case "":
		return stt.New(cfg)
	case "echo":
		return stt.NewFake(echoTranscript, nil), nil
	default:
		return nil, fmt.Errorf("unknown -test-provider %q (want \"echo\")", testProvider)
	}
}

// trigger sends one command to the running daemon and prints the reply.
func trigger(word, configPath, socketFlag string) int {
	socket := socketFlag
	if socket == "" {
		if cfg, err := loadConfig(configPath); err == nil && cfg.Socket != "" {
			socket = cfg.Socket
		} else {
			socket = config.SocketPath()
		}
	}

	resp, err := control.Send(socket, word)
	if err != nil {
		if errors.Is(err, control.ErrNotRunning) {
			fmt.Fprintln(os.Stderr, "murmur daemon is not running (start it with: murmur)")
			return 1
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Println(resp)
	if strings.HasPrefix(resp, "error:") {
		return 1
	}
	return 0
}

func initConfigCmd(configPath string) int {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}
	if err := config.WriteExample(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("Wrote %s\n", path)
	fmt.Println("Fetch a local model with: murmur download-model base")
	return 0
}

func downloadModelCmd(name string) int {
	path, err := model.Download(name)
	if err != nil {
		if errors.Is(err, model.ErrExists) {
			fmt.Printf("Model already downloaded: %s\n", path)
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("Downloaded %s\n", path)
	return 0
}
