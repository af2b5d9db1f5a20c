package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"murmur/app"
	"murmur/audio"
	"murmur/beep"
	"murmur/config"
	"murmur/control"
	"murmur/dispatch"
	"murmur/log"
	"murmur/stt"
)

// runTestMode runs the daemon against a fake capture device that replays
// wavPath (then silence), driven by a script on stdin, one directive per
// line:
//
//	TOGGLE START STOP CANCEL STATUS   forwarded to the state machine,
//	                                  reply printed to stdout
//	WAIT_AUDIO_DONE                   block until the WAV is exhausted
//	SLEEP <ms>                        pause the script
//	QUIT                              shut down; a transcription in
//	                                  flight is awaited and delivered
//
// The control socket stays live so trigger subcommands can be exercised
// against a test-mode daemon.
func runTestMode(wavPath string, cfg *config.Config, provider stt.Provider, socket string) int {
	beep.Disable()

	fakeCtx, err := audio.NewFakeContext(wavPath, cfg.SampleRate, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		return 1
	}

	a, err := app.New(app.Options{
		Config:   cfg,
		Audio:    fakeCtx,
		Provider: provider,
		Output: dispatch.New(dispatch.Config{
			AutoPaste:        cfg.AutoPaste,
			RestoreClipboard: cfg.RestoreClipboard,
		}),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	srv := control.NewServer(socket, control.HandlerFunc(a.Do))
	if err := srv.Listen(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Run(gctx) })
	g.Go(func() error { return srv.Serve(gctx) })

	log.Infof("test mode: wav=%s provider=%s socket=%s", wavPath, provider.Name(), socket)

	shutdown := func() int {
		cancel()
		if err := g.Wait(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "QUIT":
			return shutdown()
		case line == "WAIT_AUDIO_DONE":
			if c := fakeCtx.LastCapture(); c != nil {
				<-c.AudioDone()
			}
		case strings.HasPrefix(line, "SLEEP "):
			if ms, err := strconv.Atoi(strings.TrimPrefix(line, "SLEEP ")); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		default:
			cmd, ok := control.ParseCommand(line)
			if !ok {
				fmt.Printf("error: unknown directive %q\n", line)
				continue
			}
			fmt.Println(a.Do(cmd))
		}
	}

	// Script ended without QUIT; same orderly shutdown.
	return shutdown()
}
