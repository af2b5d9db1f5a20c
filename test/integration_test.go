//go:build integration

package test_test

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"murmur/clipboard"
	"murmur/control"
)

// What the echo test provider returns for every request.
const echoText = "this is a test transcription"

var testBinary string

func TestMain(m *testing.M) {
	testBinary = os.Getenv("MURMUR_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "MURMUR_TEST_BIN not set; run: make test-integration")
		os.Exit(1)
	}

	if err := os.MkdirAll("data", 0755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create data dir: %v\n", err)
		os.Exit(1)
	}
	if err := generateToneWAV(filepath.Join("data", "tone.wav"), 16000, 1.0); err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate tone.wav: %v\n", err)
		os.Exit(1)
	}
	if err := generateSilenceWAV(filepath.Join("data", "silence.wav"), 16000, 2.0); err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate silence.wav: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func writeWAV(path string, sampleRate int, pcm []byte) error {
	const headerSize = 44
	buf := make([]byte, headerSize+len(pcm))
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(headerSize-8+len(pcm)))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)  // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(pcm)))
	copy(buf[headerSize:], pcm)
	return os.WriteFile(path, buf, 0644)
}

// generateToneWAV writes a square wave loud enough to count as voice for
// any sane silence threshold.
func generateToneWAV(path string, sampleRate int, durationS float64) error {
	n := int(float64(sampleRate) * durationS)
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		s := int16(8000)
		if (i/40)%2 == 1 {
			s = -8000
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return writeWAV(path, sampleRate, pcm)
}

func generateSilenceWAV(path string, sampleRate int, durationS float64) error {
	n := int(float64(sampleRate) * durationS)
	return writeWAV(path, sampleRate, make([]byte, n*2))
}

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

// writeConfig writes a config file suited to CI: no paste chord, no
// audio cues. Extra lines are appended verbatim.
func writeConfig(t *testing.T, dir string, extra ...string) string {
	t.Helper()
	lines := []string{
		"auto_paste: false",
		"audio_feedback: false",
	}
	lines = append(lines, extra...)
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// runMurmur runs the daemon in test mode, feeds it the directive script
// on stdin, and waits for it to exit.
func runMurmur(t *testing.T, stdin, wav string, cfgLines ...string) (logDir, out string) {
	t.Helper()
	logDir = t.TempDir()
	cfgPath := writeConfig(t, logDir, cfgLines...)
	socket := filepath.Join(logDir, "murmur.sock")

	cmd := exec.Command(testBinary,
		"-logpath", logDir,
		"-config", cfgPath,
		"-socket", socket,
		"-test", wav,
		"-test-provider", "echo",
	)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = os.Environ()

	raw, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("murmur exited with error: %v\noutput: %s", err, raw)
	}
	return logDir, string(raw)
}

// responses splits stdout into the non-empty reply lines.
func responses(out string) []string {
	var lines []string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func readLog(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	return string(data)
}

func requireTranscription(t *testing.T, logDir string) string {
	t.Helper()
	text := readLog(t, logDir, "transcribe_log.txt")
	if strings.TrimSpace(text) == "" {
		t.Fatal("transcribe_log.txt is empty, expected transcribed words")
	}
	return text
}

func TestToggleDelivery(t *testing.T) {
	logDir, out := runMurmur(t,
		cmds("toggle", "WAIT_AUDIO_DONE", "toggle", "QUIT"),
		filepath.Join("data", "tone.wav"))

	text := requireTranscription(t, logDir)
	if !strings.Contains(text, echoText) {
		t.Errorf("transcribe log = %q, want it to contain %q", text, echoText)
	}

	got := responses(out)
	want := []string{"ok", "ok"}
	if len(got) != len(want) {
		t.Fatalf("responses = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("response[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	diag := readLog(t, logDir, "diagnostics_log.txt")
	if !strings.Contains(diag, "outcome=delivered") {
		t.Error("expected outcome=delivered in diagnostics")
	}
}

func TestStatusReporting(t *testing.T) {
	_, out := runMurmur(t,
		cmds("status", "toggle", "status", "cancel", "QUIT"),
		filepath.Join("data", "tone.wav"))

	got := responses(out)
	if len(got) != 4 {
		t.Fatalf("responses = %q, want 4 lines", got)
	}
	if got[0] != "idle" {
		t.Errorf("initial status = %q, want %q", got[0], "idle")
	}
	if got[1] != "ok" {
		t.Errorf("toggle reply = %q, want %q", got[1], "ok")
	}
	if !strings.HasPrefix(got[2], "recording") {
		t.Errorf("mid-session status = %q, want recording prefix", got[2])
	}
	if got[3] != "ok" {
		t.Errorf("cancel reply = %q, want %q", got[3], "ok")
	}
}

func TestCancelProducesNothing(t *testing.T) {
	logDir, _ := runMurmur(t,
		cmds("toggle", "SLEEP 200", "cancel", "QUIT"),
		filepath.Join("data", "tone.wav"))

	if text := readLog(t, logDir, "transcribe_log.txt"); strings.TrimSpace(text) != "" {
		t.Errorf("transcribe log = %q, want empty after cancel", text)
	}
	diag := readLog(t, logDir, "diagnostics_log.txt")
	if !strings.Contains(diag, "outcome=cancelled") {
		t.Error("expected outcome=cancelled in diagnostics")
	}
}

func TestSilenceAutoStop(t *testing.T) {
	logDir, out := runMurmur(t,
		cmds("toggle", "SLEEP 1600", "status", "QUIT"),
		filepath.Join("data", "silence.wav"),
		"silence:",
		"  enabled: true",
		"  threshold: 0.05",
		"  timeout_s: 1")

	got := responses(out)
	if len(got) != 2 {
		t.Fatalf("responses = %q, want 2 lines", got)
	}
	if got[1] != "idle" {
		t.Errorf("status after silence = %q, want %q", got[1], "idle")
	}
	diag := readLog(t, logDir, "diagnostics_log.txt")
	if !strings.Contains(diag, "cause=silence") {
		t.Error("expected cause=silence in diagnostics")
	}
}

func TestSocketTrigger(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	socket := filepath.Join(dir, "murmur.sock")

	cmd := exec.Command(testBinary,
		"-logpath", dir,
		"-config", cfgPath,
		"-socket", socket,
		"-test", filepath.Join("data", "tone.wav"),
		"-test-provider", "echo",
	)
	cmd.Env = os.Environ()
	stdin, err := cmd.StdinPipe()
	if err != nil {
		t.Fatalf("stdin pipe: %v", err)
	}
	var output strings.Builder
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start murmur: %v", err)
	}

	// The socket appears once the daemon is up.
	var resp string
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err = control.Send(socket, "status")
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("daemon never came up: %v\noutput: %s", err, output.String())
		}
		time.Sleep(20 * time.Millisecond)
	}
	if resp != "idle" {
		t.Errorf("status = %q, want %q", resp, "idle")
	}

	send := func(word, want string) {
		t.Helper()
		resp, err := control.Send(socket, word)
		if err != nil {
			t.Fatalf("send %q: %v", word, err)
		}
		if !strings.HasPrefix(resp, want) {
			t.Errorf("%q reply = %q, want %q prefix", word, resp, want)
		}
	}

	send("toggle", "ok")
	send("status", "recording")
	send("bogus", `error: unknown command "bogus"`)
	send("cancel", "ok")

	io.WriteString(stdin, "QUIT\n")
	stdin.Close()

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()
	select {
	case err := <-waitErr:
		if err != nil {
			t.Fatalf("murmur exited with error: %v\noutput: %s", err, output.String())
		}
	case <-time.After(10 * time.Second):
		cmd.Process.Kill()
		t.Fatalf("murmur did not exit after QUIT\noutput: %s", output.String())
	}
}

func TestClipboardDelivery(t *testing.T) {
	if err := clipboard.Check(); err != nil {
		t.Skipf("clipboard not available: %v", err)
	}
	prev, _ := clipboard.Read()
	defer clipboard.Copy(prev)

	logDir, _ := runMurmur(t,
		cmds("toggle", "WAIT_AUDIO_DONE", "toggle", "QUIT"),
		filepath.Join("data", "tone.wav"))
	requireTranscription(t, logDir)

	clip, err := clipboard.Read()
	if err != nil {
		t.Fatalf("clipboard read: %v", err)
	}
	if strings.TrimSpace(clip) != echoText {
		t.Errorf("clipboard = %q, want %q", strings.TrimSpace(clip), echoText)
	}
}
