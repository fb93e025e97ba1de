package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"pkt.systems/gitconsole/internal/appconfig"
	"pkt.systems/pslog"
)

func newCaptureLogger(capture *logCapture) pslog.Logger {
	return pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
}

func TestWithRepoAddsRoot(t *testing.T) {
	capture := &logCapture{}
	log := WithRepo(newCaptureLogger(capture), "/src/demo")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["repo_root"] != "/src/demo" {
		t.Fatalf("expected repo_root field, got %+v", entry)
	}
}

func TestWithRepoSkipsEmpty(t *testing.T) {
	capture := &logCapture{}
	log := WithRemote(WithRepo(newCaptureLogger(capture), ""), "")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if _, ok := entry["repo_root"]; ok {
		t.Fatalf("did not expect repo_root, got %+v", entry)
	}
	if _, ok := entry["remote"]; ok {
		t.Fatalf("did not expect remote, got %+v", entry)
	}
}

func TestWithUserDeduplicates(t *testing.T) {
	capture := &logCapture{}
	ctx := ContextWithUserLogger(context.Background(), newCaptureLogger(capture), "alice")
	log := WithUser(ctx, "alice")
	log = WithRemote(log, "127.0.0.1:5555")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if _, ok := entry["user"]; ok {
		t.Fatalf("expected no duplicate user field when context already carries it, got %+v", entry)
	}
	if entry["remote"] != "127.0.0.1:5555" {
		t.Fatalf("expected remote field, got %+v", entry)
	}

	capture = &logCapture{}
	ctx = pslog.ContextWithLogger(context.Background(), newCaptureLogger(capture))
	WithUser(ctx, "bob").Info("hello")
	if entry := capture.firstEntry(t); entry["user"] != "bob" {
		t.Fatalf("expected user field, got %+v", entry)
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "gitconsole.log")
	log, closer := New(appconfig.LoggingConfig{File: path, Level: "warn", MaxSizeMB: 1}, nil)
	log.Info("dropped")
	log.Warn("kept", "n", 1)
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if bytes.Contains(data, []byte("dropped")) {
		t.Fatalf("expected info entry filtered at warn level, got %s", data)
	}
	capture := &logCapture{}
	capture.buf.Write(data)
	entry := capture.firstEntry(t)
	if entryMessage(entry) != "kept" {
		t.Fatalf("expected warn entry, got %+v", entry)
	}
}

func TestNewFallsBackToWriter(t *testing.T) {
	var buf bytes.Buffer
	log, closer := New(appconfig.LoggingConfig{Level: "debug"}, &buf)
	log.Debug("console entry")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("console entry")) {
		t.Fatalf("expected entry on fallback writer, got %q", buf.String())
	}
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}

func entryMessage(entry map[string]any) string {
	if value, ok := entry["message"].(string); ok {
		return value
	}
	if value, ok := entry["msg"].(string); ok {
		return value
	}
	return ""
}
