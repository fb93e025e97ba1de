package core

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"golang.org/x/text/encoding/charmap"
)

type recordingSink struct {
	mu    sync.Mutex
	items []string
}

func (r *recordingSink) add(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, text)
}

func (r *recordingSink) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.items...)
}

// runPump feeds writes through an io.Pipe so each write arrives as one read.
func runPump(t *testing.T, kind StreamKind, writes ...string) []string {
	t.Helper()
	pr, pw := io.Pipe()
	sink := &recordingSink{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewPump(kind, pr, nil, sink.add).Run(context.Background())
	}()
	for _, w := range writes {
		if _, err := io.WriteString(pw, w); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	_ = pw.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("pump did not finish")
	}
	return sink.snapshot()
}

func TestStdoutPumpForwardsEachRead(t *testing.T) {
	got := runPump(t, StreamStdout, "abc", "def\n")
	if len(got) != 2 || got[0] != "abc" || got[1] != "def" {
		t.Fatalf("expected [abc def], got %q", got)
	}
}

func TestStderrPumpForwardsOnNewline(t *testing.T) {
	got := runPump(t, StreamStderr, "err1", "err2\n")
	if len(got) != 1 || got[0] != "err1err2" {
		t.Fatalf("expected [err1err2], got %q", got)
	}
}

func TestStderrPumpFlushesRemainderAtEOF(t *testing.T) {
	got := runPump(t, StreamStderr, "fatal: ", "no upstream")
	if len(got) != 1 || got[0] != "fatal: no upstream" {
		t.Fatalf("expected remainder flushed at EOF, got %q", got)
	}
}

func TestStdoutPumpSkipsWhitespaceOnlyReads(t *testing.T) {
	got := runPump(t, StreamStdout, "one\n", "\r\n", "two  \n")
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Fatalf("unexpected forwards %q", got)
	}
}

func TestPumpCarriesSplitRunes(t *testing.T) {
	word := "blåbær"
	raw := []byte(word)
	// split inside the two-byte "å"
	got := runPump(t, StreamStdout, string(raw[:3]), string(raw[3:]))
	joined := ""
	for _, part := range got {
		joined += part
	}
	if joined != word {
		t.Fatalf("expected %q reassembled, got %q", word, got)
	}
	for _, part := range got {
		if part == "�" {
			t.Fatalf("unexpected replacement character in %q", got)
		}
	}
}

func TestPumpDecodesConfiguredEncoding(t *testing.T) {
	pr, pw := io.Pipe()
	sink := &recordingSink{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewPump(StreamStdout, pr, charmap.Windows1252, sink.add).Run(context.Background())
	}()
	if _, err := pw.Write([]byte{'c', 'a', 'f', 0xe9, '\n'}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = pw.Close()
	<-done
	got := sink.snapshot()
	if len(got) != 1 || got[0] != "café" {
		t.Fatalf("expected café, got %q", got)
	}
}

func TestPumpStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pr, pw := io.Pipe()
	defer pw.Close()
	sink := &recordingSink{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewPump(StreamStdout, pr, nil, sink.add).Run(ctx)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("cancelled pump kept reading")
	}
	if len(sink.snapshot()) != 0 {
		t.Fatalf("expected no output")
	}
}
