//go:build !windows

package core

import (
	"errors"
	"testing"
	"time"

	"pkt.systems/gitconsole/schema"
)

func drainUntil(t *testing.T, e *Engine, cond func() bool) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for !cond() {
		select {
		case <-e.mailbox.Ready():
			e.Drain()
		case <-deadline:
			t.Fatalf("engine did not reach expected state; lines=%v", lineTexts(e.Document().Lines()))
		}
	}
}

func idle(e *Engine) func() bool {
	return func() bool { return e.State() == StateIdle }
}

func TestEngineRunsCommandAndReturnsToPrompt(t *testing.T) {
	requireSh(t)
	status := &fakeStatus{repository: true, status: "main"}
	e := newTestEngine(t, schema.ConsoleConfig{}, EngineDeps{Status: status})
	_ = e.Submit(`sh -c 'echo hello; echo oops >&2'`)
	if e.State() != StateRunning {
		t.Fatalf("expected running state")
	}
	if e.Document().Prompt() != "" {
		t.Fatalf("running line should carry no prompt")
	}
	drainUntil(t, e, idle(e))

	var sawOut, sawErr bool
	for _, line := range e.Document().Lines() {
		switch {
		case line.Text == "hello" && line.Style == schema.StyleOutput:
			sawOut = true
		case line.Text == "oops" && line.Style == schema.StyleError:
			sawErr = true
		}
	}
	if !sawOut || !sawErr {
		t.Fatalf("missing output lines: %v", lineTexts(e.Document().Lines()))
	}
	if e.Document().Prompt() != "[main]>" {
		t.Fatalf("expected prompt after exit, got %q", e.Document().Prompt())
	}
	if status.invalidated != 1 {
		t.Fatalf("expected status invalidated once, got %d", status.invalidated)
	}
}

func TestEngineSubmitWhileRunningIsBusy(t *testing.T) {
	requireSh(t)
	e := newTestEngine(t, schema.ConsoleConfig{}, EngineDeps{})
	_ = e.Submit("sleep 30")
	if err := e.Submit("help"); !errors.Is(err, schema.ErrSessionBusy) {
		t.Fatalf("expected ErrSessionBusy, got %v", err)
	}
	e.HandleKey(Key{Kind: KeyCtrlC})
	drainUntil(t, e, idle(e))
}

func TestEngineEnterWhileRunningFeedsStdin(t *testing.T) {
	requireSh(t)
	e := newTestEngine(t, schema.ConsoleConfig{}, EngineDeps{})
	_ = e.Submit("head -n 1")
	typeText(e, "ping")
	e.HandleKey(Key{Kind: KeyEnter})
	drainUntil(t, e, idle(e))

	count := 0
	for _, line := range e.Document().Lines() {
		if line.Text == "ping" && line.Style == schema.StyleOutput {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected echoed input and child output, got %v", lineTexts(e.Document().Lines()))
	}
}

func TestEngineCompletionSuppressedWhileRunning(t *testing.T) {
	requireSh(t)
	e := newTestEngine(t, schema.ConsoleConfig{}, EngineDeps{
		Options: fakeOptions{"git": {"status"}},
	})
	_ = e.Submit("sleep 30")
	typeText(e, "git st")
	if e.completion.Visible {
		t.Fatalf("completion should stay hidden while running")
	}
	e.HandleKey(Key{Kind: KeyCtrlC})
	drainUntil(t, e, idle(e))
}

func TestEngineShutdownStopsRunningChild(t *testing.T) {
	requireSh(t)
	e := newTestEngine(t, schema.ConsoleConfig{DrainTimeout: 500 * time.Millisecond}, EngineDeps{})
	_ = e.Submit("sleep 30")
	sess := e.session
	e.shutdown()
	select {
	case <-sess.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("child survived shutdown")
	}
}

func TestEngineSkipsStatusWhileRunning(t *testing.T) {
	requireSh(t)
	status := &fakeStatus{repository: true, status: "main"}
	e := newTestEngine(t, schema.ConsoleConfig{}, EngineDeps{Status: status})
	_ = e.Submit(`sh -c 'sleep 0.3'`)
	if e.State() != StateRunning {
		t.Fatalf("expected running state")
	}
	before := status.lookups
	status.status = "main ~1"
	for i := 0; i < 5; i++ {
		e.RefreshPrompt()
	}
	if status.lookups != before {
		t.Fatalf("expected no status lookups while running, got %d", status.lookups-before)
	}
	if e.Document().Prompt() != "" {
		t.Fatalf("running line should carry no prompt, got %q", e.Document().Prompt())
	}
	drainUntil(t, e, idle(e))
	if e.Document().Prompt() != "[main ~1]>" {
		t.Fatalf("expected prompt recomputed on exit, got %q", e.Document().Prompt())
	}
}

func TestEngineCarriesUnsentInputToPrompt(t *testing.T) {
	requireSh(t)
	e := newTestEngine(t, schema.ConsoleConfig{}, EngineDeps{Status: &fakeStatus{repository: true, status: "main"}})
	_ = e.Submit(`sh -c 'sleep 0.3'`)
	typeText(e, "half typed")
	drainUntil(t, e, idle(e))

	for _, line := range e.Document().Lines() {
		if line.Text == "half typed" {
			t.Fatalf("unsent text should not be committed, got line %+v", line)
		}
	}
	if e.Document().Input() != "half typed" {
		t.Fatalf("expected unsent text on the new prompt, got %q", e.Document().Input())
	}
	if e.Document().Prompt() != "[main]>" {
		t.Fatalf("expected fresh prompt, got %q", e.Document().Prompt())
	}
}
