package core

import "testing"

func TestHistoryCollapsesConsecutiveDuplicates(t *testing.T) {
	h := NewCommandHistory(10)
	if !h.Append("git status") {
		t.Fatalf("expected first append to be stored")
	}
	if h.Append("git status") {
		t.Fatalf("expected duplicate to be ignored")
	}
	if h.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", h.Len())
	}
	h.Append("git log")
	h.Append("git status")
	if h.Len() != 3 {
		t.Fatalf("expected non-consecutive duplicate to be stored, got %d", h.Len())
	}
}

func TestHistoryIgnoresBlank(t *testing.T) {
	h := NewCommandHistory(10)
	for _, entry := range []string{"", "   ", "\t"} {
		if h.Append(entry) {
			t.Fatalf("expected %q to be ignored", entry)
		}
	}
	if h.Len() != 0 {
		t.Fatalf("expected empty history, got %d", h.Len())
	}
}

func TestHistoryCursorResetsAfterAppend(t *testing.T) {
	h := NewCommandHistory(10)
	h.Append("one")
	h.Append("two")
	h.NavigateUp()
	h.NavigateUp()
	h.Append("three")
	if h.Cursor() != h.Len() {
		t.Fatalf("expected cursor %d, got %d", h.Len(), h.Cursor())
	}
	h.NavigateUp()
	h.Append("three")
	if h.Cursor() != h.Len() {
		t.Fatalf("expected cursor reset after ignored append, got %d", h.Cursor())
	}
}

func TestHistoryNavigateUpClampsAtZero(t *testing.T) {
	h := NewCommandHistory(10)
	h.Append("one")
	h.Append("two")
	want := []string{"two", "one", "one", "one"}
	for i, expected := range want {
		got, ok := h.NavigateUp()
		if !ok || got != expected {
			t.Fatalf("step %d: expected %q, got %q (ok=%v)", i, expected, got, ok)
		}
		if h.Cursor() < 0 {
			t.Fatalf("cursor below zero: %d", h.Cursor())
		}
	}
}

func TestHistoryNavigateDownStopsAtLength(t *testing.T) {
	h := NewCommandHistory(10)
	h.Append("one")
	h.Append("two")
	h.NavigateUp()
	h.NavigateUp()
	cases := []struct {
		want   string
		cursor int
	}{
		{want: "two", cursor: 1},
		{want: "", cursor: 2},
		{want: "", cursor: 2},
	}
	for i, tc := range cases {
		got, ok := h.NavigateDown()
		if !ok || got != tc.want {
			t.Fatalf("step %d: expected %q, got %q", i, tc.want, got)
		}
		if h.Cursor() != tc.cursor {
			t.Fatalf("step %d: expected cursor %d, got %d", i, tc.cursor, h.Cursor())
		}
	}
}

func TestHistoryEmptyNavigation(t *testing.T) {
	h := NewCommandHistory(10)
	if _, ok := h.NavigateUp(); ok {
		t.Fatalf("expected no entry on empty history")
	}
	if _, ok := h.NavigateDown(); ok {
		t.Fatalf("expected no entry on empty history")
	}
	if h.Cursor() != 0 {
		t.Fatalf("expected cursor 0, got %d", h.Cursor())
	}
}

func TestHistoryRespectsMax(t *testing.T) {
	h := NewCommandHistory(2)
	h.Append("one")
	h.Append("two")
	h.Append("three")
	entries := h.Entries()
	if len(entries) != 2 || entries[0] != "two" || entries[1] != "three" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestHistoryFromPersistedCollapsesDuplicates(t *testing.T) {
	h := NewCommandHistoryFromPersisted([]string{"a", "a", "b", ""}, 10)
	if h.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", h.Len())
	}
	if h.Cursor() != 2 {
		t.Fatalf("expected cursor at length, got %d", h.Cursor())
	}
}
