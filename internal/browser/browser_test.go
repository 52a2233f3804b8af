package browser

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestEventsSubscribeEmitUnsubscribe(t *testing.T) {
	t.Parallel()
	events := NewEvents()
	var focusCount, storageCount int
	unsubscribeFocus := events.Subscribe(EventFocus, func(EventKind) { focusCount++ })
	unsubscribeStorage := events.Subscribe(EventStorage, func(EventKind) { storageCount++ })

	events.Emit(EventFocus)
	events.Emit(EventStorage)
	events.Emit(EventStorage)
	if focusCount != 1 || storageCount != 2 {
		t.Fatalf("unexpected counts focus=%d storage=%d", focusCount, storageCount)
	}

	unsubscribeFocus()
	unsubscribeFocus()
	unsubscribeStorage()
	events.Emit(EventFocus)
	events.Emit(EventStorage)
	if focusCount != 1 || storageCount != 2 {
		t.Fatalf("handlers fired after unsubscribe: focus=%d storage=%d", focusCount, storageCount)
	}
	if events.Listeners(EventFocus) != 0 || events.Listeners(EventStorage) != 0 {
		t.Fatalf("expected no listeners left")
	}
}

func TestPromptConfirmer(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input    string
		expected bool
	}{
		{input: "y\n", expected: true},
		{input: "YES\n", expected: true},
		{input: "n\n", expected: false},
		{input: "\n", expected: false},
		{input: "", expected: false},
	}
	for _, testCase := range cases {
		var output bytes.Buffer
		confirmer := PromptConfirmer{Input: strings.NewReader(testCase.input), Output: &output}
		confirmed, err := confirmer.Confirm(context.Background(), "Are you sure?")
		if err != nil {
			t.Fatalf("confirm(%q): %v", testCase.input, err)
		}
		if confirmed != testCase.expected {
			t.Fatalf("confirm(%q) = %v, expected %v", testCase.input, confirmed, testCase.expected)
		}
		if output.String() != "Are you sure? [y/N]: " {
			t.Fatalf("unexpected prompt %q", output.String())
		}
	}
}

func TestPromptConfirmerHonoursCancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	confirmer := PromptConfirmer{Input: strings.NewReader("y\n"), Output: &bytes.Buffer{}}
	if confirmed, err := confirmer.Confirm(ctx, "?"); err == nil || confirmed {
		t.Fatalf("expected cancellation error, got %v (confirmed=%v)", err, confirmed)
	}
}

func TestPromptConfirmerReturnsWhenCancelledDuringRead(t *testing.T) {
	t.Parallel()
	input, writer := io.Pipe()
	defer writer.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	results := make(chan error, 1)
	go func() {
		_, err := PromptConfirmer{Input: input, Output: &bytes.Buffer{}}.Confirm(ctx, "?")
		results <- err
	}()
	select {
	case err := <-results:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("confirm stayed blocked on input after its context ended")
	}
}

func TestMemoryStorageClear(t *testing.T) {
	t.Parallel()
	storage := NewMemoryStorage()
	storage.SetItem("draft", "hello")
	if value, ok := storage.GetItem("draft"); !ok || value != "hello" {
		t.Fatalf("unexpected item %q", value)
	}
	if err := storage.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if storage.Len() != 0 {
		t.Fatalf("expected empty storage")
	}
}

func TestRecordingNavigator(t *testing.T) {
	t.Parallel()
	var observed string
	navigator := NewRecordingNavigator(func(location string) { observed = location })
	navigator.Navigate("/")
	if locations := navigator.Locations(); len(locations) != 1 || locations[0] != "/" {
		t.Fatalf("unexpected locations %v", locations)
	}
	if observed != "/" {
		t.Fatalf("callback not invoked")
	}
}
