package ntfy_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ngrabbs/schedule-manager/internal/ntfy"
)

func TestCleanMessage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "add: call mom", "add: call mom"},
		{"surrounding whitespace", "  help  ", "help"},
		{"leading equals", "=add: call mom", "add: call mom"},
		{"plus encoding", "add:+call+mom", "add: call mom"},
		{"percent encoding", "add%3A%20call%20mom", "add: call mom"},
		{"json wrapper", `{"command":"add: call mom"}`, "add: call mom"},
		{"multi-key json stays", `{"a":"1","b":"2"}`, `{"a":"1","b":"2"}`},
		{"equals then encoded json", "=%7B%22cmd%22%3A%22help%22%7D", "help"},
		// A bare percent that is not an escape must not eat the text.
		{"literal percent", "task is 100% done", "task is 100% done"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ntfy.CleanMessage(tt.in); got != tt.want {
				t.Errorf("CleanMessage(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestListenerDispatch(t *testing.T) {
	stream := []string{
		`{"id":"open1","event":"open","topic":"commands"}`,
		`{"id":"ka1","event":"keepalive","topic":"commands"}`,
		`{"id":"msg1","event":"message","topic":"commands","message":"=help"}`,
		`{"id":"msg2","event":"message","topic":"commands","message":"   "}`,
		`{"id":"msg3","event":"message","topic":"commands","message":"add:+call+mom"}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/commands/json" {
			http.NotFound(w, r)
			return
		}
		flusher := w.(http.Flusher)
		for _, line := range stream {
			fmt.Fprintln(w, line)
			flusher.Flush()
		}
	}))
	defer srv.Close()

	type received struct {
		message string
		id      string
	}
	got := make(chan received, 8)
	listener := ntfy.NewListener(srv.URL, "commands", func(message string, ev ntfy.Event) {
		got <- received{message: message, id: ev.ID}
	}, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		listener.Run(ctx)
		close(done)
	}()

	want := []received{
		{message: "help", id: "msg1"},
		{message: "add: call mom", id: "msg3"},
	}
	for _, w := range want {
		select {
		case r := <-got:
			if r != w {
				t.Errorf("received %+v, want %+v", r, w)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for dispatched message")
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop on context cancel")
	}
}

func TestListenerRecoversHandlerPanic(t *testing.T) {
	stream := []string{
		`{"id":"msg1","event":"message","topic":"commands","message":"boom"}`,
		`{"id":"msg2","event":"message","topic":"commands","message":"help"}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for _, line := range stream {
			fmt.Fprintln(w, line)
			flusher.Flush()
		}
	}))
	defer srv.Close()

	got := make(chan string, 4)
	listener := ntfy.NewListener(srv.URL, "commands", func(message string, ev ntfy.Event) {
		if message == "boom" {
			panic("bad command")
		}
		got <- message
	}, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		listener.Run(ctx)
		close(done)
	}()

	select {
	case m := <-got:
		if m != "help" {
			t.Errorf("received %q, want %q", m, "help")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message after panic never dispatched")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop on context cancel")
	}
}
