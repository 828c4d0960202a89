// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Thermoquad/tc420ctl/pkg/tc420"
)

// feedServer sends the given messages, then closes or holds the connection
func feedServer(t *testing.T, messages []string, hold bool) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); ok && (user != "tc" || pass != "secret") {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteMessage(websocket.BinaryMessage, []byte{0x55, 0xAA})
		for _, m := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		if hold {
			// wait for the client to go away
			conn.ReadMessage()
			return
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
		conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURLFor(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSStepSource_Steps(t *testing.T) {
	srv := feedServer(t, []string{
		"1.5 100 99 50 0 -70",
		"# comment\n\n2 0 0 0 0 0\n0.5 -101 -1 10 20 30",
	}, false)

	src, err := dialStepFeed(context.Background(), stepFeed{URL: wsURLFor(srv), Username: "tc", Password: "secret"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer src.Close()

	want := []tc420.PlayStep{
		{Duration: 1500 * time.Millisecond, Channels: [5]int{100, 99, 50, 0, -70}},
		{Duration: 2 * time.Second},
		{Duration: 500 * time.Millisecond, Channels: [5]int{-101, -1, 10, 20, 30}},
	}
	for i, w := range want {
		got, err := src.Next(context.Background(), i)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got != w {
			t.Errorf("step %d = %+v, want %+v", i, got, w)
		}
	}

	if _, err := src.Next(context.Background(), len(want)); !errors.Is(err, tc420.ErrEndOfSteps) {
		t.Errorf("Next() after close = %v, want ErrEndOfSteps", err)
	}
}

func TestWSStepSource_BadLine(t *testing.T) {
	srv := feedServer(t, []string{"soon 1 2 3 4 5"}, false)

	src, err := dialStepFeed(context.Background(), stepFeed{URL: wsURLFor(srv)})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer src.Close()

	if _, err := src.Next(context.Background(), 0); err == nil || errors.Is(err, tc420.ErrEndOfSteps) {
		t.Errorf("Next() = %v, want a parse error", err)
	}
}

func TestWSStepSource_CancelUnblocks(t *testing.T) {
	srv := feedServer(t, nil, true)

	src, err := dialStepFeed(context.Background(), stepFeed{URL: wsURLFor(srv)})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := src.Next(ctx, 0)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Next() = %v, want context.DeadlineExceeded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next() did not return after the context ended")
	}
}

func TestDialStepFeed_HTTPURL(t *testing.T) {
	srv := feedServer(t, []string{"1 1 2 3 4 5"}, false)

	src, err := dialStepFeed(context.Background(), stepFeed{URL: srv.URL})
	if err != nil {
		t.Fatalf("connect to %s: %v", srv.URL, err)
	}
	defer src.Close()

	got, err := src.Next(context.Background(), 0)
	if err != nil {
		t.Fatalf("Next() = %v", err)
	}
	if want := (tc420.PlayStep{Duration: time.Second, Channels: [5]int{1, 2, 3, 4, 5}}); got != want {
		t.Errorf("Next() = %+v, want %+v", got, want)
	}
}

func TestStepFeed_Header(t *testing.T) {
	if h := (stepFeed{URL: "ws://x"}).header(); h != nil {
		t.Errorf("header without username = %v, want nil", h)
	}

	h := stepFeed{Username: "tc", Password: "secret"}.header()
	req := http.Request{Header: h}
	user, pass, ok := req.BasicAuth()
	if !ok || user != "tc" || pass != "secret" {
		t.Errorf("BasicAuth() = %q, %q, %v", user, pass, ok)
	}
}

func TestDialStepFeed_Errors(t *testing.T) {
	srv := feedServer(t, nil, false)

	tests := []struct {
		name string
		feed stepFeed
		want string
	}{
		{"scheme", stepFeed{URL: "ftp://localhost/"}, "unsupported URL scheme"},
		{"bad auth", stepFeed{URL: wsURLFor(srv), Username: "tc", Password: "wrong"}, "401"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dialStepFeed(context.Background(), tt.feed)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}
