// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/term"

	"github.com/Thermoquad/tc420ctl/internal/config"
	"github.com/Thermoquad/tc420ctl/pkg/tc420"
)

// wsStepSource feeds play steps received over a WebSocket. Every text
// message holds one or more step lines ("1.5 100 99 50 0 -70"). Blank
// lines and lines starting with '#' are skipped, binary messages are
// ignored. The sequence ends when the peer closes the connection.
type wsStepSource struct {
	conn    *websocket.Conn
	pending []string

	closeOnce sync.Once
}

func newWSStepSource(conn *websocket.Conn) *wsStepSource {
	return &wsStepSource{conn: conn}
}

// stepFeed is where play steps are streamed from
type stepFeed struct {
	URL        string
	Username   string
	Password   string
	SkipVerify bool
}

// header carries HTTP Basic credentials when a username is set
func (f stepFeed) header() http.Header {
	if f.Username == "" {
		return nil
	}
	req := http.Request{Header: http.Header{}}
	req.SetBasicAuth(f.Username, f.Password)
	return req.Header
}

// dialStepFeed connects to a step feed. http and https URLs are taken as
// ws and wss.
func dialStepFeed(ctx context.Context, feed stepFeed) (*wsStepSource, error) {
	u, err := url.Parse(feed.URL)
	if err != nil {
		return nil, fmt.Errorf("step feed: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("step feed: unsupported URL scheme %q (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: feed.SkipVerify},
	}
	conn, resp, err := dialer.DialContext(ctx, u.String(), feed.header())
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("step feed %s refused the connection: %s", u.Host, resp.Status)
		}
		return nil, fmt.Errorf("step feed %s: %w", u.Host, err)
	}
	return newWSStepSource(conn), nil
}

// feedPassword takes the step feed password from TC420_PASSWORD, or asks
// for it when stdin is a terminal.
func feedPassword() (string, error) {
	if pw, ok := os.LookupEnv("TC420_PASSWORD"); ok {
		return pw, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("step feed password: set TC420_PASSWORD or run from a terminal")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

// Next blocks until the next step line arrives
func (w *wsStepSource) Next(ctx context.Context, index int) (tc420.PlayStep, error) {
	for {
		for len(w.pending) > 0 {
			line := strings.TrimSpace(w.pending[0])
			w.pending = w.pending[1:]
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			return config.ParsePlayStep(line)
		}

		if err := w.read(ctx); err != nil {
			return tc420.PlayStep{}, err
		}
	}
}

func (w *wsStepSource) read(ctx context.Context) error {
	// Unblock ReadMessage when the session stops.
	stop := context.AfterFunc(ctx, func() {
		w.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return tc420.ErrEndOfSteps
			}
			return err
		}

		if messageType != websocket.TextMessage {
			continue
		}
		w.pending = strings.Split(string(data), "\n")
		return nil
	}
}

// Close sends a close frame and closes the connection
func (w *wsStepSource) Close() error {
	var err error
	w.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = w.conn.Close()
	})
	return err
}
