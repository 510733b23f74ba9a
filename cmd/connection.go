// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The dominobus Authors

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/term"

	"github.com/dominohub/dominobus/pkg/config"
	"github.com/dominohub/dominobus/pkg/domino"
)

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

// WebSocketPort carries the bus over a serial-to-WebSocket bridge. Each
// binary message holds raw bus bytes. A reader goroutine feeds incoming
// messages to Read so reads can time out like a serial port.
type WebSocketPort struct {
	conn     *websocket.Conn
	incoming chan []byte
	done     chan struct{}

	mu      sync.Mutex
	timeout time.Duration
	buf     []byte
	err     error

	closeOnce sync.Once
}

func newWebSocketPort(conn *websocket.Conn) *WebSocketPort {
	p := &WebSocketPort{
		conn:     conn,
		incoming: make(chan []byte, 16),
		done:     make(chan struct{}),
		timeout:  domino.IdleReadTimeout,
	}
	go p.readLoop()
	return p
}

func (p *WebSocketPort) readLoop() {
	defer close(p.incoming)
	for {
		messageType, data, err := p.conn.ReadMessage()
		if err != nil {
			p.mu.Lock()
			p.err = err
			p.mu.Unlock()
			return
		}

		// Only binary messages carry bus bytes
		if messageType != websocket.BinaryMessage {
			continue
		}

		select {
		case p.incoming <- data:
		case <-p.done:
			return
		}
	}
}

// Read returns buffered bytes first, then waits up to the read timeout for
// the next message. A timeout returns 0 bytes and a nil error.
func (p *WebSocketPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if len(p.buf) > 0 {
		n := copy(b, p.buf)
		p.buf = p.buf[n:]
		p.mu.Unlock()
		return n, nil
	}
	timeout := p.timeout
	p.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data, ok := <-p.incoming:
		if !ok {
			return 0, ErrConnectionClosed
		}
		n := copy(b, data)
		if n < len(data) {
			p.mu.Lock()
			p.buf = append(p.buf, data[n:]...)
			p.mu.Unlock()
		}
		return n, nil
	case <-timer.C:
		return 0, nil
	case <-p.done:
		return 0, ErrConnectionClosed
	}
}

func (p *WebSocketPort) Write(b []byte) (int, error) {
	if err := p.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// SetReadTimeout sets how long Read waits for a message.
func (p *WebSocketPort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = t
	return nil
}

// Err returns the error that ended the reader goroutine, if any.
func (p *WebSocketPort) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *WebSocketPort) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		_ = p.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = p.conn.Close()
	})
	return err
}

// OpenWebSocketPort opens a WebSocket connection with HTTP Basic auth
func OpenWebSocketPort(wsURL, username, password string, skipSSLVerify bool) (*WebSocketPort, error) {
	// Parse and validate URL
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			// #nosec G402 - only when the user passes --no-ssl-verify
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return newWebSocketPort(conn), nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv("DOMINO_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Not a terminal
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// NewOpener returns an opener for the configured transport and a
// description for banners. The WebSocket password is asked for once here,
// not on every reopen.
func NewOpener(cfg config.TransportConfig) (domino.Opener, string, error) {
	if cfg.URL != "" {
		password := ""
		if cfg.Username != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		opener := func() (domino.Port, error) {
			return OpenWebSocketPort(cfg.URL, cfg.Username, password, cfg.NoSSLVerify)
		}
		return opener, fmt.Sprintf("WebSocket: %s", cfg.URL), nil
	}

	if cfg.Port != "" {
		return domino.SerialOpener(cfg.Port, cfg.Baud), fmt.Sprintf("Serial: %s @ %d baud", cfg.Port, cfg.Baud), nil
	}

	return nil, "", fmt.Errorf("either --port or --url must be specified")
}

// newSession builds the bus session for a command. The trace recorder is
// registered first, then opts are applied.
func newSession(opts ...domino.Option) (*domino.Session, string, error) {
	opener, connInfo, err := NewOpener(appConfig.Transport)
	if err != nil {
		return nil, "", err
	}

	all := []domino.Option{domino.WithLogger(logger)}
	if recorder != nil {
		all = append(all, domino.WithObserver(recorder.Observe))
	}
	all = append(all, opts...)

	return domino.NewSession(opener, all...), connInfo, nil
}
