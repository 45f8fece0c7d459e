// SPDX-License-Identifier: MIT

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/term"

	"github.com/hazardcore/uartprobe/pkg/probe"
)

// OpenWebSocketTransport dials a UART-over-websocket bridge with HTTP Basic auth
func OpenWebSocketTransport(wsURL, username, password string, skipSSLVerify bool) (probe.Transport, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
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
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}

	return probe.NewWebSocketTransport(conn), nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv("UARTPROBE_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenTransport opens either a serial or WebSocket transport based on flags
func OpenTransport() (probe.Transport, string, error) {
	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		t, err := OpenWebSocketTransport(wsURL, wsUsername, password, wsNoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return t, fmt.Sprintf("WebSocket: %s", wsURL), nil
	}

	if portName != "" {
		t, err := probe.OpenSerialTransport(portName, baudRate)
		if err != nil {
			return nil, "", err
		}
		return t, fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate), nil
	}

	return nil, "", fmt.Errorf("either --port or --url must be specified")
}

// loadProbeConfig builds the effective session configuration from the config
// file and the hazard opt-in flag.
func loadProbeConfig() (probe.Config, error) {
	cfg := probe.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = probe.LoadConfig(configPath)
		if err != nil {
			return probe.Config{}, err
		}
	}
	if enableHazard {
		cfg.EnableHazardousOpcodeProbing = true
	}
	return cfg, nil
}

// openSession opens the transport, builds a session, and waits for the boot
// prompt. The returned cleanup closes the session and any log file.
func openSession(ctx context.Context) (*probe.Session, func(), error) {
	cfg, err := loadProbeConfig()
	if err != nil {
		return nil, nil, err
	}

	transport, connInfo, err := OpenTransport()
	if err != nil {
		return nil, nil, err
	}

	var logWriter io.Writer
	var logFile *os.File
	if sessionLog != "" {
		logFile, err = os.Create(sessionLog)
		if err != nil {
			transport.Close()
			return nil, nil, fmt.Errorf("failed to create session log: %v", err)
		}
		logWriter = logFile
	}

	session := probe.NewSession(transport, cfg, logWriter)
	cleanup := func() {
		session.Close()
		if logFile != nil {
			logFile.Close()
		}
	}

	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Power-cycle the device now; waiting for the boot prompt (up to %s)...\n", cfg.PromptTimeout)
	if err := session.WaitForPrompt(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	fmt.Printf("Prompt observed, selection window open for %s\n\n", cfg.BootWindow)

	return session, cleanup, nil
}
