// SPDX-License-Identifier: MIT

package probe

import (
	"fmt"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
)

// Transport is the raw byte-stream collaborator the engine probes through.
// The engine never opens or configures the physical link; it is handed an
// already-configured transport and owns it exclusively for the session.
//
// Read must return within timeout; a read that would block indefinitely is a
// design violation. An empty slice with a nil error means the device stayed
// silent.
type Transport interface {
	Write(data []byte) error
	Read(maxBytes int, timeout time.Duration) ([]byte, error)
	ResetBuffers() error
	Close() error
}

// SerialTransport drives a UART through go.bug.st/serial.
type SerialTransport struct {
	port serial.Port
}

// OpenSerialTransport opens a serial port at 8N1.
func OpenSerialTransport(portName string, baudRate int) (*SerialTransport, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %v", portName, err)
	}
	return &SerialTransport{port: port}, nil
}

// NewSerialTransport wraps an already-open port.
func NewSerialTransport(port serial.Port) *SerialTransport {
	return &SerialTransport{port: port}
}

func (s *SerialTransport) Write(data []byte) error {
	_, err := s.port.Write(data)
	return err
}

func (s *SerialTransport) Read(maxBytes int, timeout time.Duration) ([]byte, error) {
	if err := s.port.SetReadTimeout(timeout); err != nil {
		return nil, err
	}
	buf := make([]byte, maxBytes)
	n, err := s.port.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (s *SerialTransport) ResetBuffers() error {
	if err := s.port.ResetInputBuffer(); err != nil {
		return err
	}
	return s.port.ResetOutputBuffer()
}

func (s *SerialTransport) Close() error {
	return s.port.Close()
}

// WebSocketTransport bridges a remote UART exposed over a websocket that
// carries raw link bytes in binary messages.
type WebSocketTransport struct {
	conn   *websocket.Conn
	buf    []byte
	offset int
	closed bool
}

// NewWebSocketTransport wraps an established websocket connection.
func NewWebSocketTransport(conn *websocket.Conn) *WebSocketTransport {
	return &WebSocketTransport{conn: conn}
}

func (w *WebSocketTransport) Write(data []byte) error {
	if w.closed {
		return fmt.Errorf("websocket connection closed")
	}
	return w.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (w *WebSocketTransport) Read(maxBytes int, timeout time.Duration) ([]byte, error) {
	if w.closed {
		return nil, fmt.Errorf("websocket connection closed")
	}

	// Drain buffered remainder from an earlier oversized message first
	if w.offset < len(w.buf) {
		n := len(w.buf) - w.offset
		if n > maxBytes {
			n = maxBytes
		}
		out := make([]byte, n)
		copy(out, w.buf[w.offset:w.offset+n])
		w.offset += n
		return out, nil
	}

	if err := w.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return nil, nil
			}
			w.closed = true
			return nil, err
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		if len(data) <= maxBytes {
			return data, nil
		}
		w.buf = data
		w.offset = maxBytes
		return data[:maxBytes], nil
	}
}

// ResetBuffers drops any buffered message remainder. The remote end of the
// bridge owns the physical UART buffers.
func (w *WebSocketTransport) ResetBuffers() error {
	w.buf = nil
	w.offset = 0
	return nil
}

func (w *WebSocketTransport) Close() error {
	w.closed = true
	return w.conn.Close()
}
