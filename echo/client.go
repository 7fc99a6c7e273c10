package echo

import (
	"fmt"
	"io"
	"net"
	"time"
)

const (
	DIAL_TIMEOUT = 2 * time.Second
	IO_TIMEOUT   = 5 * time.Second
)

// Client holds one connection to an echo server. It is not safe for
// concurrent use; open one Client per goroutine.
type Client struct {
	conn net.Conn

	// Timeout bounds each read and write. Defaults to IO_TIMEOUT.
	Timeout time.Duration
}

func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, DIAL_TIMEOUT)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return &Client{conn: conn, Timeout: IO_TIMEOUT}, nil
}

// Exchange writes the whole message, half-closes the send direction so
// the peer observes end-of-input, then reads until end-of-stream and
// returns everything received. Any connect, timeout, write or read
// failure is terminal; there is no retry. Exchange consumes the
// connection: the Client cannot be reused afterwards.
func (c *Client) Exchange(message []byte) ([]byte, error) {
	c.conn.SetWriteDeadline(time.Now().Add(c.Timeout))
	if err := writeFull(c.conn, message); err != nil {
		return nil, fmt.Errorf("write failed: %w", err)
	}

	if tcpConn, ok := c.conn.(*net.TCPConn); ok {
		if err := tcpConn.CloseWrite(); err != nil {
			return nil, fmt.Errorf("failed to close write side: %w", err)
		}
	}

	var response []byte
	buffer := make([]byte, readBufferSize)
	for {
		c.conn.SetReadDeadline(time.Now().Add(c.Timeout))
		numBytes, err := c.conn.Read(buffer)
		if numBytes > 0 {
			response = append(response, buffer[:numBytes]...)
		}
		if err == io.EOF {
			return response, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read failed: %w", err)
		}
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}
