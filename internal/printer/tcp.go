package printer

import (
	"fmt"
	"log/slog"
	"net"
	"time"
)

// Zebra printers accept raw ZPL on this port.
const RawPort = "9100"

type TCPConnection struct {
	// Address is host or host:port.
	Address string
	Timeout time.Duration

	conn net.Conn
}

func (c *TCPConnection) addr() string {
	if _, _, err := net.SplitHostPort(c.Address); err == nil {
		return c.Address
	}
	return net.JoinHostPort(c.Address, RawPort)
}

func (c *TCPConnection) Connect() error {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.Dial("tcp", c.addr())
	if err != nil {
		return err
	}
	slog.Debug("Connected to printer", "address", c.addr())
	c.conn = conn
	return nil
}

func (c *TCPConnection) Write(data []byte) error {
	if c.conn == nil {
		return fmt.Errorf("Printer is not connected")
	}
	_, err := c.conn.Write(data)
	if err == nil {
		slog.Debug("Wrote data to printer", "size", len(data))
	}
	return err
}

func (c *TCPConnection) Disconnect() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
