package printer

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"

	"tomgalvin.uk/zplconv/internal/config"
)

func aListener(t *testing.T) (net.Listener, <-chan []byte) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })

	received := make(chan []byte, 1)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			close(received)
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()
	return l, received
}

func TestSendOverTCP(t *testing.T) {
	l, received := aListener(t)
	label := []byte("^XA\n^FO0,0^GFA,1,1,1,80^FS\n^XZ\n")

	if err := Send(&TCPConnection{Address: l.Addr().String()}, label); err != nil {
		t.Fatal(err)
	}
	if got := <-received; !bytes.Equal(got, label) {
		t.Errorf("printer received %q, expected %q", got, label)
	}
}

func TestSendConnectFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	if err := Send(&TCPConnection{Address: addr}, []byte("^XA^XZ")); err == nil {
		t.Errorf("expected an error sending to a closed port")
	}
}

func TestWriteBeforeConnect(t *testing.T) {
	conns := []Connection{&TCPConnection{}, &SerialConnection{}, &USBConnection{}, &BluetoothConnection{}}
	for _, c := range conns {
		if err := c.Write([]byte("^XA^XZ")); err == nil {
			t.Errorf("%T: expected an error writing before connecting", c)
		}
		if err := c.Disconnect(); err != nil {
			t.Errorf("%T: disconnecting an unopened connection failed: %v", c, err)
		}
	}
}

func TestTCPDefaultPort(t *testing.T) {
	cases := map[string]string{
		"10.0.0.7":       "10.0.0.7:9100",
		"10.0.0.7:6101":  "10.0.0.7:6101",
		"zebra.local":    "zebra.local:9100",
		"::1":            "[::1]:9100",
		"[fe80::1]:9100": "[fe80::1]:9100",
	}
	for address, expected := range cases {
		if got := (&TCPConnection{Address: address}).addr(); got != expected {
			t.Errorf("%q dials %q, expected %q", address, got, expected)
		}
	}
}

func TestFromConfig(t *testing.T) {
	cases := []struct {
		cfg      config.PrinterConfig
		expected string
	}{
		{config.PrinterConfig{Kind: "tcp", Address: "10.0.0.7"}, "*printer.TCPConnection"},
		{config.PrinterConfig{Kind: "TCP", Address: "10.0.0.7"}, "*printer.TCPConnection"},
		{config.PrinterConfig{Kind: "serial", Address: "/dev/ttyUSB0", BaudRate: 115200}, "*printer.SerialConnection"},
		{config.PrinterConfig{Kind: "usb"}, "*printer.USBConnection"},
		{config.PrinterConfig{Kind: "bluetooth", Name: "XP-420"}, "*printer.BluetoothConnection"},
	}
	for _, c := range cases {
		conn, err := FromConfig(c.cfg)
		if err != nil {
			t.Errorf("%+v: %v", c.cfg, err)
			continue
		}
		if got := typeName(conn); got != c.expected {
			t.Errorf("%+v: got %s, expected %s", c.cfg, got, c.expected)
		}
	}

	for _, kind := range []string{"", "none"} {
		if _, err := FromConfig(config.PrinterConfig{Kind: kind}); !errors.Is(err, ErrNoPrinter) {
			t.Errorf("kind %q: expected ErrNoPrinter, got %v", kind, err)
		}
	}
	bad := []config.PrinterConfig{
		{Kind: "tcp"},
		{Kind: "serial"},
		{Kind: "bluetooth"},
		{Kind: "parallel", Address: "lpt1"},
	}
	for _, cfg := range bad {
		if _, err := FromConfig(cfg); err == nil {
			t.Errorf("%+v: expected an error", cfg)
		}
	}
}

func typeName(c Connection) string {
	switch c.(type) {
	case *TCPConnection:
		return "*printer.TCPConnection"
	case *SerialConnection:
		return "*printer.SerialConnection"
	case *USBConnection:
		return "*printer.USBConnection"
	case *BluetoothConnection:
		return "*printer.BluetoothConnection"
	}
	return "unknown"
}

func TestChunks(t *testing.T) {
	data := []byte("0123456789abcdefghijklmnopqrstuvwxyz")
	for _, size := range []int{1, 5, 20, 36, 100} {
		var joined []byte
		for chunk := range chunks(data, size) {
			if len(chunk) > size || len(chunk) == 0 {
				t.Errorf("size %d: chunk of %d bytes", size, len(chunk))
			}
			joined = append(joined, chunk...)
		}
		if !bytes.Equal(joined, data) {
			t.Errorf("size %d: chunks join to %q", size, joined)
		}
	}
}
