// Package printer delivers ZPL documents to a Zebra printer over TCP, a
// serial port, USB or Bluetooth LE.
package printer

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tomgalvin.uk/zplconv/internal/config"
)

var ErrNoPrinter = errors.New("no printer configured")

// A Connection carries raw bytes to a printer. Connect must be called before
// Write.
type Connection interface {
	Connect() error
	Write(data []byte) error
	Disconnect() error
}

// Send connects, writes data and disconnects.
func Send(conn Connection, data []byte) error {
	if err := conn.Connect(); err != nil {
		return fmt.Errorf("Couldn't connect to printer:\n%w", err)
	}
	werr := conn.Write(data)
	derr := conn.Disconnect()
	if werr != nil {
		return fmt.Errorf("Couldn't send to printer:\n%w", werr)
	}
	if derr != nil {
		slog.Warn("Couldn't disconnect from printer", "error", derr)
	}
	return nil
}

// FromConfig builds the connection cfg describes. Nothing is opened until
// Connect.
func FromConfig(cfg config.PrinterConfig) (Connection, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", "none":
		return nil, ErrNoPrinter
	case "tcp":
		if cfg.Address == "" {
			return nil, fmt.Errorf("tcp printer needs an address")
		}
		return &TCPConnection{Address: cfg.Address}, nil
	case "serial":
		if cfg.Address == "" {
			return nil, fmt.Errorf("serial printer needs a port")
		}
		return &SerialConnection{Port: cfg.Address, BaudRate: cfg.BaudRate}, nil
	case "usb":
		return &USBConnection{VendorID: cfg.VendorID, ProductID: cfg.ProductID}, nil
	case "bluetooth":
		if cfg.Name == "" && cfg.Address == "" {
			return nil, fmt.Errorf("bluetooth printer needs a name or an address")
		}
		return &BluetoothConnection{Name: cfg.Name, Address: cfg.Address}, nil
	}
	return nil, fmt.Errorf("unknown printer kind %q", cfg.Kind)
}
