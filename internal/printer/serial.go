package printer

import (
	"fmt"
	"log/slog"

	"go.bug.st/serial"
)

type SerialConnection struct {
	Port     string
	BaudRate int

	port serial.Port
}

func (c *SerialConnection) Connect() error {
	baud := c.BaudRate
	if baud == 0 {
		baud = 9600
	}
	mode := &serial.Mode{
		BaudRate: baud,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(c.Port, mode)
	if err != nil {
		ports, _ := serial.GetPortsList()
		slog.Error("Couldn't open serial port", "port", c.Port, "available", ports)
		return fmt.Errorf("Couldn't open serial port %s:\n%w", c.Port, err)
	}
	c.port = port
	return nil
}

func (c *SerialConnection) Write(data []byte) error {
	if c.port == nil {
		return fmt.Errorf("Printer is not connected")
	}
	for len(data) > 0 {
		n, err := c.port.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return c.port.Drain()
}

func (c *SerialConnection) Disconnect() error {
	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	return err
}
