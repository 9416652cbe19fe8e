package printer

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tinygo.org/x/bluetooth"
)

// Zebra Bluetooth LE printers expose ZPL through the parser service.
var (
	parserService    = bluetooth.NewUUID([16]byte{0x38, 0xeb, 0x4a, 0x80, 0xc5, 0x70, 0x11, 0xe3, 0x95, 0x07, 0x00, 0x02, 0xa5, 0xd5, 0xc5, 0x1b})
	toPrinter        = bluetooth.NewUUID([16]byte{0x38, 0xeb, 0x4a, 0x82, 0xc5, 0x70, 0x11, 0xe3, 0x95, 0x07, 0x00, 0x02, 0xa5, 0xd5, 0xc5, 0x1b})
	defaultChunkSize = 20
)

// BluetoothConnection finds the printer by advertised Name, or uses Address
// (a MAC, or a UUID on macOS) directly. Data goes out in ChunkSize pieces,
// which must fit in the negotiated MTU.
type BluetoothConnection struct {
	Name        string
	Address     string
	ChunkSize   int
	ScanTimeout time.Duration

	adapter *bluetooth.Adapter
	device  bluetooth.Device
	writer  bluetooth.DeviceCharacteristic
	address bluetooth.Address
	open    bool
}

func (p *BluetoothConnection) Connect() error {
	if p.open {
		return nil
	}
	p.adapter = bluetooth.DefaultAdapter
	if err := p.adapter.Enable(); err != nil {
		return fmt.Errorf("Couldn't enable Bluetooth:\n%w", err)
	}
	p.adapter.SetConnectHandler(func(d bluetooth.Device, connected bool) {
		if !connected && d.Address == p.address {
			slog.Info("Printer disconnected", "address", d.Address.String())
			p.open = false
		}
	})

	if err := p.resolveAddress(); err != nil {
		return err
	}
	if err := p.connect(); err != nil {
		slog.Error("Couldn't connect to bluetooth printer", "error", err)
		return err
	}
	p.open = true
	return nil
}

func (p *BluetoothConnection) resolveAddress() error {
	if p.Address != "" {
		p.address.Set(p.Address)
		return nil
	}

	timeout := p.ScanTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	devices := make(chan bluetooth.ScanResult, 1)
	go func() {
		err := p.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if result.LocalName() == p.Name {
				slog.Info("Found device", "deviceName", result.LocalName())
				select {
				case devices <- result:
				default:
				}
				adapter.StopScan()
			}
		})
		if err != nil {
			slog.Error("Failed to scan for devices", "err", err)
		}
	}()

	select {
	case dev := <-devices:
		p.address = dev.Address
		return nil
	case <-time.After(timeout):
		p.adapter.StopScan()
		return errors.New("No devices found")
	}
}

func (p *BluetoothConnection) connect() error {
	slog.Debug("Connecting to device...")
	device, err := p.adapter.Connect(p.address, bluetooth.ConnectionParams{})
	if err != nil {
		return err
	}

	slog.Debug("Discovering service...")
	services, err := device.DiscoverServices([]bluetooth.UUID{parserService})
	if err != nil || len(services) == 0 {
		device.Disconnect()
		return fmt.Errorf("Printer has no ZPL parser service: %v", err)
	}

	slog.Debug("Discovering characteristics...")
	characteristics, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{toPrinter})
	if err != nil || len(characteristics) == 0 {
		device.Disconnect()
		return fmt.Errorf("Printer has no write characteristic: %v", err)
	}
	p.writer = characteristics[0]
	p.device = device
	return nil
}

func (p *BluetoothConnection) Write(data []byte) error {
	if !p.open {
		return fmt.Errorf("Printer is not connected")
	}
	size := p.ChunkSize
	if size <= 0 {
		size = defaultChunkSize
	}
	for chunk := range chunks(data, size) {
		if _, err := p.writer.WriteWithoutResponse(chunk); err != nil {
			slog.Error("Couldn't write data", "error", err)
			return err
		}
	}
	slog.Debug("Wrote data to device", "size", len(data))
	return nil
}

func (p *BluetoothConnection) Disconnect() error {
	if !p.open {
		return nil
	}
	p.open = false
	return p.device.Disconnect()
}

// chunks yields consecutive pieces of data no longer than size.
func chunks(data []byte, size int) func(yield func([]byte) bool) {
	return func(yield func([]byte) bool) {
		for len(data) > 0 {
			n := min(size, len(data))
			if !yield(data[:n]) {
				return
			}
			data = data[n:]
		}
	}
}
