package printer

import (
	"fmt"

	"github.com/google/gousb"
)

// Zebra Technologies' USB vendor ID.
const ZebraVendorID = 0x0a5f

// USBConnection talks to the first matching printer's bulk OUT endpoint. A
// zero VendorID means Zebra; a zero ProductID matches any product.
type USBConnection struct {
	VendorID  uint16
	ProductID uint16

	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	out  *gousb.OutEndpoint
}

func (c *USBConnection) Connect() error {
	vendor := gousb.ID(c.VendorID)
	if vendor == 0 {
		vendor = ZebraVendorID
	}
	product := gousb.ID(c.ProductID)

	c.ctx = gousb.NewContext()
	devs, err := c.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == vendor && (product == 0 || desc.Product == product)
	})
	// OpenDevices can fail on unrelated devices and still return ours
	if len(devs) == 0 {
		c.Disconnect()
		if err != nil {
			return fmt.Errorf("Couldn't open USB printer %s:%s:\n%w", vendor, product, err)
		}
		return fmt.Errorf("No USB printer %s:%s found", vendor, product)
	}
	c.dev = devs[0]
	for _, d := range devs[1:] {
		d.Close()
	}

	c.dev.SetAutoDetach(true)
	if c.cfg, err = c.dev.Config(1); err != nil {
		c.Disconnect()
		return err
	}
	if c.intf, err = c.cfg.Interface(0, 0); err != nil {
		c.Disconnect()
		return err
	}
	for _, ep := range c.intf.Setting.Endpoints {
		if ep.Direction == gousb.EndpointDirectionOut && ep.TransferType == gousb.TransferTypeBulk {
			c.out, err = c.intf.OutEndpoint(ep.Number)
			break
		}
	}
	if c.out == nil {
		c.Disconnect()
		if err == nil {
			err = fmt.Errorf("USB printer has no bulk OUT endpoint")
		}
		return err
	}
	return nil
}

func (c *USBConnection) Write(data []byte) error {
	if c.out == nil {
		return fmt.Errorf("Printer is not connected")
	}
	_, err := c.out.Write(data)
	return err
}

func (c *USBConnection) Disconnect() error {
	if c.intf != nil {
		c.intf.Close()
	}
	if c.cfg != nil {
		c.cfg.Close()
	}
	if c.dev != nil {
		c.dev.Close()
	}
	if c.ctx != nil {
		c.ctx.Close()
	}
	c.ctx, c.dev, c.cfg, c.intf, c.out = nil, nil, nil, nil, nil
	return nil
}
