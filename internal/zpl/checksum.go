package zpl

import "github.com/snksoft/crc"

// Checksum computes the value appended to Base64 framed graphic field data.
// It is given the Base64 text.
type Checksum func(data []byte) uint16

var xmodem = crc.NewTable(crc.XMODEM)

// CRC16 is CRC-16/XMODEM: the CCITT polynomial 0x1021 with a zero seed.
func CRC16(data []byte) uint16 {
	return xmodem.CRC16(xmodem.UpdateCrc(xmodem.InitCrc(), data))
}

// ZeroChecksum always returns 0, for printers and emulators that don't verify
// the checksum.
func ZeroChecksum([]byte) uint16 {
	return 0
}
