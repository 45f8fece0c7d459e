// SPDX-License-Identifier: MIT

package mbp481

// XorChecksum computes the one-byte XOR-reduce checksum over data.
// Used by the checksum variant of the bootloader frame.
func XorChecksum(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc ^= b
	}
	return crc
}

// Crc16Modbus computes the CRC-16/MODBUS checksum over data.
// The ATE 0x0D frame variant carries it little-endian after the payload.
func Crc16Modbus(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}
