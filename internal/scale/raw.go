package scale

// signExtend24 converts a 24-bit two's complement value to int32.
func signExtend24(v uint32) int32 {
	v &= 0xFFFFFF
	if v&0x800000 != 0 {
		return int32(v | 0xFF000000)
	}
	return int32(v)
}
