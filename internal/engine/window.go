package engine

// colorRef packs an RGBA color into a Win32 COLORREF (0x00BBGGRR).
func colorRef(c [4]float32) uint32 {
	channel := func(v float32) uint32 {
		switch {
		case v <= 0:
			return 0
		case v >= 1:
			return 255
		}
		return uint32(v*255 + 0.5)
	}
	return channel(c[2])<<16 | channel(c[1])<<8 | channel(c[0])
}
