// Package adc models the analog-to-digital converter the recorder samples
// from. Readers return raw 12-bit conversion results; ToPCM scales them into
// the signed 16-bit range written to WAV files.
package adc

// Converter resolution.
const (
	Bits   = 12
	MaxRaw = 1<<Bits - 1 // 4095
)

// PCM bounds produced by ToPCM. The map is symmetric, so -32768 is never used.
const (
	PCMMin = -32767
	PCMMax = 32767
)

// Reader returns the latest conversion result in 0..MaxRaw. It is called on
// the controller's tick path and must not block.
type Reader interface {
	Read() uint16
}

// ToPCM linearly maps a raw reading onto the signed PCM range. Integer
// division truncates, so mid-scale (2048) lands slightly above zero.
func ToPCM(raw uint16) int16 {
	v := int32(raw)
	if v > MaxRaw {
		v = MaxRaw
	}
	return int16(v*(PCMMax-PCMMin)/MaxRaw + PCMMin)
}
