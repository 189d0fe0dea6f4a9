package audio

// DefaultMaxVolume keeps the mixed signal just below the 16 bit range.
const DefaultMaxVolume = 32000

// Limit scales buf down so that no sample exceeds maxVolume in magnitude and
// returns the gain it applied. Frames that are already in range are left
// untouched. The gain is applied in double precision so that the loudest
// sample lands on maxVolume.
func Limit(buf []float32, maxVolume float32) float32 {
	var peak float32
	for _, v := range buf {
		if v < 0 {
			v = -v
		}
		peak = max(peak, v)
	}
	if peak <= maxVolume {
		return 1
	}
	gain := float64(maxVolume) / float64(peak)
	for i := range buf {
		buf[i] = float32(float64(buf[i]) * gain)
	}
	return float32(gain)
}
