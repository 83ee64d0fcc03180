package logic

// Decode maps a raw keypad sample to a button using the given bands.
// Samples at or above the last band decode to ButtonNone.
func Decode(bands []Band, raw int) Button {
	for _, b := range bands {
		if raw < b.Below {
			return b.Button
		}
	}
	return ButtonNone
}

// Clamp returns w, or zero if w is negative.
func Clamp(w float64) float64 {
	if w < 0 {
		return 0
	}
	return w
}
