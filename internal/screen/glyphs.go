package screen

// Glyph slots. The display's ROM has no Cyrillic, so the letters that have
// no Latin look-alike are loaded into CGRAM once at startup.
const (
	slotBe    = 0 // Б
	slotZhe   = 1 // Ж
	slotEr    = 2 // Р
	slotI     = 3 // И
	slotSoft  = 4 // Ь
	slotPe    = 5 // П
	slotGhe   = 6 // Г
	slotChe   = 7 // Ч
	glyphBe   = "\x00"
	glyphZhe  = "\x01"
	glyphEr   = "\x02"
	glyphI    = "\x03"
	glyphSoft = "\x04"
	glyphPe   = "\x05"
	glyphGhe  = "\x06"
	glyphChe  = "\x07"
)

// Glyphs holds the 5x8 bitmaps indexed by slot.
var Glyphs = [8][8]byte{
	slotBe:   {0b11111, 0b10000, 0b11110, 0b10001, 0b10001, 0b10001, 0b11110, 0b00000},
	slotZhe:  {0b10101, 0b10101, 0b01110, 0b00100, 0b01110, 0b10101, 0b10101, 0b00000},
	slotEr:   {0b11110, 0b10001, 0b10001, 0b11110, 0b10000, 0b10000, 0b10000, 0b00000},
	slotI:    {0b10001, 0b10011, 0b10011, 0b10101, 0b10101, 0b11001, 0b11001, 0b00000},
	slotSoft: {0b10000, 0b10000, 0b10000, 0b11110, 0b10001, 0b10001, 0b11110, 0b00000},
	slotPe:   {0b11111, 0b10001, 0b10001, 0b10001, 0b10001, 0b10001, 0b10001, 0b00000},
	slotGhe:  {0b11111, 0b10000, 0b10000, 0b10000, 0b10000, 0b10000, 0b10000, 0b00000},
	slotChe:  {0b10001, 0b10001, 0b10001, 0b01111, 0b00001, 0b00001, 0b00001, 0b00000},
}
