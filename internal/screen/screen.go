// Package screen renders the fixed 16x2 layouts of the filler onto an lcd.Display.
package screen

import (
	"fmt"
	"strings"

	"github.com/sweeney/fill-controller/internal/lcd"
	"github.com/sweeney/fill-controller/internal/logic"
)

// Layout text. Cyrillic letters with a Latin twin use the Latin character;
// the rest use CGRAM glyphs.
const (
	menuTitle  = "O" + glyphBe + "EPIT" + glyphSoft + " PE" + glyphZhe + glyphI + "M:" // ОБЕРІТЬ РЕЖИМ:
	menuModes  = "20L | 25L | PY" + glyphChe + "H"                                     // 20L | 25L | РУЧН
	headerText = glyphPe + "OTO" + glyphChe + "HA BA" + glyphGhe + "A:   "             // ПОТОЧНА ВАГА:
	tareOKText = "TAPA - OK!"                                                          // ТАРА - OK!
	blankLine  = "                "
)

// Presenter draws screens. Menu and Header own the whole display;
// Weight owns only the second line.
type Presenter struct {
	d lcd.Display
}

// New creates a Presenter on d.
func New(d lcd.Display) *Presenter {
	return &Presenter{d: d}
}

// LoadGlyphs registers the custom characters. Call once after the display
// is initialized.
func (p *Presenter) LoadGlyphs() error {
	for slot, rows := range Glyphs {
		if err := p.d.CreateChar(slot, rows); err != nil {
			return fmt.Errorf("load glyph %d: %w", slot, err)
		}
	}
	return nil
}

// Show renders a full-screen layout.
func (p *Presenter) Show(s logic.Screen) error {
	switch s {
	case logic.ScreenMenu:
		return p.Menu()
	case logic.ScreenHeader:
		return p.Header()
	case logic.ScreenTareOK:
		return p.TareOK()
	}
	return fmt.Errorf("unknown screen %q", s)
}

// Menu shows the mode selection screen.
func (p *Presenter) Menu() error {
	w := p.writer()
	w.clear()
	w.at(1, 0, menuTitle)
	w.at(0, 1, menuModes)
	return w.err
}

// Header shows the running title and leaves the second line for the weight.
func (p *Presenter) Header() error {
	w := p.writer()
	w.clear()
	w.at(2, 0, headerText)
	return w.err
}

// TareOK shows the tare confirmation.
func (p *Presenter) TareOK() error {
	w := p.writer()
	w.clear()
	w.at(3, 0, tareOKText)
	return w.err
}

// Weight rewrites the second line with kg to two decimals.
func (p *Presenter) Weight(kg float64) error {
	w := p.writer()
	w.at(0, 1, blankLine)
	w.at(0, 1, FormatWeight(kg))
	return w.err
}

// Blink draws or erases the idle markers in both top corners.
func (p *Presenter) Blink(on bool) error {
	mark := " "
	if on {
		mark = "*"
	}
	w := p.writer()
	w.at(lcd.Cols-1, 0, mark)
	w.at(0, 0, mark)
	return w.err
}

// Title returns the top line of s as readable text.
func Title(s logic.Screen) string {
	switch s {
	case logic.ScreenMenu:
		return Readable(menuTitle)
	case logic.ScreenHeader:
		return Readable(strings.TrimSpace(headerText))
	case logic.ScreenTareOK:
		return tareOKText
	}
	return ""
}

// FormatWeight returns the weight line text, e.g. "12.30 kg".
func FormatWeight(kg float64) string {
	return fmt.Sprintf("%.2f kg", kg)
}

// Readable returns s with glyph codes replaced by the letters they draw.
func Readable(s string) string {
	return glyphNames.Replace(s)
}

var glyphNames = strings.NewReplacer(
	glyphBe, "Б", glyphZhe, "Ж", glyphEr, "Р", glyphI, "И",
	glyphSoft, "Ь", glyphPe, "П", glyphGhe, "Г", glyphChe, "Ч",
)

// writer stops at the first display error.
type writer struct {
	d   lcd.Display
	err error
}

func (p *Presenter) writer() *writer {
	return &writer{d: p.d}
}

func (w *writer) clear() {
	if w.err != nil {
		return
	}
	if err := w.d.Clear(); err != nil {
		w.err = fmt.Errorf("clear: %w", err)
	}
}

func (w *writer) at(col, row int, s string) {
	if w.err != nil {
		return
	}
	if err := w.d.SetCursor(col, row); err != nil {
		w.err = fmt.Errorf("cursor (%d,%d): %w", col, row, err)
		return
	}
	if err := w.d.Print(s); err != nil {
		w.err = fmt.Errorf("print %q: %w", s, err)
	}
}
