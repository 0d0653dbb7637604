// Package statusterm is an optional bench-unit status readout: it
// renders the regulator's active mode, active link, and fault bitfield
// onto a small character display. Generalized from the teacher's
// image-buffer display drivers (sharpmem) to a text readout that is
// cleared and redrawn on each Render, using tinyterm to wrap a
// drivers.Displayer as a console.
package statusterm

import (
	"fmt"
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyterm"
)

// Status is the snapshot this package knows how to render; the caller
// fills it before each Render.
type Status struct {
	Mode         string
	Link         string
	Faults       uint8
	StickyFaults uint8
	DeviceNumber uint8
}

// Display drives a tinyterm.Terminal over a character/pixel display,
// refreshing a fixed set of lines rather than scrolling, since the
// readout is a live status panel and not a log.
type Display struct {
	term *tinyterm.Terminal
	fg   color.RGBA
}

// Config bundles the display collaborator and font, mirroring the
// teacher's sharpmem.Config shape (plain data, no behavior).
type Config struct {
	Target drivers.Displayer
	Font   *tinyfont.Font
	FG     color.RGBA
	BG     color.RGBA
}

// New constructs a Display. The terminal is configured once; callers
// call Render on every status change, not every control tick, to avoid
// saturating a slow display bus.
func New(cfg Config) *Display {
	term := tinyterm.NewTerminal(cfg.Target)
	term.Configure(&tinyterm.Config{
		Font:       cfg.Font,
		FontHeight: 16,
		FontOffset: 12,
	})
	return &Display{term: term, fg: cfg.FG}
}

// Render clears the terminal and writes the current status: device and
// mode, then link, then the active and sticky fault bytes.
func (d *Display) Render(s Status) {
	d.term.Clear()
	fmt.Fprintf(d.term, "dev %d  %s\n", s.DeviceNumber, s.Mode)
	fmt.Fprintf(d.term, "link %s\n", s.Link)
	fmt.Fprintf(d.term, "fault %02X sticky %02X\n", s.Faults, s.StickyFaults)
}
