// Package converter reads and writes Standard MIDI Files as scores. A file becomes a
// Score holding one Part per track that carries notes; writing goes the other way,
// one track per Part, with tied notes joined into single sounding events.
package converter

import "github.com/james-see/scorestream/pkg/stream"

// Options control how MIDI ticks map onto quarter lengths.
type Options struct {
	// TicksPerQuarter is the resolution of written files.
	TicksPerQuarter uint16
	// Tempo in beats per minute for written files that carry no tempo of their own.
	Tempo float64
	// QuantizeGrid snaps note starts and ends to multiples of this quarter length.
	// Zero keeps raw positions.
	QuantizeGrid float64
	// MakeNotation splits parsed parts into measures, with ties and beams.
	MakeNotation bool
	// DefaultTimeSignature is inserted when a file carries no time signature.
	DefaultTimeSignature string
}

// DefaultOptions returns 480 ticks per quarter, 120 bpm, a sixteenth-note grid and
// 4/4.
func DefaultOptions() Options {
	return Options{
		TicksPerQuarter:      480,
		Tempo:                120.0,
		QuantizeGrid:         0.25,
		DefaultTimeSignature: stream.DefaultTimeSignature,
	}
}

// Song is a parsed MIDI file.
type Song struct {
	Score           *stream.Stream
	Tempo           float64
	TicksPerQuarter uint16
}

// ConversionResult holds the result of a conversion
type ConversionResult struct {
	Data     []byte
	Filename string
	Format   Format
}

// Converter handles format conversions
type Converter struct {
	opts Options
}

// New creates a new Converter. A zero resolution, tempo or time signature in opts
// takes its default.
func New(opts Options) *Converter {
	def := DefaultOptions()
	if opts.TicksPerQuarter == 0 {
		opts.TicksPerQuarter = def.TicksPerQuarter
	}
	if opts.Tempo <= 0 {
		opts.Tempo = def.Tempo
	}
	if opts.QuantizeGrid < 0 {
		opts.QuantizeGrid = 0
	}
	if opts.DefaultTimeSignature == "" {
		opts.DefaultTimeSignature = def.DefaultTimeSignature
	}
	return &Converter{opts: opts}
}

// Options returns the converter's settings
func (c *Converter) Options() Options {
	return c.opts
}

// SetOptions replaces the converter's settings
func (c *Converter) SetOptions(opts Options) {
	c.opts = New(opts).opts
}
