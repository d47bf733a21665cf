package converter

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/james-see/scorestream/pkg/base"
	"github.com/james-see/scorestream/pkg/common"
	"github.com/james-see/scorestream/pkg/key"
	"github.com/james-see/scorestream/pkg/meter"
	"github.com/james-see/scorestream/pkg/note"
	"github.com/james-see/scorestream/pkg/pitch"
	"github.com/james-see/scorestream/pkg/stream"
)

// defaultVelocity is used for every written note
const defaultVelocity = 100

// sounding is one held key, in ticks
type sounding struct {
	start, end int64
	key        uint8
}

type meterChange struct {
	tick       int64
	num, denom uint8
}

type keyChange struct {
	tick   int64
	sharps int
	minor  bool
}

// keySignature decodes a key signature meta event: FF 59 02 sf mi
func keySignature(msg []byte) (sharps int, minor bool, ok bool) {
	if len(msg) < 5 || msg[0] != 0xFF || msg[1] != 0x59 || msg[2] != 0x02 {
		return 0, false, false
	}
	return int(int8(msg[3])), msg[4] == 1, true
}

func keySignatureMessage(ks *key.KeySignature) smf.Message {
	var mi byte
	if ks.Mode == "minor" {
		mi = 1
	}
	return smf.Message([]byte{0xFF, 0x59, 0x02, byte(int8(ks.Sharps)), mi})
}

// lastPerTick sorts changes by tick and keeps the last of several at one tick.
func lastPerTick[T any](changes []T, tick func(T) int64) []T {
	slices.SortStableFunc(changes, func(a, b T) int { return cmp.Compare(tick(a), tick(b)) })
	slices.Reverse(changes)
	changes = slices.CompactFunc(changes, func(a, b T) bool { return tick(a) == tick(b) })
	slices.Reverse(changes)
	return changes
}

type trackNotes struct {
	name  string
	notes []sounding
}

// ParseMIDIFile reads a MIDI file as a score
func (c *Converter) ParseMIDIFile(filename string) (*stream.Stream, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return c.ParseMIDI(data)
}

// ParseMIDI parses MIDI data into a score
func (c *Converter) ParseMIDI(data []byte) (*stream.Stream, error) {
	song, err := c.ReadSong(data)
	if err != nil {
		return nil, err
	}
	return song.Score, nil
}

// ReadSong parses MIDI data into a score together with the file's first tempo and
// its resolution. Every track with notes becomes a part named after the track.
// Time signatures from any track apply to all parts.
func (c *Converter) ReadSong(data []byte) (*Song, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("unsupported MIDI time format: %v", s.TimeFormat)
	}
	song := &Song{Tempo: c.opts.Tempo, TicksPerQuarter: mt.Resolution()}

	var meters []meterChange
	var keys []keyChange
	var tracks []trackNotes
	tempoSet := false
	for _, track := range s.Tracks {
		var tick int64
		var tn trackNotes
		held := make(map[[2]uint8][]sounding)
		for _, ev := range track {
			tick += int64(ev.Delta)
			if sharps, minor, ok := keySignature(ev.Message); ok {
				keys = append(keys, keyChange{tick: tick, sharps: sharps, minor: minor})
				continue
			}
			var ch, key, vel, num, denom, cpt, dsqpq uint8
			var bpm float64
			var text string
			msg := midi.Message(ev.Message)
			switch {
			case msg.GetNoteStart(&ch, &key, &vel):
				k := [2]uint8{ch, key}
				held[k] = append(held[k], sounding{start: tick, key: key})
			case msg.GetNoteEnd(&ch, &key):
				k := [2]uint8{ch, key}
				if q := held[k]; len(q) > 0 {
					n := q[0]
					n.end = tick
					held[k] = q[1:]
					tn.notes = append(tn.notes, n)
				}
			case ev.Message.GetMetaTimeSig(&num, &denom, &cpt, &dsqpq):
				meters = append(meters, meterChange{tick: tick, num: num, denom: denom})
			case ev.Message.GetMetaTempo(&bpm):
				if !tempoSet && bpm > 0 {
					song.Tempo, tempoSet = bpm, true
				}
			case ev.Message.GetMetaTrackName(&text):
				tn.name = text
			}
		}
		// keys never released stop at the end of the track
		for _, q := range held {
			for _, n := range q {
				n.end = tick
				tn.notes = append(tn.notes, n)
			}
		}
		if len(tn.notes) == 0 {
			continue
		}
		slices.SortFunc(tn.notes, func(a, b sounding) int {
			if n := cmp.Compare(a.start, b.start); n != 0 {
				return n
			}
			if n := cmp.Compare(a.key, b.key); n != 0 {
				return n
			}
			return cmp.Compare(a.end, b.end)
		})
		tracks = append(tracks, tn)
	}

	meters = lastPerTick(meters, func(m meterChange) int64 { return m.tick })
	keys = lastPerTick(keys, func(k keyChange) int64 { return k.tick })

	score := stream.NewScore()
	for _, tn := range tracks {
		part, err := c.buildPart(tn, meters, keys, song.TicksPerQuarter)
		if err != nil {
			return nil, err
		}
		if err := score.Insert(0, part); err != nil {
			return nil, err
		}
	}
	if c.opts.MakeNotation {
		if score, err = score.MakeNotation(nil); err != nil {
			return nil, fmt.Errorf("failed to make notation: %w", err)
		}
	}
	song.Score = score
	return song, nil
}

// toQL converts ticks to a quarter length snapped to the quantize grid
func (c *Converter) toQL(tick int64, resolution uint16) float64 {
	ql := float64(tick) / float64(resolution)
	if g := c.opts.QuantizeGrid; g > 0 {
		ql = math.Round(ql/g) * g
	}
	return common.OpFrac(ql)
}

// buildPart turns one track into a part. Keys sharing a start and an end become a
// chord, gaps are filled with rests, and the part gets its best clef.
func (c *Converter) buildPart(tn trackNotes, meters []meterChange, keys []keyChange, resolution uint16) (*stream.Stream, error) {
	part := stream.NewPart()
	part.SetID(tn.name)

	if len(meters) == 0 {
		ts, err := meter.NewTimeSignature(c.opts.DefaultTimeSignature)
		if err != nil {
			return nil, fmt.Errorf("invalid default time signature: %w", err)
		}
		if err := part.Insert(0, ts); err != nil {
			return nil, err
		}
	}
	for _, m := range meters {
		ts, err := meter.NewTimeSignature(fmt.Sprintf("%d/%d", m.num, m.denom))
		if err != nil {
			return nil, fmt.Errorf("time signature at tick %d: %w", m.tick, err)
		}
		if err := part.Insert(c.toQL(m.tick, resolution), ts); err != nil {
			return nil, err
		}
	}

	for _, k := range keys {
		ks, err := key.New(k.sharps)
		if err != nil {
			return nil, fmt.Errorf("key signature at tick %d: %w", k.tick, err)
		}
		ks.Mode = "major"
		if k.minor {
			ks.Mode = "minor"
		}
		if err := part.Insert(c.toQL(k.tick, resolution), ks); err != nil {
			return nil, err
		}
	}

	type span struct{ start, end float64 }
	var order []span
	groups := make(map[span][]pitch.Pitch)
	for _, n := range tn.notes {
		sp := span{c.toQL(n.start, resolution), c.toQL(n.end, resolution)}
		if sp.end <= sp.start {
			if c.opts.QuantizeGrid == 0 {
				continue
			}
			sp.end = common.OpFrac(sp.start + c.opts.QuantizeGrid)
		}
		if _, ok := groups[sp]; !ok {
			order = append(order, sp)
		}
		groups[sp] = append(groups[sp], pitch.FromMIDI(int(n.key)))
	}

	for _, sp := range order {
		ps := groups[sp]
		ql := common.OpFrac(sp.end - sp.start)
		var el base.Element
		if len(ps) == 1 {
			n, err := note.FromPitch(ps[0], ql)
			if err != nil {
				return nil, fmt.Errorf("note at %v: %w", sp.start, err)
			}
			el = n
		} else {
			ch, err := note.ChordFromPitches(ql, ps...)
			if err != nil {
				return nil, fmt.Errorf("chord at %v: %w", sp.start, err)
			}
			el = ch
		}
		if err := part.Insert(sp.start, el); err != nil {
			return nil, err
		}
	}

	for _, g := range part.FindGaps() {
		r, err := note.NewRest(g.End - g.Start)
		if err != nil {
			return nil, fmt.Errorf("rest at %v: %w", g.Start, err)
		}
		if err := part.Insert(g.Start, r); err != nil {
			return nil, err
		}
	}
	if err := part.Insert(0, part.BestClef()); err != nil {
		return nil, err
	}
	return part, nil
}

// GenerateMIDI writes a score with the converter's tempo and resolution
func (c *Converter) GenerateMIDI(score *stream.Stream) ([]byte, error) {
	return c.WriteSong(&Song{Score: score})
}

// WriteSong writes a score as a format 1 MIDI file: a conductor track with the
// tempo and the first part's key and time signatures, then one track per part. A stream
// without parts is written as a single part.
func (c *Converter) WriteSong(song *Song) ([]byte, error) {
	if song == nil || song.Score == nil {
		return nil, errors.New("nil score")
	}
	tpq := song.TicksPerQuarter
	if tpq == 0 {
		tpq = c.opts.TicksPerQuarter
	}
	tempo := song.Tempo
	if tempo <= 0 {
		tempo = c.opts.Tempo
	}
	toTick := func(ql float64) uint32 {
		return uint32(math.Round(ql * float64(tpq)))
	}

	parts := song.Score.Parts()
	if len(parts) == 0 {
		parts = []*stream.Stream{song.Score}
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(tpq)

	var conductor smf.Track
	conductor.Add(0, smf.MetaTempo(tempo))
	var last uint32
	for off, el := range parts[0].Flat().GetElementsByClass(base.KindKeySignature, base.KindTimeSignature).All() {
		tick := toTick(off)
		switch x := el.(type) {
		case *meter.TimeSignature:
			conductor.Add(tick-last, smf.MetaMeter(uint8(x.Numerator()), uint8(x.Denominator())))
		case *key.KeySignature:
			conductor.Add(tick-last, keySignatureMessage(x))
		}
		last = tick
	}
	conductor.Close(0)
	if err := s.Add(conductor); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}

	for i, part := range parts {
		track, err := partTrack(part, uint8(i%16), toTick)
		if err != nil {
			return nil, err
		}
		if err := s.Add(track); err != nil {
			return nil, fmt.Errorf("failed to add track: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

// partTrack collects the sounding keys of a part. A tie stop or continue extends
// the key still held from the tied note before it.
func partTrack(part *stream.Stream, channel uint8, toTick func(float64) uint32) (smf.Track, error) {
	var sounds []sounding
	tied := make(map[uint8]int)
	for off, el := range part.Flat().Notes().All() {
		p, ok := el.(note.Pitched)
		if !ok {
			continue
		}
		var tie string
		if t, ok := el.(note.Tieable); ok && t.GetTie() != nil {
			tie = t.GetTie().Type
		}
		start := int64(toTick(off))
		end := int64(toTick(off + el.Base().QuarterLength()))
		for _, pt := range p.Pitches() {
			m := pt.MIDI()
			if m < 0 || m > 127 {
				return nil, fmt.Errorf("pitch %v is outside the MIDI range", pt)
			}
			key := uint8(m)
			i, ok := tied[key]
			if ok && (tie == note.TieStop || tie == note.TieContinue) {
				sounds[i].end = end
			} else {
				sounds = append(sounds, sounding{start: start, end: end, key: key})
				i = len(sounds) - 1
			}
			if tie == note.TieStart || tie == note.TieContinue {
				tied[key] = i
			} else {
				delete(tied, key)
			}
		}
	}

	type event struct {
		tick uint32
		on   bool
		key  uint8
	}
	events := make([]event, 0, 2*len(sounds))
	for _, s := range sounds {
		events = append(events,
			event{tick: uint32(s.start), on: true, key: s.key},
			event{tick: uint32(s.end), key: s.key})
	}
	// releases sort before attacks at the same tick
	slices.SortStableFunc(events, func(a, b event) int {
		if n := cmp.Compare(a.tick, b.tick); n != 0 {
			return n
		}
		switch {
		case a.on == b.on:
			return 0
		case a.on:
			return 1
		default:
			return -1
		}
	})

	var track smf.Track
	if name := part.ID(); name != "" {
		track.Add(0, smf.MetaTrackSequenceName(name))
	}
	var last uint32
	for _, e := range events {
		if e.on {
			track.Add(e.tick-last, midi.NoteOn(channel, e.key, defaultVelocity))
		} else {
			track.Add(e.tick-last, midi.NoteOff(channel, e.key))
		}
		last = e.tick
	}
	track.Close(0)
	return track, nil
}

// WriteMIDIFile writes a score to a MIDI file
func (c *Converter) WriteMIDIFile(score *stream.Stream, filename string) error {
	data, err := c.GenerateMIDI(score)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
