package converter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/james-see/scorestream/pkg/base"
	"github.com/james-see/scorestream/pkg/clef"
	"github.com/james-see/scorestream/pkg/key"
	"github.com/james-see/scorestream/pkg/meter"
	"github.com/james-see/scorestream/pkg/note"
	"github.com/james-see/scorestream/pkg/stream"
)

// melodyMIDI is a 3/4 file at 100 bpm: C4 and E4 quarters, a quarter of silence,
// then a G4+C5 half note chord.
func melodyMIDI(t *testing.T) []byte {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(480)

	var conductor smf.Track
	conductor.Add(0, smf.MetaTempo(100))
	conductor.Add(0, smf.MetaMeter(3, 4))
	conductor.Close(0)
	require.NoError(t, s.Add(conductor))

	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName("Melody"))
	tr.Add(0, midi.NoteOn(0, 60, 100))
	tr.Add(480, midi.NoteOff(0, 60))
	tr.Add(0, midi.NoteOn(0, 64, 90))
	tr.Add(480, midi.NoteOff(0, 64))
	tr.Add(480, midi.NoteOn(0, 67, 80))
	tr.Add(0, midi.NoteOn(0, 72, 80))
	tr.Add(960, midi.NoteOff(0, 67))
	tr.Add(0, midi.NoteOff(0, 72))
	tr.Close(0)
	require.NoError(t, s.Add(tr))

	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		expected Format
	}{
		{"test.mid", FormatMIDI},
		{"test.MIDI", FormatMIDI},
		{"test.smf", FormatMIDI},
		{"test.txt", FormatText},
		{"test.seq", FormatUnknown},
		{"test", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectFormat(tt.filename))
		})
	}
}

func TestDetectFormatFromContent(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected Format
	}{
		{"MIDI file", []byte("MThd\x00\x00\x00\x06"), FormatMIDI},
		{"SysEx message", []byte{0xF0, 0x00, 0x20, 0x32, 0x00, 0xF7}, FormatUnknown},
		{"Short data", []byte{0x00, 0x01}, FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectFormatFromContent(tt.data))
		})
	}
}

func TestGetSupportedConversions(t *testing.T) {
	assert.Equal(t, []string{"midi -> midi", "midi -> txt"}, GetSupportedConversions())
}

func TestNewFillsDefaults(t *testing.T) {
	conv := New(Options{QuantizeGrid: -1})
	opts := conv.Options()
	assert.Equal(t, uint16(480), opts.TicksPerQuarter)
	assert.Equal(t, 120.0, opts.Tempo)
	assert.Zero(t, opts.QuantizeGrid)
	assert.Equal(t, "4/4", opts.DefaultTimeSignature)

	conv.SetOptions(Options{Tempo: 90})
	assert.Equal(t, 90.0, conv.Options().Tempo)
	assert.Equal(t, uint16(480), conv.Options().TicksPerQuarter)
}

func TestReadSong(t *testing.T) {
	song, err := New(DefaultOptions()).ReadSong(melodyMIDI(t))
	require.NoError(t, err)
	assert.Equal(t, 100.0, song.Tempo)
	assert.Equal(t, uint16(480), song.TicksPerQuarter)

	parts := song.Score.Parts()
	require.Len(t, parts, 1)
	part := parts[0]
	assert.Equal(t, "Melody", part.ID())

	ts := part.TimeSignature()
	require.NotNil(t, ts)
	assert.Equal(t, "3/4", ts.Ratio())

	var got []string
	for _, el := range part.NotesAndRests().Elements() {
		got = append(got, fmt.Sprint(el))
	}
	assert.Equal(t, []string{"<Note C4 1>", "<Note E4 1>", "<Rest 1>", "<Chord G4 C5 2>"}, got)

	off, err := part.ElementOffset(part.NotesAndRests().Elements()[3])
	require.NoError(t, err)
	assert.Equal(t, 3.0, off)

	clefs := part.GetElementsByClass(base.KindClef).Elements()
	require.Len(t, clefs, 1)
	assert.Equal(t, "treble", clefs[0].(*clef.Clef).Name)
}

func TestParseMIDIMakeNotation(t *testing.T) {
	opts := DefaultOptions()
	opts.MakeNotation = true
	score, err := New(opts).ParseMIDI(melodyMIDI(t))
	require.NoError(t, err)

	parts := score.Parts()
	require.Len(t, parts, 1)
	assert.Equal(t, "Melody", parts[0].ID())
	ms := parts[0].Measures()
	require.Len(t, ms, 2)
	assert.Equal(t, 3, ms[0].NotesAndRests().Len())

	chords := ms[1].GetElementsByClass(base.KindChord).Elements()
	require.Len(t, chords, 1)
	assert.Equal(t, 2.0, chords[0].Base().QuarterLength())
}

func TestParseMIDIDefaultsMeter(t *testing.T) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(96)
	var tr smf.Track
	tr.Add(0, midi.NoteOn(1, 50, 100))
	tr.Add(100, midi.NoteOff(1, 50))
	tr.Close(0)
	require.NoError(t, s.Add(tr))
	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.DefaultTimeSignature = "6/8"
	song, err := New(opts).ReadSong(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 120.0, song.Tempo)

	part := song.Score.Parts()[0]
	assert.Equal(t, "6/8", part.TimeSignature().Ratio())
	n := part.Notes().Elements()
	require.Len(t, n, 1)
	// 100 ticks at 96 per quarter snaps to one quarter
	assert.Equal(t, 1.0, n[0].Base().QuarterLength())
	assert.Equal(t, "D3", n[0].(*note.Note).Pitch.String())
}

func TestParseMIDIRejectsGarbage(t *testing.T) {
	_, err := New(DefaultOptions()).ParseMIDI([]byte("not a midi file"))
	assert.Error(t, err)

	_, err = New(DefaultOptions()).Convert([]byte("not a midi file"), FormatText)
	assert.Error(t, err)
}

func TestGenerateMIDIJoinsTies(t *testing.T) {
	part := stream.NewPart()
	part.SetID("Lead")
	require.NoError(t, part.Insert(0, meter.MustTimeSignature("4/4")))
	require.NoError(t, part.Append(note.MustNew("C4", 3), note.MustNew("D4", 2)))
	score := stream.NewScore()
	require.NoError(t, score.Insert(0, part))
	measured, err := score.MakeNotation(nil)
	require.NoError(t, err)

	conv := New(DefaultOptions())
	data, err := conv.GenerateMIDI(measured)
	require.NoError(t, err)
	assert.Equal(t, FormatMIDI, DetectFormatFromContent(data))

	back, err := conv.ParseMIDI(data)
	require.NoError(t, err)
	parts := back.Parts()
	require.Len(t, parts, 1)
	assert.Equal(t, "Lead", parts[0].ID())
	assert.Equal(t, "4/4", parts[0].TimeSignature().Ratio())

	notes := parts[0].Notes()
	require.Equal(t, 2, notes.Len())
	d := notes.Elements()[1]
	assert.Equal(t, "D4", d.(*note.Note).Pitch.String())
	assert.Equal(t, 2.0, d.Base().QuarterLength())
	off, err := notes.ElementOffset(d)
	require.NoError(t, err)
	assert.Equal(t, 3.0, off)
}

func TestKeySignatureRoundTrip(t *testing.T) {
	ks, err := key.New(-3)
	require.NoError(t, err)
	ks.Mode = "minor"

	part := stream.NewPart()
	require.NoError(t, part.Insert(0, ks))
	require.NoError(t, part.Insert(0, meter.MustTimeSignature("2/4")))
	require.NoError(t, part.Append(note.MustNew("C4", 2), note.MustNew("E-4", 2)))
	score := stream.NewScore()
	require.NoError(t, score.Insert(0, part))

	conv := New(DefaultOptions())
	data, err := conv.GenerateMIDI(score)
	require.NoError(t, err)

	back, err := conv.ParseMIDI(data)
	require.NoError(t, err)
	keys := back.Parts()[0].GetElementsByClass(base.KindKeySignature).Elements()
	require.Len(t, keys, 1)
	got := keys[0].(*key.KeySignature)
	assert.Equal(t, -3, got.Sharps)
	assert.Equal(t, "minor", got.Mode)
	assert.Equal(t, []string{"B", "E", "A"}, got.AlteredSteps())
}

func TestKeySignatureDecode(t *testing.T) {
	tests := []struct {
		name   string
		msg    []byte
		sharps int
		minor  bool
		ok     bool
	}{
		{"two sharps major", []byte{0xFF, 0x59, 0x02, 0x02, 0x00}, 2, false, true},
		{"four flats minor", []byte{0xFF, 0x59, 0x02, 0xFC, 0x01}, -4, true, true},
		{"tempo meta", []byte{0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20}, 0, false, false},
		{"short", []byte{0xFF, 0x59}, 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sharps, minor, ok := keySignature(tt.msg)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.sharps, sharps)
			assert.Equal(t, tt.minor, minor)
		})
	}
}

func TestGenerateMIDIWithoutParts(t *testing.T) {
	s := stream.New()
	require.NoError(t, s.Append(note.MustNew("A4", 1), note.MustNewRest(1), note.MustNew("B4", 1)))
	data, err := New(DefaultOptions()).GenerateMIDI(s)
	require.NoError(t, err)

	back, err := New(DefaultOptions()).ParseMIDI(data)
	require.NoError(t, err)
	part := back.Parts()[0]
	assert.Equal(t, 2, part.Notes().Len())
	assert.Equal(t, 1, part.GetElementsByClass(base.KindRest).Len())

	_, err = New(DefaultOptions()).GenerateMIDI(nil)
	assert.Error(t, err)
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "melody.mid")
	require.NoError(t, os.WriteFile(in, melodyMIDI(t), 0644))
	conv := New(DefaultOptions())

	res, err := conv.ConvertFile(in, filepath.Join(dir, "melody.txt"))
	require.NoError(t, err)
	assert.Equal(t, FormatText, res.Format)
	text, err := os.ReadFile(res.Filename)
	require.NoError(t, err)
	assert.Contains(t, string(text), "<Score, 1 elements>")
	assert.Contains(t, string(text), "<Chord G4 C5 2>")

	res, err = conv.ConvertFile(in, filepath.Join(dir, "copy.mid"))
	require.NoError(t, err)
	assert.Equal(t, FormatMIDI, DetectFormatFromContent(res.Data))

	_, err = conv.ConvertFile(in, filepath.Join(dir, "out.xyz"))
	assert.Error(t, err)
	_, err = conv.ConvertFile(filepath.Join(dir, "missing.mid"), filepath.Join(dir, "out.txt"))
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	score, err := New(DefaultOptions()).ParseMIDI(melodyMIDI(t))
	require.NoError(t, err)
	sum := Summarize(score)
	require.Len(t, sum.Parts, 1)
	p := sum.Parts[0]
	assert.Equal(t, "Melody", p.ID)
	assert.Equal(t, 3, p.Notes)
	assert.Equal(t, 1, p.Rests)
	assert.Equal(t, "treble", p.Clef)
	assert.Equal(t, 5.0, p.Length)
	assert.Equal(t, 4, p.Pitches.Count)
	assert.Equal(t, "C4", p.Pitches.Lowest.String())
	assert.Equal(t, "C5", p.Pitches.Highest.String())
	assert.Equal(t, []string{"3/4"}, sum.TimeSignatures)
	assert.Zero(t, sum.Overlaps)
}
