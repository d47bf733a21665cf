package converter

import (
	"github.com/james-see/scorestream/pkg/base"
	"github.com/james-see/scorestream/pkg/meter"
	"github.com/james-see/scorestream/pkg/stream"
)

// PartSummary describes one part of a score.
type PartSummary struct {
	ID       string            `json:"id"`
	Measures int               `json:"measures"`
	Notes    int               `json:"notes"`
	Rests    int               `json:"rests"`
	Clef     string            `json:"clef"`
	Length   float64           `json:"quarterLength"`
	Pitches  stream.PitchStats `json:"pitches"`
}

// Summary describes a score for display.
type Summary struct {
	Parts          []PartSummary `json:"parts"`
	TimeSignatures []string      `json:"timeSignatures"`
	Length         float64       `json:"quarterLength"`
	Overlaps       int           `json:"overlaps"`
}

// Summarize counts the contents of a score. A stream without parts is described as
// a single part.
func Summarize(score *stream.Stream) Summary {
	parts := score.Parts()
	if len(parts) == 0 {
		parts = []*stream.Stream{score}
	}
	sum := Summary{Length: score.HighestTime()}
	seen := make(map[string]bool)
	for _, p := range parts {
		flat := p.Flat()
		ps := PartSummary{
			ID:       p.ID(),
			Measures: len(p.Measures()),
			Notes:    flat.Notes().Len(),
			Rests:    flat.GetElementsByClass(base.KindRest).Len(),
			Clef:     p.BestClef().Name,
			Length:   p.HighestTime(),
			Pitches:  p.PitchSummary(),
		}
		sum.Parts = append(sum.Parts, ps)
		sum.Overlaps += len(flat.Notes().GetOverlaps(false, false))
		for _, el := range flat.GetElementsByClass(base.KindTimeSignature).Elements() {
			r := el.(*meter.TimeSignature).Ratio()
			if !seen[r] {
				seen[r] = true
				sum.TimeSignatures = append(sum.TimeSignatures, r)
			}
		}
	}
	return sum
}
