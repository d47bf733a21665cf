package base

import (
	"strings"

	"github.com/james-see/scorestream/pkg/common"
)

// Kind identifies what an element is. Kinds form a single-inheritance tree rooted at
// KindMusic21Object; IsA walks it.
type Kind int

const (
	KindMusic21Object Kind = iota
	KindGeneralNote
	KindNotRest
	KindNote
	KindChord
	KindRest
	KindClef
	KindKeySignature
	KindTimeSignature
	KindStream
	KindMeasure
	KindPart
	KindScore
	KindVoice
	numKinds
)

type kindInfo struct {
	name      string
	parent    Kind
	sortOrder int
}

var kinds = [numKinds]kindInfo{
	KindMusic21Object: {"Music21Object", KindMusic21Object, 20},
	KindGeneralNote:   {"GeneralNote", KindMusic21Object, 20},
	KindNotRest:       {"NotRest", KindGeneralNote, 20},
	KindNote:          {"Note", KindNotRest, 20},
	KindChord:         {"Chord", KindNotRest, 20},
	KindRest:          {"Rest", KindGeneralNote, 20},
	KindClef:          {"Clef", KindMusic21Object, 0},
	KindKeySignature:  {"KeySignature", KindMusic21Object, 2},
	KindTimeSignature: {"TimeSignature", KindMusic21Object, 4},
	KindStream:        {"Stream", KindMusic21Object, -20},
	KindMeasure:       {"Measure", KindStream, -20},
	KindPart:          {"Part", KindStream, -20},
	KindScore:         {"Score", KindStream, -20},
	KindVoice:         {"Voice", KindStream, -20},
}

func (k Kind) valid() bool {
	return k >= 0 && k < numKinds
}

// String returns the class name, e.g. "TimeSignature".
func (k Kind) String() string {
	if !k.valid() {
		return "Unknown"
	}
	return kinds[k].name
}

// ClassSortOrder ranks kinds that share an offset: clefs before key signatures
// before time signatures before notes.
func (k Kind) ClassSortOrder() int {
	if !k.valid() {
		return kinds[KindMusic21Object].sortOrder
	}
	return kinds[k].sortOrder
}

// IsA reports whether k is other or descends from it.
func (k Kind) IsA(other Kind) bool {
	if !k.valid() {
		return false
	}
	for {
		if k == other {
			return true
		}
		if k == KindMusic21Object {
			return false
		}
		k = kinds[k].parent
	}
}

// IsAny reports whether k IsA any of the given kinds.
func (k Kind) IsAny(others ...Kind) bool {
	for _, o := range others {
		if k.IsA(o) {
			return true
		}
	}
	return false
}

// ParseKind looks a kind up by name, case-insensitively.
func ParseKind(name string) (Kind, error) {
	for k := range numKinds {
		if strings.EqualFold(kinds[k].name, name) {
			return k, nil
		}
	}
	return 0, common.NotFoundf("unknown element class %q", name)
}
