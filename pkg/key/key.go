// Package key provides key signature elements.
package key

import (
	"fmt"

	"github.com/james-see/scorestream/pkg/base"
	"github.com/james-see/scorestream/pkg/common"
)

var sharpOrder = []string{"F", "C", "G", "D", "A", "E", "B"}

// KeySignature counts sharps (positive) or flats (negative).
type KeySignature struct {
	base.Object
	Sharps int
	Mode   string
}

// New returns a key signature with the given number of sharps, -7..7.
func New(sharps int) (*KeySignature, error) {
	if sharps < -7 || sharps > 7 {
		return nil, common.Invariantf("key signature with %d sharps", sharps)
	}
	return &KeySignature{Sharps: sharps}, nil
}

// Kind reports KindKeySignature.
func (k *KeySignature) Kind() base.Kind { return base.KindKeySignature }

// DeepCopy returns an independent copy with an empty Sites ledger.
func (k *KeySignature) DeepCopy() base.Element {
	cp := *k
	cp.Object = *k.Object.Clone()
	return &cp
}

// AlteredSteps lists the steps the signature alters, in signature order.
func (k *KeySignature) AlteredSteps() []string {
	if k.Sharps >= 0 {
		return append([]string(nil), sharpOrder[:k.Sharps]...)
	}
	out := make([]string, 0, -k.Sharps)
	for i := 0; i < -k.Sharps; i++ {
		out = append(out, sharpOrder[len(sharpOrder)-1-i])
	}
	return out
}

// String names the signature by its sharps or flats.
func (k *KeySignature) String() string {
	switch {
	case k.Sharps > 0:
		return fmt.Sprintf("<KeySignature %d sharps>", k.Sharps)
	case k.Sharps < 0:
		return fmt.Sprintf("<KeySignature %d flats>", -k.Sharps)
	}
	return "<KeySignature no sharps or flats>"
}
