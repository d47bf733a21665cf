package stream

import (
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/james-see/scorestream/pkg/base"
	"github.com/james-see/scorestream/pkg/common"
)

type placed struct {
	el     base.Element
	offset float64
	depth  int
}

// walk visits every nested element depth first in stream order, with offsets
// accumulated from s. It uses an explicit stack, so nesting depth does not grow the
// call stack.
func (s *Stream) walk(visit func(p placed) bool) {
	var stack []placed
	push := func(st *Stream, offset float64, depth int) {
		es := st.sortedEntries()
		for i := len(es) - 1; i >= 0; i-- {
			el := es[i].el
			stack = append(stack, placed{el: el, offset: common.OpFrac(offset + st.offsetOf(el)), depth: depth})
		}
	}
	push(s, 0, 0)
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visit(p) {
			return
		}
		if st, ok := p.el.(*Stream); ok {
			push(st, p.offset, p.depth+1)
		}
	}
}

// Flat returns a single-level stream of every non-stream element nested anywhere in
// s, each at its offset from the start of s. Flattening a flat stream gives the
// same elements at the same offsets. An element reached through several nested
// streams appears once, at the offset of the first path in stream order.
func (s *Stream) Flat() *Stream {
	d := s.derive()
	s.walk(func(p placed) bool {
		if _, ok := p.el.(*Stream); ok {
			return true
		}
		if d.Contains(p.el) {
			first := d.offsetOf(p.el)
			if first != p.offset {
				common.Logger().Warn("element reached at two offsets while flattening, keeping the first",
					"element", fmt.Sprint(p.el), "kept", first, "skipped", p.offset)
			}
			return true
		}
		d.add(p.el, p.offset)
		return true
	})
	return d
}

// Recurse iterates over every nested element, streams included, with offsets from
// the start of s.
func (s *Stream) Recurse() iter.Seq2[float64, base.Element] {
	return func(yield func(float64, base.Element) bool) {
		s.walk(func(p placed) bool {
			return yield(p.offset, p.el)
		})
	}
}

// Show writes an indented text dump of the stream, one element per line.
func (s *Stream) Show(w io.Writer) error {
	if _, err := fmt.Fprintln(w, s); err != nil {
		return err
	}
	var err error
	s.walk(func(p placed) bool {
		_, err = fmt.Fprintf(w, "%s{%v} %v\n", strings.Repeat("    ", p.depth+1), p.offset, p.el)
		return err == nil
	})
	return err
}

// Text returns the Show dump as a string.
func (s *Stream) Text() string {
	var b strings.Builder
	_ = s.Show(&b)
	return b.String()
}
