// Package base defines the element every score object builds on: an identity, group
// tags, a duration, a priority and the Sites ledger of its positions in containers.
package base

import (
	"fmt"
	"slices"

	"github.com/james-see/scorestream/pkg/common"
	"github.com/james-see/scorestream/pkg/duration"
)

// Element is anything a Stream can hold. Types that embed Object must override Kind
// and DeepCopy.
type Element interface {
	Base() *Object
	Kind() Kind
	DeepCopy() Element
}

// Object is the shared state of every element. The zero value is a valid element
// with zero duration and offset 0.
type Object struct {
	id       string
	groups   Groups
	duration *duration.Duration
	priority int
	offset   float64
	sites    Sites
}

// NewObject returns an Object with the given duration.
func NewObject(ql float64) (*Object, error) {
	d, err := duration.New(ql)
	if err != nil {
		return nil, err
	}
	return &Object{duration: d}, nil
}

// Base returns o itself, satisfying Element for embedding types.
func (o *Object) Base() *Object { return o }

// Kind reports KindMusic21Object.
func (o *Object) Kind() Kind { return KindMusic21Object }

// DeepCopy is Clone as an Element.
func (o *Object) DeepCopy() Element { return o.Clone() }

// Clone copies the object's own state. The copy has an empty Sites ledger and its
// own Duration and Groups.
func (o *Object) Clone() *Object {
	return &Object{
		id:       o.id,
		groups:   slices.Clone(o.groups),
		duration: o.duration.Clone(),
		priority: o.priority,
		offset:   o.offset,
	}
}

// ID returns the identifier, empty when unset.
func (o *Object) ID() string { return o.id }

// SetID sets the identifier.
func (o *Object) SetID(id string) { o.id = id }

// Groups returns a copy of the group tags.
func (o *Object) Groups() Groups { return slices.Clone(o.groups) }

// AddGroup tags the object with tag.
func (o *Object) AddGroup(tag string) { o.groups.Add(tag) }

// HasGroup reports whether the object carries tag.
func (o *Object) HasGroup(tag string) bool { return o.groups.Has(tag) }

// RemoveGroup drops tag.
func (o *Object) RemoveGroup(tag string) { o.groups.Remove(tag) }

// Duration returns the object's duration, creating a zero one on first use.
func (o *Object) Duration() *duration.Duration {
	if o.duration == nil {
		o.duration = &duration.Duration{}
	}
	return o.duration
}

// SetDuration stores a copy of d.
func (o *Object) SetDuration(d *duration.Duration) {
	o.duration = d.Clone()
}

// QuarterLength is shorthand for Duration().QuarterLength().
func (o *Object) QuarterLength() float64 {
	return o.duration.QuarterLength()
}

// SetQuarterLength replaces the duration's components.
func (o *Object) SetQuarterLength(ql float64) error {
	return o.Duration().SetQuarterLength(ql)
}

// OrderKeeper is a container that caches the order of its elements. Objects tell
// it when they move within it.
type OrderKeeper interface {
	InvalidateOrder()
}

func invalidate(c Container) {
	if k, ok := c.(OrderKeeper); ok {
		k.InvalidateOrder()
	}
}

// Priority breaks ordering ties between elements of the same class at one offset;
// lower sorts first.
func (o *Object) Priority() int { return o.priority }

// SetPriority sets the priority and reorders every container holding the object.
func (o *Object) SetPriority(p int) {
	if p == o.priority {
		return
	}
	o.priority = p
	for _, c := range o.sites.Containers() {
		invalidate(c)
	}
}

// Offset returns the standalone (default site) offset.
func (o *Object) Offset() float64 { return o.offset }

// SetOffset sets the standalone offset.
func (o *Object) SetOffset(offset float64) { o.offset = common.OpFrac(offset) }

// Sites exposes the container ledger.
func (o *Object) Sites() *Sites { return &o.sites }

// InsertInto records offset for container c, replacing any earlier entry for c.
// Moving within c marks c's order stale.
func (o *Object) InsertInto(c Container, offset float64) {
	offset = common.OpFrac(offset)
	if prev, err := o.sites.Offset(c); err == nil && prev != offset {
		invalidate(c)
	}
	o.sites.set(c.SiteAnchor(), offset)
}

// OffsetBySite returns the offset recorded for c. A nil container means the default
// site. The error is ErrNotFound when the object was never placed in c.
func (o *Object) OffsetBySite(c Container) (float64, error) {
	if c == nil {
		return o.offset, nil
	}
	return o.sites.Offset(c)
}

// RemoveSite forgets c. The object stays valid with its standalone offset.
func (o *Object) RemoveSite(c Container) {
	o.sites.Remove(c)
}

// String shows the kind and, when set, the id.
func (o *Object) String() string {
	if o.id != "" {
		return fmt.Sprintf("<%s id=%s>", o.Kind(), o.id)
	}
	return fmt.Sprintf("<%s>", o.Kind())
}
