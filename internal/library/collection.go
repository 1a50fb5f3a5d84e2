package library

import (
	"fmt"
	"slices"
	"sync"
)

// Collection is an ordered set of entities of one kind in which no two
// members match.
//
// Members that survive without merging keep their insertion order; a fold
// leaves the merged entity at the lowest index it involved. Membership is
// indexed by identity key and canonical id, so Insert probes only the
// entities it can match instead of scanning the whole collection.
//
// A Collection is safe for concurrent use. Writes are serialized; reads may
// run in parallel with each other.
type Collection struct {
	mu       sync.RWMutex
	kind     Kind
	entities []Entity
	byKey    map[identityKey]int
	byID     map[int64]int
}

// NewCollection returns an empty collection of the given kind.
func NewCollection(kind Kind) *Collection {
	return &Collection{
		kind:  kind,
		byKey: make(map[identityKey]int),
		byID:  make(map[int64]int),
	}
}

// Kind returns the kind of entity the collection holds.
func (c *Collection) Kind() Kind {
	return c.kind
}

// Len returns the number of members.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entities)
}

// At returns the member at index i.
func (c *Collection) At(i int) Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entities[i]
}

// Entities returns a snapshot of the members in order.
func (c *Collection) Entities() []Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.entities)
}

// Clone returns an independent copy of c.
func (c *Collection) Clone() *Collection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := NewCollection(c.kind)
	out.entities = slices.Clone(c.entities)
	out.reindex()
	return out
}

// Insert adds e, merging it with every member it matches.
//
// With no match e is appended. With one match that slot is replaced by the
// merge. With several matches e bridges them: it merges into the lowest
// matching slot, then every other matching member is folded into that slot
// from the highest index down and removed.
func (c *Collection) Insert(e Entity) error {
	if e.kind != c.kind {
		return NewTypeMismatchError(c.kind, e.kind)
	}
	if !e.Addressable() {
		return NewInvalidRecordError("entity has no references", "")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insertLocked(e)
}

// InsertAll inserts each entity in order, stopping at the first error.
func (c *Collection) InsertAll(entities []Entity) error {
	for i, e := range entities {
		if err := c.Insert(e); err != nil {
			return fmt.Errorf("insert %d: %w", i, err)
		}
	}
	return nil
}

func (c *Collection) insertLocked(e Entity) error {
	matches := c.matchingLocked(e)

	switch len(matches) {
	case 0:
		c.entities = append(c.entities, e)
		c.indexSlot(len(c.entities) - 1)
		return nil

	case 1:
		i := matches[0]
		merged, err := Merge(c.entities[i], e)
		if err != nil {
			return err
		}
		c.unindexSlot(i)
		c.entities[i] = merged
		c.indexSlot(i)
		return nil
	}

	low := matches[0]
	merged, err := Merge(c.entities[low], e)
	if err != nil {
		return err
	}
	for _, j := range slices.Backward(matches[1:]) {
		// j matched e, which is now part of merged; the pair is connected
		// even when c.entities[j] shares nothing with the original slot.
		merged, err = mergeUnchecked(merged, c.entities[j])
		if err != nil {
			return err
		}
	}

	c.entities[low] = merged
	for _, j := range slices.Backward(matches[1:]) {
		c.entities = slices.Delete(c.entities, j, j+1)
	}
	c.reindex()
	return nil
}

// matchingLocked returns the sorted indices of members matching e.
func (c *Collection) matchingLocked(e Entity) []int {
	seen := make(map[int]struct{})
	if e.canonicalID != 0 {
		if i, ok := c.byID[e.canonicalID]; ok {
			seen[i] = struct{}{}
		}
	}
	for _, k := range e.keys() {
		if i, ok := c.byKey[k]; ok {
			seen[i] = struct{}{}
		}
	}

	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	slices.Sort(out)
	return out
}

func (c *Collection) indexSlot(i int) {
	e := c.entities[i]
	for _, k := range e.keys() {
		c.byKey[k] = i
	}
	if e.canonicalID != 0 {
		c.byID[e.canonicalID] = i
	}
}

func (c *Collection) unindexSlot(i int) {
	e := c.entities[i]
	for _, k := range e.keys() {
		if c.byKey[k] == i {
			delete(c.byKey, k)
		}
	}
	if e.canonicalID != 0 && c.byID[e.canonicalID] == i {
		delete(c.byID, e.canonicalID)
	}
}

func (c *Collection) reindex() {
	c.byKey = make(map[identityKey]int, len(c.entities))
	c.byID = make(map[int64]int, len(c.entities))
	for i := range c.entities {
		c.indexSlot(i)
	}
}

// Contains reports whether some member matches e.
func (c *Collection) Contains(e Entity) bool {
	if e.kind != c.kind {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.matchingLocked(e)) > 0
}

// Remove deletes every member matching e. It returns a NOT_FOUND error when
// nothing matches.
func (c *Collection) Remove(e Entity) error {
	if e.kind != c.kind {
		return NewTypeMismatchError(c.kind, e.kind)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.removeLocked(e) == 0 {
		return NewNotFoundError(fmt.Sprintf("%s not in collection", e))
	}
	return nil
}

// Discard is like Remove but ignores missing entities.
func (c *Collection) Discard(e Entity) {
	if e.kind != c.kind {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(e)
}

func (c *Collection) removeLocked(e Entity) int {
	matches := c.matchingLocked(e)
	for _, j := range slices.Backward(matches) {
		c.entities = slices.Delete(c.entities, j, j+1)
	}
	if len(matches) > 0 {
		c.reindex()
	}
	return len(matches)
}

// CheckClosure verifies by pairwise scan that no two members match and that
// every member is addressable. It ignores the index and is intended as a
// correctness oracle in tests and debugging.
func (c *Collection) CheckClosure() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i, a := range c.entities {
		if !a.Addressable() {
			return fmt.Errorf("member %d has no references", i)
		}
		for j := i + 1; j < len(c.entities); j++ {
			if Match(a, c.entities[j]) {
				return fmt.Errorf("members %d and %d match: %s, %s", i, j, a, c.entities[j])
			}
		}
	}
	return nil
}

// Intersect returns a collection holding, for every pair x in a and y in b
// that match, the merge of x and y. Results go through the cascading insert
// so the returned collection is closed.
func Intersect(a, b *Collection) (*Collection, error) {
	if a.kind != b.kind {
		return nil, NewTypeMismatchError(a.kind, b.kind)
	}

	left := a.Entities()
	out := NewCollection(a.kind)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, x := range left {
		for _, j := range b.matchingLocked(x) {
			merged, err := Merge(x, b.entities[j])
			if err != nil {
				return nil, err
			}
			if err := out.Insert(merged); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// AbsorbShared merges into c the references other holds for entities both
// collections share. Entities unique to other are not imported.
func (c *Collection) AbsorbShared(other *Collection) error {
	shared, err := Intersect(c, other)
	if err != nil {
		return err
	}
	return c.InsertAll(shared.Entities())
}
