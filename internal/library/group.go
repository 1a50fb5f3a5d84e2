package library

import "fmt"

// disjointSet is a union-find over entity positions.
type disjointSet struct {
	parent []int
	rank   []int
}

func newDisjointSet(n int) *disjointSet {
	ds := &disjointSet{parent: make([]int, n), rank: make([]int, n)}
	for i := range ds.parent {
		ds.parent[i] = i
	}
	return ds
}

func (ds *disjointSet) find(i int) int {
	for ds.parent[i] != i {
		ds.parent[i] = ds.parent[ds.parent[i]]
		i = ds.parent[i]
	}
	return i
}

func (ds *disjointSet) union(a, b int) {
	ra, rb := ds.find(a), ds.find(b)
	if ra == rb {
		return
	}
	switch {
	case ds.rank[ra] < ds.rank[rb]:
		ds.parent[ra] = rb
	case ds.rank[ra] > ds.rank[rb]:
		ds.parent[rb] = ra
	default:
		ds.parent[rb] = ra
		ds.rank[ra]++
	}
}

// Group partitions a batch into connected components under Match and merges
// each component into one entity.
//
// Components are returned in order of their first member, and members are
// merged in input order. Components are decided on every key seen in the
// batch, including keys a same-source reference merge later discards.
func Group(kind Kind, entities []Entity) ([]Entity, error) {
	ds := newDisjointSet(len(entities))
	byKey := make(map[identityKey]int)
	byID := make(map[int64]int)

	for i, e := range entities {
		if e.kind != kind {
			return nil, NewTypeMismatchError(kind, e.kind)
		}
		if !e.Addressable() {
			return nil, NewInvalidRecordError(fmt.Sprintf("entity %d has no references", i), "")
		}
		for _, k := range e.keys() {
			if j, ok := byKey[k]; ok {
				ds.union(i, j)
			} else {
				byKey[k] = i
			}
		}
		if e.canonicalID != 0 {
			if j, ok := byID[e.canonicalID]; ok {
				ds.union(i, j)
			} else {
				byID[e.canonicalID] = i
			}
		}
	}

	slot := make(map[int]int)
	var out []Entity
	for i, e := range entities {
		root := ds.find(i)
		pos, ok := slot[root]
		if !ok {
			slot[root] = len(out)
			out = append(out, e)
			continue
		}
		merged, err := mergeUnchecked(out[pos], e)
		if err != nil {
			return nil, err
		}
		out[pos] = merged
	}
	return out, nil
}
