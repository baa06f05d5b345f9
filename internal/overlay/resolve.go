package overlay

import "github.com/alexanderramin/planloom/internal/domain"

// Resolve folds delta layers over base rows. Layers are ordered from the
// most ancestral scenario to the most specific one. Base order is kept;
// added rows are appended in the order they were recorded.
//
// added inserts the row (or replaces it if an id collision exists),
// modified replaces the row it references, removed deletes it. A modified
// or removed delta whose target is already gone is ignored.
func Resolve[T domain.Entity[T]](base []T, layers ...[]domain.Delta[T]) []T {
	return fold(base, len(layers), layers)
}

// ResolveDiverged is Resolve for the side of a merge that branched off after
// the first shared layers. A modified delta in a later layer keeps its
// payload even when its row was removed in the shared layers or the base, so
// an edit made on the branch is still visible to the three-way diff. A
// removal in a later layer still hides it.
func ResolveDiverged[T domain.Entity[T]](base []T, shared int, layers ...[]domain.Delta[T]) []T {
	return fold(base, shared, layers)
}

func fold[T domain.Entity[T]](base []T, shared int, layers [][]domain.Delta[T]) []T {
	order := make([]string, 0, len(base))
	rows := make(map[string]T, len(base))
	for _, e := range base {
		k := e.EntityKey()
		if _, dup := rows[k]; !dup {
			order = append(order, k)
		}
		rows[k] = e
	}

	// Rows removed by a diverged layer stay removed for later layers.
	removedOwn := make(map[string]bool)
	for i, layer := range layers {
		own := i >= shared
		for _, d := range layer {
			key := d.Target()
			_, present := rows[key]
			switch d.ChangeType {
			case domain.ChangeAdded:
				if !present {
					order = append(order, key)
				}
				rows[key] = d.Payload
				delete(removedOwn, key)
			case domain.ChangeModified:
				switch {
				case present:
					rows[key] = d.Payload
				case own && !removedOwn[key]:
					order = append(order, key)
					rows[key] = d.Payload
				}
			case domain.ChangeRemoved:
				delete(rows, key)
				if own {
					removedOwn[key] = true
				}
			}
		}
	}

	out := make([]T, 0, len(rows))
	for _, k := range order {
		if e, ok := rows[k]; ok {
			out = append(out, e)
			// Guard against re-appending a key removed then re-added.
			delete(rows, k)
		}
	}
	return out
}

// Index maps entity keys to entities.
func Index[T domain.Entity[T]](items []T) map[string]T {
	m := make(map[string]T, len(items))
	for _, e := range items {
		m[e.EntityKey()] = e
	}
	return m
}
