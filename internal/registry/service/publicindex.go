package service

import "github.com/fileledger/go-file-registry/internal/registry/domain"

// publicIndex holds the ids of public, non-deleted records. Removal is a
// linear scan with swap-with-last, so index order is arbitrary and callers
// must not depend on it. Kept behind this type so the scan can be replaced
// with an id-to-position map if the index ever grows past that.
type publicIndex struct {
	entries []domain.FileID
}

// add appends id, preserving set semantics.
func (x *publicIndex) add(id domain.FileID) {
	for _, e := range x.entries {
		if e == id {
			return
		}
	}
	x.entries = append(x.entries, id)
}

// remove drops id by swapping the last entry into its slot. No-op when
// absent.
func (x *publicIndex) remove(id domain.FileID) {
	for i, e := range x.entries {
		if e == id {
			last := len(x.entries) - 1
			x.entries[i] = x.entries[last]
			x.entries = x.entries[:last]
			return
		}
	}
}

// ids returns a copy of the index.
func (x *publicIndex) ids() []domain.FileID {
	out := make([]domain.FileID, len(x.entries))
	copy(out, x.entries)
	return out
}
