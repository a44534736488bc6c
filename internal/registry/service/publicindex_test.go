package service

import (
	"testing"

	"github.com/fileledger/go-file-registry/internal/registry/domain"
)

func TestPublicIndex_SetSemantics(t *testing.T) {
	var idx publicIndex

	idx.add(1)
	idx.add(2)
	idx.add(1)
	if got := idx.ids(); len(got) != 2 {
		t.Fatalf("duplicate add leaked into index: %v", got)
	}

	idx.remove(3) // absent, no-op
	if got := idx.ids(); len(got) != 2 {
		t.Fatalf("removing absent id changed index: %v", got)
	}

	idx.add(3)
	idx.add(4)
	idx.remove(2)
	got := idx.ids()
	if len(got) != 3 {
		t.Fatalf("index = %v, want 3 entries", got)
	}
	seen := make(map[domain.FileID]bool)
	for _, id := range got {
		if id == 2 {
			t.Fatalf("removed id still present: %v", got)
		}
		if seen[id] {
			t.Fatalf("duplicate id %d: %v", id, got)
		}
		seen[id] = true
	}
}

func TestPublicIndex_ReturnsCopy(t *testing.T) {
	var idx publicIndex
	idx.add(1)
	idx.add(2)

	ids := idx.ids()
	ids[0] = 99
	if got := idx.ids(); got[0] == 99 {
		t.Fatalf("ids() exposed internal storage")
	}
}
