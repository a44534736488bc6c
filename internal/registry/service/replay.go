package service

import (
	"fmt"

	"github.com/anthanhphan/gosdk/logger"
	"github.com/fileledger/go-file-registry/internal/registry/domain"
)

// Restore folds a previously recorded event log into an empty ledger.
// Events must arrive in sequence order with no gaps; anything else means
// the log is damaged and the ledger refuses to start on it.
func (s *LedgerService) Restore(events []*domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nextSeq != 0 || len(s.records) != 0 {
		return fmt.Errorf("restore: ledger is not empty")
	}

	for i, ev := range events {
		if ev.Seq != uint64(i) {
			return fmt.Errorf("restore: event %d has sequence %d", i, ev.Seq)
		}
		s.apply(ev)
	}

	if len(events) > 0 {
		logger.Infow("Ledger state restored",
			"events", len(events), "records", len(s.records), "next_id", s.nextID)
	}
	return nil
}
