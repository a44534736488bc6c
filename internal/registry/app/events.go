package app

import (
	"context"

	"github.com/fileledger/go-file-registry/internal/registry/adapter/outbound/mirror"
	"github.com/fileledger/go-file-registry/internal/registry/domain"
	"github.com/fileledger/go-file-registry/internal/registry/port"
)

// eventPipeline is the ledger's event sink: the durable WAL append decides
// whether the mutation commits, and only committed events are forwarded to
// the best-effort mirror.
type eventPipeline struct {
	wal    port.EventLog
	mirror *mirror.Mirror
}

var _ port.EventLog = (*eventPipeline)(nil)

func newEventPipeline(wal port.EventLog, m *mirror.Mirror) *eventPipeline {
	return &eventPipeline{wal: wal, mirror: m}
}

func (p *eventPipeline) Append(ctx context.Context, ev *domain.Event) error {
	if err := p.wal.Append(ctx, ev); err != nil {
		return err
	}
	if p.mirror != nil {
		p.mirror.Apply(ev)
	}
	return nil
}
