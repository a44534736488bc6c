package service

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/anthanhphan/gosdk/logger"
	"github.com/fileledger/go-file-registry/internal/registry/domain"
	"github.com/fileledger/go-file-registry/internal/registry/port"
)

// LedgerService is the authoritative file registry: a single-writer state
// machine guarded by one lock. Every mutation validates, settles payment if
// any, appends its event to the durable log, and only then applies to
// in-memory state, so a failed operation leaves no partial effect.
type LedgerService struct {
	mu sync.RWMutex

	records map[domain.FileID]*domain.Record
	// ownedBy keeps every id a principal ever created, tombstones included.
	// The list is never compacted; ListOwned filters at read time.
	ownedBy map[domain.Principal][]domain.FileID
	public  publicIndex

	nextID     uint64
	nextSeq    uint64
	feePerByte *big.Int
	admin      domain.Principal

	log      port.EventLog
	payments port.Payments
	now      func() time.Time
}

// Ensure LedgerService implements port.RegistryService.
var _ port.RegistryService = (*LedgerService)(nil)

// NewLedgerService builds an empty ledger with the given administrator and
// initial fee rate.
func NewLedgerService(admin domain.Principal, feePerByte *big.Int, log port.EventLog, payments port.Payments) *LedgerService {
	if feePerByte == nil {
		feePerByte = big.NewInt(0)
	}
	return &LedgerService{
		records:    make(map[domain.FileID]*domain.Record),
		ownedBy:    make(map[domain.Principal][]domain.FileID),
		feePerByte: new(big.Int).Set(feePerByte),
		admin:      admin,
		log:        log,
		payments:   payments,
		now:        time.Now,
	}
}

// Register validates payment, settles the fee, durably records the creation
// event and stores the new record. The excess payment is refunded exactly;
// if the event cannot be recorded the retained fee is released back and the
// registration fails with no state change.
func (s *LedgerService) Register(ctx context.Context, caller domain.Principal, in port.RegisterInput) (domain.FileID, error) {
	if caller.IsZero() {
		return 0, fmt.Errorf("register: %w: missing caller", domain.ErrForbidden)
	}
	if in.SizeBytes < 0 {
		return 0, fmt.Errorf("register: negative size %d", in.SizeBytes)
	}
	paid := in.Paid
	if paid == nil {
		paid = big.NewInt(0)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fee := domain.StorageFee(s.feePerByte, in.SizeBytes)
	if paid.Cmp(fee) < 0 {
		return 0, fmt.Errorf("register: need %s wei, got %s: %w", fee, paid, domain.ErrInsufficientPayment)
	}

	if err := s.payments.Settle(ctx, caller, paid, fee); err != nil {
		return 0, fmt.Errorf("register: settle payment: %w", err)
	}

	ev := &domain.Event{
		Seq:            s.nextSeq,
		Type:           domain.EventCreated,
		At:             s.now(),
		FileID:         domain.FileID(s.nextID),
		Owner:          caller,
		Name:           in.Name,
		MimeType:       in.MimeType,
		SizeBytes:      in.SizeBytes,
		ContentAddress: in.ContentAddress,
		Description:    in.Description,
		IsPublic:       in.IsPublic,
		Fee:            fee,
	}
	if err := s.log.Append(ctx, ev); err != nil {
		if relErr := s.payments.Release(ctx, caller, fee); relErr != nil {
			logger.Errorw("Fee release after failed append did not complete",
				"owner", string(caller), "fee", fee.String(), "error", relErr.Error())
		}
		return 0, fmt.Errorf("register: append event: %w", err)
	}

	s.apply(ev)
	logger.Infow("File registered",
		"id", uint64(ev.FileID), "owner", string(caller), "size", in.SizeBytes, "fee", fee.String())
	return ev.FileID, nil
}

// Delete tombstones a record and drops it from the public index. One-way.
func (s *LedgerService) Delete(ctx context.Context, caller domain.Principal, id domain.FileID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("delete %d: %w", id, domain.ErrNotFound)
	}
	if rec.Owner != caller {
		return fmt.Errorf("delete %d: %w", id, domain.ErrForbidden)
	}
	if rec.Deleted {
		return fmt.Errorf("delete %d: %w", id, domain.ErrAlreadyDeleted)
	}

	ev := &domain.Event{
		Seq:    s.nextSeq,
		Type:   domain.EventDeleted,
		At:     s.now(),
		FileID: id,
		Owner:  caller,
	}
	if err := s.log.Append(ctx, ev); err != nil {
		return fmt.Errorf("delete %d: append event: %w", id, err)
	}

	s.apply(ev)
	logger.Infow("File deleted", "id", uint64(id), "owner", string(caller))
	return nil
}

// Grant authorizes recipient to read the record. Granting to the owner or
// to a zero principal is rejected; re-granting an existing grantee keeps
// set semantics.
func (s *LedgerService) Grant(ctx context.Context, caller domain.Principal, id domain.FileID, recipient domain.Principal) error {
	return s.mutateGrants(ctx, caller, id, recipient, domain.EventGranted)
}

// Revoke removes recipient's grant. Revoking an absent grant succeeds as a
// no-op.
func (s *LedgerService) Revoke(ctx context.Context, caller domain.Principal, id domain.FileID, recipient domain.Principal) error {
	return s.mutateGrants(ctx, caller, id, recipient, domain.EventRevoked)
}

func (s *LedgerService) mutateGrants(ctx context.Context, caller domain.Principal, id domain.FileID, recipient domain.Principal, typ domain.EventType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%s %d: %w", typ, id, domain.ErrNotFound)
	}
	if rec.Owner != caller {
		return fmt.Errorf("%s %d: %w", typ, id, domain.ErrForbidden)
	}
	if rec.Deleted {
		return fmt.Errorf("%s %d: %w", typ, id, domain.ErrAlreadyDeleted)
	}
	if recipient.IsZero() {
		return fmt.Errorf("%s %d: %w", typ, id, domain.ErrInvalidRecipient)
	}
	if typ == domain.EventGranted && recipient == rec.Owner {
		return fmt.Errorf("%s %d: recipient is owner: %w", typ, id, domain.ErrInvalidRecipient)
	}

	ev := &domain.Event{
		Seq:       s.nextSeq,
		Type:      typ,
		At:        s.now(),
		FileID:    id,
		Owner:     caller,
		Recipient: recipient,
	}
	if err := s.log.Append(ctx, ev); err != nil {
		return fmt.Errorf("%s %d: append event: %w", typ, id, err)
	}

	s.apply(ev)
	logger.Infow("Grant updated",
		"id", uint64(id), "op", string(typ), "recipient", string(recipient))
	return nil
}

// Read returns a copy of the record's metadata under the access rule
// owner OR public OR grantee. Tombstoned records surface as not-found for
// every caller, the owner included.
func (s *LedgerService) Read(ctx context.Context, caller domain.Principal, id domain.FileID) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok || rec.Deleted {
		return nil, fmt.Errorf("read %d: %w", id, domain.ErrNotFound)
	}
	if !rec.CanRead(caller) {
		return nil, fmt.Errorf("read %d: %w", id, domain.ErrForbidden)
	}
	return rec.Clone(), nil
}

// ListOwned returns caller's live file ids in creation order. The creation
// list keeps tombstones forever; they are filtered here.
func (s *LedgerService) ListOwned(ctx context.Context, caller domain.Principal) ([]domain.FileID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := s.ownedBy[caller]
	out := make([]domain.FileID, 0, len(owned))
	for _, id := range owned {
		if rec, ok := s.records[id]; ok && !rec.Deleted {
			out = append(out, id)
		}
	}
	return out, nil
}

// ListPublic returns the public index verbatim. Order carries no meaning.
func (s *LedgerService) ListPublic(ctx context.Context) ([]domain.FileID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.public.ids(), nil
}

// CalculateFee computes the fee for sizeBytes at the current rate.
func (s *LedgerService) CalculateFee(ctx context.Context, sizeBytes int64) (*big.Int, error) {
	if sizeBytes < 0 {
		return nil, fmt.Errorf("calculate fee: negative size %d", sizeBytes)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.StorageFee(s.feePerByte, sizeBytes), nil
}

// SetFeePerByte changes the rate for registrations after this call.
// Existing records are unaffected.
func (s *LedgerService) SetFeePerByte(ctx context.Context, caller domain.Principal, rate *big.Int) error {
	if rate == nil || rate.Sign() < 0 {
		return fmt.Errorf("set fee: invalid rate")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.admin {
		return fmt.Errorf("set fee: %w", domain.ErrUnauthorized)
	}

	ev := &domain.Event{
		Seq:        s.nextSeq,
		Type:       domain.EventFeeUpdated,
		At:         s.now(),
		Owner:      caller,
		FeePerByte: new(big.Int).Set(rate),
	}
	if err := s.log.Append(ctx, ev); err != nil {
		return fmt.Errorf("set fee: append event: %w", err)
	}

	s.apply(ev)
	logger.Infow("Fee rate updated", "fee_per_byte", rate.String(), "admin", string(caller))
	return nil
}

// apply folds one event into ledger state. It is the single mutation path,
// shared by live operations and replay, so a rebuilt ledger is identical to
// the one that produced the log. Events are assumed validated; apply never
// fails.
func (s *LedgerService) apply(ev *domain.Event) {
	switch ev.Type {
	case domain.EventCreated:
		rec := &domain.Record{
			ID:             ev.FileID,
			Name:           ev.Name,
			MimeType:       ev.MimeType,
			SizeBytes:      ev.SizeBytes,
			ContentAddress: ev.ContentAddress,
			Description:    ev.Description,
			Owner:          ev.Owner,
			CreatedAt:      ev.At,
			IsPublic:       ev.IsPublic,
			Grants:         make(map[domain.Principal]struct{}),
		}
		s.records[rec.ID] = rec
		s.ownedBy[rec.Owner] = append(s.ownedBy[rec.Owner], rec.ID)
		if rec.IsPublic {
			s.public.add(rec.ID)
		}
		s.nextID = uint64(ev.FileID) + 1

	case domain.EventDeleted:
		if rec, ok := s.records[ev.FileID]; ok {
			rec.Deleted = true
			if rec.IsPublic {
				s.public.remove(ev.FileID)
			}
		}

	case domain.EventGranted:
		if rec, ok := s.records[ev.FileID]; ok {
			rec.Grants[ev.Recipient] = struct{}{}
		}

	case domain.EventRevoked:
		if rec, ok := s.records[ev.FileID]; ok {
			delete(rec.Grants, ev.Recipient)
		}

	case domain.EventFeeUpdated:
		s.feePerByte = new(big.Int).Set(ev.FeePerByte)
	}

	s.nextSeq = ev.Seq + 1
}
