package domain

import "time"

// FileID identifies a registered file. IDs are allocated by the ledger in
// strictly increasing order and are never reused.
type FileID uint64

// Principal is the identity of a caller (a wallet address in hex form).
// The zero value is never a valid principal.
type Principal string

// ZeroPrincipal is the absent/invalid identity.
const ZeroPrincipal Principal = ""

// IsZero reports whether the principal is absent or the all-zero address.
func (p Principal) IsZero() bool {
	return p == ZeroPrincipal || p == "0x0000000000000000000000000000000000000000"
}

// Record is the ledger entry for a single registered file. All fields except
// Deleted and Grants are immutable after creation. Content bytes live
// off-ledger behind ContentAddress.
type Record struct {
	ID             FileID    `json:"id"`
	Name           string    `json:"name"`
	MimeType       string    `json:"mime_type"`
	SizeBytes      int64     `json:"size_bytes"`
	ContentAddress string    `json:"content_address"`
	Description    string    `json:"description"`
	Owner          Principal `json:"owner"`
	CreatedAt      time.Time `json:"created_at"`
	IsPublic       bool      `json:"is_public"`
	Deleted        bool      `json:"-"`

	// Grants holds principals allowed to read this record beyond the
	// owner/public rule. The owner is never a member.
	Grants map[Principal]struct{} `json:"-"`
}

// CanRead reports whether caller may read this record's metadata:
// the owner, any caller on a public record, or an explicit grantee.
func (r *Record) CanRead(caller Principal) bool {
	if caller == r.Owner || r.IsPublic {
		return true
	}
	_, ok := r.Grants[caller]
	return ok
}

// Clone returns a deep copy so callers cannot mutate ledger state through
// a returned record.
func (r *Record) Clone() *Record {
	cp := *r
	cp.Grants = make(map[Principal]struct{}, len(r.Grants))
	for p := range r.Grants {
		cp.Grants[p] = struct{}{}
	}
	return &cp
}

// GrantList returns the current grantees. Order is not significant.
func (r *Record) GrantList() []Principal {
	out := make([]Principal, 0, len(r.Grants))
	for p := range r.Grants {
		out = append(out, p)
	}
	return out
}
