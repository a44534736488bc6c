package domain

import (
	"math/big"
	"time"
)

// EventType discriminates ledger lifecycle events.
type EventType string

const (
	EventCreated    EventType = "created"
	EventDeleted    EventType = "deleted"
	EventGranted    EventType = "granted"
	EventRevoked    EventType = "revoked"
	EventFeeUpdated EventType = "fee_updated"
)

// Event is one entry of the ledger's ordered, durable event log. Seq is
// strictly increasing with no gaps; folding all events in sequence order
// reconstructs the full ledger state.
//
// Created events carry every immutable record field so replay needs no
// other source of truth.
type Event struct {
	Seq  uint64
	Type EventType
	At   time.Time

	FileID FileID
	Owner  Principal

	// Created only.
	Name           string
	MimeType       string
	SizeBytes      int64
	ContentAddress string
	Description    string
	IsPublic       bool
	Fee            *big.Int

	// Granted / Revoked only.
	Recipient Principal

	// FeeUpdated only.
	FeePerByte *big.Int
}
