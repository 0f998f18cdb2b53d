package domain

import (
	"fmt"
	"regexp"
	"time"
)

var (
	addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	txHashRe  = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
)

// Event represents a decoded on-chain event as emitted by the event source.
type Event struct {
	ContractAddress string         `json:"contract_address"`
	EventName       string         `json:"event_name"`
	BlockNumber     uint64         `json:"block_number"`
	TxHash          string         `json:"tx_hash"`
	LogIndex        uint64         `json:"log_index"`
	Args            map[string]any `json:"args"`
	Timestamp       time.Time      `json:"timestamp"`
}

// Validate checks the structural invariants of an event.
// An event that fails validation never matches any subscription.
func (e *Event) Validate() error {
	if e == nil {
		return fmt.Errorf("event is nil")
	}
	if !addressRe.MatchString(e.ContractAddress) {
		return fmt.Errorf("invalid contract address %q", e.ContractAddress)
	}
	if e.EventName == "" {
		return fmt.Errorf("event name is required")
	}
	if !txHashRe.MatchString(e.TxHash) {
		return fmt.Errorf("invalid transaction hash %q", e.TxHash)
	}
	return nil
}

// ValidAddress reports whether s is a 0x-prefixed 20-byte hex address.
func ValidAddress(s string) bool {
	return addressRe.MatchString(s)
}
