package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/picklr-io/adopt/internal/ir"
)

const ledgerVersion = 1

// Ledger is the persisted form of the local and azurerm backends.
type Ledger struct {
	Version   int                  `json:"version"`
	Serial    int                  `json:"serial"`
	Lineage   string               `json:"lineage"`
	Resources []ir.TrackedResource `json:"resources"`
}

// NewLedger returns an empty ledger with a fresh lineage.
func NewLedger() *Ledger {
	return &Ledger{
		Version: ledgerVersion,
		Lineage: uuid.NewString(),
	}
}

// Contains reports whether the address is present.
func (l *Ledger) Contains(address string) bool {
	for _, r := range l.Resources {
		if r.Address == address {
			return true
		}
	}
	return false
}

// Addresses returns tracked addresses in insertion order.
func (l *Ledger) Addresses() []string {
	out := make([]string, 0, len(l.Resources))
	for _, r := range l.Resources {
		out = append(out, r.Address)
	}
	return out
}

// Append adds a tracked resource and bumps the serial.
func (l *Ledger) Append(address, id string) error {
	if l.Contains(address) {
		return fmt.Errorf("%s: %w", address, ErrAlreadyTracked)
	}
	l.Resources = append(l.Resources, ir.TrackedResource{
		Address:    address,
		ID:         id,
		ImportedAt: time.Now().UTC(),
	})
	l.Serial++
	return nil
}

// EncodeLedger serializes a ledger, encrypting it when a key is configured.
func EncodeLedger(l *Ledger) ([]byte, error) {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode ledger: %w", err)
	}
	data = append(data, '\n')

	encrypted, err := EncryptLedger(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt ledger: %w", err)
	}
	return encrypted, nil
}

// DecodeLedger parses ledger content. Empty content yields a new ledger.
func DecodeLedger(content []byte) (*Ledger, error) {
	if len(content) == 0 {
		return NewLedger(), nil
	}

	plain, err := DecryptLedger(content)
	if err != nil {
		return nil, err
	}

	var l Ledger
	if err := json.Unmarshal(plain, &l); err != nil {
		return nil, fmt.Errorf("failed to parse ledger: %w", err)
	}
	if l.Version > ledgerVersion {
		return nil, fmt.Errorf("ledger version %d is newer than supported version %d", l.Version, ledgerVersion)
	}
	if l.Version == 0 {
		l.Version = ledgerVersion
	}
	return &l, nil
}
