// Package models contains domain types for the qubit mask service.
package models

import (
	"time"

	"github.com/qubitmask/backend/internal/qubit"
)

// DesignRecord is a stored design: a named parameter set plus bookkeeping.
// The geometry itself is never persisted; it is redrawn from the parameters
// on demand.
type DesignRecord struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Params    qubit.Params `json:"params"`
	CreatedAt time.Time    `json:"createdAt"`
}
