// Package domain holds the reading entity, wire DTOs, and service contracts
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind is the closed set of meter types a reading can have
type Kind string

// Supported meter types
const (
	KindWater Kind = "WATER"
	KindGas   Kind = "GAS"
)

// ParseKind normalizes s and reports whether it names a supported meter type.
// Matching is case-insensitive; the stored form is always upper case
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToUpper(strings.TrimSpace(s))) {
	case KindWater:
		return KindWater, true
	case KindGas:
		return KindGas, true
	default:
		return "", false
	}
}

// Reading is one customer/type/month meter observation record
type Reading struct {
	ID           uuid.UUID
	CustomerCode string
	Kind         Kind
	TakenAt      time.Time
	ImageURL     string
	Value        int64
	Confirmed    bool
	CreatedAt    time.Time
}
