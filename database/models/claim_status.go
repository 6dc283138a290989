package models

import (
	"database/sql/driver"
	"fmt"
)

type ClaimStatus string

const (
	ClaimStatusPending    ClaimStatus = "pending"
	ClaimStatusProcessing ClaimStatus = "processing"
	ClaimStatusPaid       ClaimStatus = "paid"
	ClaimStatusFailed     ClaimStatus = "failed"
	ClaimStatusBlocked    ClaimStatus = "blocked"
)

var ClaimStatuses = []ClaimStatus{
	ClaimStatusPending,
	ClaimStatusProcessing,
	ClaimStatusPaid,
	ClaimStatusFailed,
	ClaimStatusBlocked,
}

func (s ClaimStatus) IsValid() bool {
	for _, status := range ClaimStatuses {
		if s == status {
			return true
		}
	}

	return false
}

// IsFinal reports whether the payout pipeline must leave the claim alone.
func (s ClaimStatus) IsFinal() bool {
	return s == ClaimStatusPaid || s == ClaimStatusFailed || s == ClaimStatusBlocked
}

func (s ClaimStatus) String() string {
	return string(s)
}

func (s *ClaimStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*s = ClaimStatus(v)
	case []byte:
		*s = ClaimStatus(v)
	default:
		return fmt.Errorf("failed to scan ClaimStatus: expected string, got %T", value)
	}

	return nil
}

func (s ClaimStatus) Value() (driver.Value, error) {
	return string(s), nil
}

func ClaimStatusEnumSQL() string {
	return `DO $$ BEGIN
	CREATE TYPE "public"."claim_status" AS ENUM (
		'pending',
		'processing',
		'paid',
		'failed',
		'blocked'
	);
EXCEPTION
	WHEN duplicate_object THEN null;
END $$;
`
}
