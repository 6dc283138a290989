package models

import (
	"time"

	"github.com/satoshifaucet/faucetd/money"
)

// Claim is a user request to be paid the faucet reward.
type Claim struct {
	ID uint64 `gorm:"primaryKey;autoIncrement;<-:create"`

	// The LNURL exactly as the user submitted it, after normalization
	Destination string `gorm:"not null;index;<-:create"`
	// Host the LNURL decodes to
	ReceiverDomain string `gorm:"not null;default:'';index"`
	IPAddress      string `gorm:"not null;default:''"`

	// Reserved from the balance at intake, and refunded on failure
	RequestedSats money.Money `gorm:"not null;<-:create"`
	SentSats      money.Money `gorm:"not null;default:0"`

	Status              ClaimStatus `gorm:"type:claim_status;not null;default:'pending';index:idx_claims_status_created,priority:1"`
	SettlementReference *string     `gorm:"default:null"`
	FailureReason       *string     `gorm:"default:null"`

	CreatedAt time.Time `gorm:"<-:create;index:idx_claims_status_created,priority:2"`
	UpdatedAt time.Time
}

func (Claim) TableName() string {
	return "faucet_claims"
}
