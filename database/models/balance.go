package models

import (
	"time"

	"github.com/satoshifaucet/faucetd/money"
)

// BalanceRowID is the id of the only row of the balance table.
const BalanceRowID uint = 1

type Balance struct {
	ID         uint        `gorm:"primaryKey;autoIncrement:false"`
	AmountSats money.Money `gorm:"not null;default:0"`
	UpdatedAt  time.Time
}

func (Balance) TableName() string {
	return "faucet_balance"
}
