package model

import (
	"time"
)

type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalApproved  WithdrawalStatus = "approved"
	WithdrawalRejected  WithdrawalStatus = "rejected"
	WithdrawalCompleted WithdrawalStatus = "completed"
)

func (s WithdrawalStatus) Terminal() bool {
	return s == WithdrawalRejected || s == WithdrawalCompleted
}

// Decision 审核/出款决定
type Decision string

const (
	DecisionApprove  Decision = "approve"
	DecisionReject   Decision = "reject"
	DecisionComplete Decision = "complete"
)

// DestinationType 提现目标类型
type DestinationType string

const (
	DestinationEthereum DestinationType = "ethereum"
	DestinationBitcoin  DestinationType = "bitcoin"
	DestinationBank     DestinationType = "bank"
)

// 提现申请表（withdrawal_requests）：申请受理即从可用余额冻结
type WithdrawalRequest struct {
	ID              string           `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	AccountID       uint64           `gorm:"column:account_id;not null;index" json:"account_id"`
	Amount          int64            `gorm:"column:amount;not null" json:"amount"`
	DestinationType DestinationType  `gorm:"column:destination_type;type:varchar(16);not null" json:"destination_type"`
	Destination     string           `gorm:"column:destination;type:varchar(128);not null" json:"destination"`
	Status          WithdrawalStatus `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	Reason          string           `gorm:"column:reason;type:varchar(256)" json:"reason,omitempty"`
	PayoutRef       string           `gorm:"column:payout_ref;type:varchar(128)" json:"payout_ref,omitempty"`
	ProcessedBy     *uint64          `gorm:"column:processed_by" json:"processed_by,omitempty"`
	RequestedAt     time.Time        `gorm:"column:request_time;autoCreateTime" json:"request_time"`
	UpdatedAt       time.Time        `gorm:"column:update_time;autoUpdateTime" json:"update_time"`
	ProcessedAt     *time.Time       `gorm:"column:process_time" json:"process_time,omitempty"`
}
