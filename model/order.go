package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus 担保交易订单状态
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPaid      OrderStatus = "PAID"
	OrderShipping  OrderStatus = "SHIPPING"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderDispute   OrderStatus = "DISPUTE"
	OrderRefunded  OrderStatus = "REFUNDED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderShipping, OrderDelivered,
		OrderConfirmed, OrderCancelled, OrderDispute, OrderRefunded:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderConfirmed, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}

// Funded reports whether the buyer's coin sits in escrow in this status.
func (s OrderStatus) Funded() bool {
	switch s {
	case OrderPaid, OrderShipping, OrderDelivered, OrderDispute:
		return true
	}
	return false
}

// 订单表（orders）：金额和手续费在创建时固定
type Order struct {
	ID           string          `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	BuyerID      uint64          `gorm:"column:buyer_id;not null;index" json:"buyer_id"`
	SellerID     uint64          `gorm:"column:seller_id;not null;index" json:"seller_id"`
	Amount       int64           `gorm:"column:amount;not null" json:"amount"`
	FeeRate      decimal.Decimal `gorm:"column:fee_rate;type:decimal(10,4);not null" json:"fee_rate"` // percent
	FeeAmount    int64           `gorm:"column:fee_amount;not null" json:"fee_amount"`
	SellerAmount int64           `gorm:"column:seller_amount;not null" json:"seller_amount"`
	RateVersion  int64           `gorm:"column:rate_version;not null" json:"rate_version"`
	Status       OrderStatus     `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	CreatedAt    time.Time       `gorm:"column:create_time;autoCreateTime" json:"create_time"`
	UpdatedAt    time.Time       `gorm:"column:update_time;autoUpdateTime" json:"update_time"`
	SettledAt    *time.Time      `gorm:"column:settle_time" json:"settle_time,omitempty"`
}
