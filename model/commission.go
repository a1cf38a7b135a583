package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RateMap 等级 -> 分佣比例（百分比，如 1.5 表示 1.5%）
type RateMap map[Grade]decimal.Decimal

func (m RateMap) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *RateMap) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("rate map: unsupported column type %T", src)
	}
}

// String renders the map in the same GRADE=rate form ParseRates accepts.
func (m RateMap) String() string {
	parts := make([]string, 0, len(m))
	for _, g := range Grades {
		if r, ok := m[g]; ok {
			parts = append(parts, fmt.Sprintf("%s=%s", g, r.String()))
		}
	}
	return strings.Join(parts, ",")
}

// ParseRates parses "SUPER_ADMIN=0.5,CROWN=1.5,...".
func ParseRates(s string) (RateMap, error) {
	m := RateMap{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("%w: malformed rate %q", ErrInvalidArgument, part)
		}
		g, err := ParseGrade(kv[0])
		if err != nil {
			return nil, err
		}
		r, err := decimal.NewFromString(strings.TrimSpace(kv[1]))
		if err != nil {
			return nil, fmt.Errorf("%w: rate for %s: %v", ErrInvalidArgument, g, err)
		}
		m[g] = r
	}
	return m, nil
}

// 分佣比例版本表（rate_tables），每个订单固定引用创建时的版本
type RateTable struct {
	Version   int64     `gorm:"primaryKey;column:version;autoIncrement:false" json:"version"`
	Rates     RateMap   `gorm:"column:rates;type:text;not null" json:"rates"`
	CreatedAt time.Time `gorm:"column:create_time;autoCreateTime" json:"create_time"`
}

// Total is the order fee rate: the sum of every grade's share.
func (t *RateTable) Total() decimal.Decimal {
	total := decimal.Zero
	for _, r := range t.Rates {
		total = total.Add(r)
	}
	return total
}

func (t *RateTable) Rate(g Grade) decimal.Decimal {
	if r, ok := t.Rates[g]; ok {
		return r
	}
	return decimal.Zero
}

func (t *RateTable) Validate() error {
	if len(t.Rates) == 0 {
		return fmt.Errorf("%w: empty rate table", ErrInvalidArgument)
	}
	for g, r := range t.Rates {
		if !g.Valid() {
			return fmt.Errorf("%w: unknown grade %q", ErrInvalidArgument, g)
		}
		if r.IsNegative() {
			return fmt.Errorf("%w: negative rate for %s", ErrInvalidArgument, g)
		}
	}
	total := t.Total()
	if !total.IsPositive() || total.GreaterThanOrEqual(hundred) {
		return fmt.Errorf("%w: total fee rate %s%% out of range", ErrInvalidArgument, total)
	}
	return nil
}

// FeeFor returns round(amount × total rate).
func (t *RateTable) FeeFor(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(t.Total()).Div(hundred).Round(0).IntPart()
}

// TierAmount returns floor(amount × rate). Flooring keeps the tier sum at or
// below the fee so the remainder is never negative.
func TierAmount(amount int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(rate).Div(hundred).Floor().IntPart()
}

// 分佣记录表（commission_records），每个 (订单, 收款人) 一条，创建后不可修改
type CommissionRecord struct {
	ID          uint64          `gorm:"primaryKey;column:id" json:"id"`
	OrderID     string          `gorm:"column:order_id;type:varchar(36);not null;uniqueIndex:idx_commission_order_recipient,priority:1" json:"order_id"`
	RecipientID uint64          `gorm:"column:recipient_id;not null;uniqueIndex:idx_commission_order_recipient,priority:2;index" json:"recipient_id"`
	Grade       Grade           `gorm:"column:grade;type:varchar(16);not null" json:"grade"`
	Rate        decimal.Decimal `gorm:"column:rate;type:decimal(10,4);not null" json:"rate"`
	Amount      int64           `gorm:"column:amount;not null" json:"amount"`
	Residual    int64           `gorm:"column:residual;not null;default:0" json:"residual"`
	Depth       int             `gorm:"column:depth;not null" json:"depth"`
	RateVersion int64           `gorm:"column:rate_version;not null" json:"rate_version"`
	CreatedAt   time.Time       `gorm:"column:create_time;autoCreateTime" json:"create_time"`
}
