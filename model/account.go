package model

import (
	"fmt"
	"strings"
	"time"
)

// Grade 会员等级，按 rank 从高到低：SUPER_ADMIN > CROWN > DIAMOND > GOLD > SILVER > BRONZE
type Grade string

const (
	GradeSuperAdmin Grade = "SUPER_ADMIN"
	GradeCrown      Grade = "CROWN"
	GradeDiamond    Grade = "DIAMOND"
	GradeGold       Grade = "GOLD"
	GradeSilver     Grade = "SILVER"
	GradeBronze     Grade = "BRONZE"
)

// Grades lists every grade from the top of the hierarchy down.
var Grades = []Grade{GradeSuperAdmin, GradeCrown, GradeDiamond, GradeGold, GradeSilver, GradeBronze}

// Rank returns 6 for SUPER_ADMIN down to 1 for BRONZE, 0 for unknown grades.
func (g Grade) Rank() int {
	switch g {
	case GradeSuperAdmin:
		return 6
	case GradeCrown:
		return 5
	case GradeDiamond:
		return 4
	case GradeGold:
		return 3
	case GradeSilver:
		return 2
	case GradeBronze:
		return 1
	default:
		return 0
	}
}

func (g Grade) Valid() bool { return g.Rank() > 0 }

// Parent returns the grade an upline of g must hold.
func (g Grade) Parent() (Grade, bool) {
	switch g {
	case GradeCrown:
		return GradeSuperAdmin, true
	case GradeDiamond:
		return GradeCrown, true
	case GradeGold:
		return GradeDiamond, true
	case GradeSilver:
		return GradeGold, true
	case GradeBronze:
		return GradeSilver, true
	default:
		return "", false
	}
}

func ParseGrade(s string) (Grade, error) {
	g := Grade(strings.ToUpper(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", fmt.Errorf("%w: unknown grade %q", ErrInvalidArgument, s)
	}
	return g, nil
}

// 会员账户表（accounts），上级关系构成以 SUPER_ADMIN 为根的森林
type Account struct {
	ID        uint64    `gorm:"primaryKey;column:id" json:"id"`
	Grade     Grade     `gorm:"column:grade;type:varchar(16);not null;index" json:"grade"`
	UplineID  *uint64   `gorm:"column:upline_id;index" json:"upline_id,omitempty"`
	Country   string    `gorm:"column:country;type:varchar(2);not null" json:"country"`
	Active    bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt time.Time `gorm:"column:create_time;autoCreateTime" json:"create_time"`
	UpdatedAt time.Time `gorm:"column:update_time;autoUpdateTime" json:"update_time"`
}

func (a *Account) IsRoot() bool { return a.UplineID == nil }
