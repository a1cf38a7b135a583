package model

// Role of the caller performing an operation.
type Role string

const (
	RoleUser   Role = "user"
	RoleAdmin  Role = "admin"
	RoleSystem Role = "system" // external schedulers and payout confirmations
)

// Actor is the request-scoped identity passed into every mutating call.
type Actor struct {
	AccountID uint64 `json:"account_id"`
	Role      Role   `json:"role"`
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// IsOperator reports admin or system callers.
func (a Actor) IsOperator() bool { return a.Role == RoleAdmin || a.Role == RoleSystem }

func SystemActor() Actor { return Actor{Role: RoleSystem} }
