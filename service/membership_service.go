package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"github.com/crown_ledger/logging"
	"github.com/crown_ledger/metrics"
	"github.com/crown_ledger/model"
	"github.com/crown_ledger/repository"
)

var (
	countryRe = regexp.MustCompile(`^[A-Z]{2}$`)
	addressRe = regexp.MustCompile(`^CRW-[A-Z]{2}-[0-9A-F]{8}-[0-9A-F]{4}$`)
)

// WalletAddress 钱包展示地址：CRW-<国家>-<8位HEX>-<4位HEX>，取账户 id 的 keccak256 摘要
func WalletAddress(country string, accountID uint64) string {
	digest := crypto.Keccak256([]byte("crw:" + strconv.FormatUint(accountID, 10)))
	h := strings.ToUpper(hex.EncodeToString(digest[:6]))
	return fmt.Sprintf("CRW-%s-%s-%s", strings.ToUpper(country), h[:8], h[8:12])
}

func ValidAddress(addr string) bool { return addressRe.MatchString(addr) }

// NormalizeAddress trims and upper-cases a user supplied wallet address and
// checks its format.
func NormalizeAddress(addr string) (string, error) {
	addr = strings.ToUpper(strings.TrimSpace(addr))
	if !ValidAddress(addr) {
		return "", fmt.Errorf("%w: malformed wallet address", model.ErrInvalidArgument)
	}
	return addr, nil
}

type MembershipService struct {
	store *repository.Store
	log   zerolog.Logger
}

func NewMembershipService(store *repository.Store, log zerolog.Logger) *MembershipService {
	return &MembershipService{store: store, log: log}
}

type OnboardInput struct {
	Grade    model.Grade
	UplineID *uint64
	Country  string
}

// Onboard creates an account and its wallet. Roots must be SUPER_ADMIN and
// every other account hangs under an active upline one grade above it.
func (s *MembershipService) Onboard(ctx context.Context, actor model.Actor, in OnboardInput) (*model.Account, *model.Wallet, error) {
	if !actor.IsOperator() {
		return nil, nil, fmt.Errorf("%w: onboarding requires an operator", model.ErrForbidden)
	}
	country := strings.ToUpper(strings.TrimSpace(in.Country))
	if !countryRe.MatchString(country) {
		return nil, nil, fmt.Errorf("%w: country %q", model.ErrInvalidArgument, in.Country)
	}
	if !in.Grade.Valid() {
		return nil, nil, fmt.Errorf("%w: grade %q", model.ErrInvalidArgument, in.Grade)
	}

	var acc *model.Account
	var wallet *model.Wallet
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if in.UplineID == nil {
			if in.Grade != model.GradeSuperAdmin {
				return fmt.Errorf("%w: only SUPER_ADMIN may have no upline", model.ErrInvalidArgument)
			}
		} else {
			if in.Grade == model.GradeSuperAdmin {
				return fmt.Errorf("%w: SUPER_ADMIN cannot have an upline", model.ErrInvalidArgument)
			}
			up, err := tx.Accounts.Get(ctx, *in.UplineID)
			if err != nil {
				return err
			}
			if !up.Active {
				return fmt.Errorf("%w: upline %d", model.ErrAccountInactive, up.ID)
			}
			want, _ := in.Grade.Parent()
			if up.Grade != want {
				return fmt.Errorf("%w: %s upline must be %s, got %s", model.ErrInvalidArgument, in.Grade, want, up.Grade)
			}
		}

		acc = &model.Account{Grade: in.Grade, UplineID: in.UplineID, Country: country, Active: true}
		if err := tx.Accounts.Create(ctx, acc); err != nil {
			return err
		}
		wallet = &model.Wallet{AccountID: acc.ID, Address: WalletAddress(country, acc.ID)}
		return tx.Wallets.Create(ctx, wallet)
	})
	if err != nil {
		return nil, nil, err
	}
	logging.For(ctx, s.log).Info().Uint64("account_id", acc.ID).Str("grade", string(acc.Grade)).Str("address", wallet.Address).Msg("account onboarded")
	return acc, wallet, nil
}

func (s *MembershipService) Get(ctx context.Context, id uint64) (*model.Account, error) {
	return s.store.Accounts.Get(ctx, id)
}

// Deactivate blocks new orders and withdrawals. The account stays in upline
// chains so commission keeps flowing through it.
func (s *MembershipService) Deactivate(ctx context.Context, actor model.Actor, id uint64) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: deactivation requires an admin", model.ErrForbidden)
	}
	if err := s.store.Accounts.SetActive(ctx, id, false); err != nil {
		return err
	}
	logging.For(ctx, s.log).Info().Uint64("account_id", id).Uint64("by", actor.AccountID).Msg("account deactivated")
	return nil
}

// DownlineCount is the number of accounts directly below id.
func (s *MembershipService) DownlineCount(ctx context.Context, id uint64) (int64, error) {
	if _, err := s.store.Accounts.Get(ctx, id); err != nil {
		return 0, err
	}
	return s.store.Accounts.CountDownline(ctx, id)
}

func (s *MembershipService) ResolveAddress(ctx context.Context, address string) (*model.Wallet, error) {
	address, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	return s.store.Wallets.GetByAddress(ctx, address)
}

func (s *MembershipService) UplineChain(ctx context.Context, accountID uint64, maxDepth int) (*Chain, error) {
	acc, err := s.store.Accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return WalkUpline(ctx, s.store.Accounts, acc, maxDepth, *logging.For(ctx, s.log))
}

type Ancestor struct {
	Account *model.Account
	Depth   int
}

// Chain is the upline of an account. Ancestors holds at most maxDepth
// entries, nearest first; Root is always the SUPER_ADMIN at the top, which
// is the account itself when it has no upline.
type Chain struct {
	Ancestors []Ancestor
	Root      *model.Account
	RootDepth int
}

// WalkUpline follows upline links from acc to its root, checking that each
// step climbs exactly one grade and that the top is a SUPER_ADMIN. Any
// break is reported as ErrHierarchyIntegrity and raised as an alert.
func WalkUpline(ctx context.Context, accounts *repository.AccountRepository, acc *model.Account, maxDepth int, log zerolog.Logger) (*Chain, error) {
	chain := &Chain{}
	visited := map[uint64]bool{acc.ID: true}
	cur := acc
	for depth := 1; ; depth++ {
		if cur.UplineID == nil {
			if cur.Grade != model.GradeSuperAdmin {
				return nil, integrityViolation(log, acc.ID, "top of chain %d is %s, not SUPER_ADMIN", cur.ID, cur.Grade)
			}
			chain.Root = cur
			chain.RootDepth = depth - 1
			return chain, nil
		}
		upID := *cur.UplineID
		if visited[upID] {
			return nil, integrityViolation(log, acc.ID, "cycle through account %d", upID)
		}
		visited[upID] = true
		up, err := accounts.Get(ctx, upID)
		if err != nil {
			if isNotFound(err) {
				return nil, integrityViolation(log, acc.ID, "upline %d of %d missing", upID, cur.ID)
			}
			return nil, err
		}
		if want, ok := cur.Grade.Parent(); !ok || up.Grade != want {
			return nil, integrityViolation(log, acc.ID, "%d (%s) sits under %d (%s)", cur.ID, cur.Grade, up.ID, up.Grade)
		}
		if depth <= maxDepth {
			chain.Ancestors = append(chain.Ancestors, Ancestor{Account: up, Depth: depth})
		}
		cur = up
	}
}

func integrityViolation(log zerolog.Logger, accountID uint64, format string, args ...any) error {
	detail := fmt.Sprintf(format, args...)
	metrics.IntegrityViolations.Inc()
	log.Error().Bool("alert", true).Uint64("account_id", accountID).Str("detail", detail).Msg("hierarchy integrity violation")
	return fmt.Errorf("%w: %s", model.ErrHierarchyIntegrity, detail)
}
