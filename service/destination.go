package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"

	"github.com/crown_ledger/model"
)

var bankRefRe = regexp.MustCompile(`^[A-Z0-9][A-Z0-9 -]{3,63}$`)

// DestinationValidator 提现目标地址校验 + 黑名单
type DestinationValidator struct {
	denylist map[string]struct{}
	btcNet   *chaincfg.Params
}

func NewDestinationValidator(denylist []string) *DestinationValidator {
	v := &DestinationValidator{denylist: map[string]struct{}{}, btcNet: &chaincfg.MainNetParams}
	for _, d := range denylist {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			v.denylist[d] = struct{}{}
		}
	}
	return v
}

// Validate checks dest for its type and returns the canonical form stored on
// the request.
func (v *DestinationValidator) Validate(typ model.DestinationType, dest string) (string, error) {
	dest = strings.TrimSpace(dest)
	var canonical string
	switch typ {
	case model.DestinationEthereum:
		if !common.IsHexAddress(dest) {
			return "", fmt.Errorf("%w: not an ethereum address", model.ErrInvalidArgument)
		}
		addr := common.HexToAddress(dest)
		canonical = addr.Hex()
		// mixed case carries an EIP-55 checksum
		body := strings.TrimPrefix(strings.TrimPrefix(dest, "0x"), "0X")
		if body != strings.ToLower(body) && body != strings.ToUpper(body) && "0x"+body != canonical {
			return "", fmt.Errorf("%w: bad ethereum checksum", model.ErrInvalidArgument)
		}
	case model.DestinationBitcoin:
		addr, err := btcutil.DecodeAddress(dest, v.btcNet)
		if err != nil {
			return "", fmt.Errorf("%w: bitcoin address: %v", model.ErrInvalidArgument, err)
		}
		if !addr.IsForNet(v.btcNet) {
			return "", fmt.Errorf("%w: bitcoin address is not for %s", model.ErrInvalidArgument, v.btcNet.Name)
		}
		canonical = addr.EncodeAddress()
	case model.DestinationBank:
		ref := strings.ToUpper(dest)
		if !bankRefRe.MatchString(ref) {
			return "", fmt.Errorf("%w: malformed bank reference", model.ErrInvalidArgument)
		}
		canonical = ref
	default:
		return "", fmt.Errorf("%w: destination type %q", model.ErrInvalidArgument, typ)
	}
	if _, blocked := v.denylist[strings.ToLower(canonical)]; blocked {
		return "", fmt.Errorf("%w: destination is denylisted", model.ErrForbidden)
	}
	return canonical, nil
}
