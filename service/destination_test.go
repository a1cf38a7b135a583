package service

import (
	"strings"
	"testing"
	"unicode"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crown_ledger/model"
)

// flipFirstLetter breaks an EIP-55 checksum by changing the case of one letter.
func flipFirstLetter(addr string) string {
	b := []rune(addr)
	for i := 2; i < len(b); i++ {
		if unicode.IsLetter(b[i]) {
			if unicode.IsUpper(b[i]) {
				b[i] = unicode.ToLower(b[i])
			} else {
				b[i] = unicode.ToUpper(b[i])
			}
			return string(b)
		}
	}
	return addr
}

func TestEthereumDestination(t *testing.T) {
	v := NewDestinationValidator(nil)
	checksummed := common.HexToAddress(ethDest).Hex()

	got, err := v.Validate(model.DestinationEthereum, ethDest)
	require.NoError(t, err)
	assert.Equal(t, checksummed, got)

	got, err = v.Validate(model.DestinationEthereum, checksummed)
	require.NoError(t, err)
	assert.Equal(t, checksummed, got)

	_, err = v.Validate(model.DestinationEthereum, flipFirstLetter(checksummed))
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	for _, bad := range []string{"", "0x12", "52908400098527886e0f7030069857d2e4169ee", "0xZZ908400098527886e0f7030069857d2e4169ee7"} {
		_, err := v.Validate(model.DestinationEthereum, bad)
		assert.ErrorIs(t, err, model.ErrInvalidArgument, bad)
	}
}

func TestBitcoinDestination(t *testing.T) {
	v := NewDestinationValidator(nil)
	got, err := v.Validate(model.DestinationBitcoin, " 1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa ")
	require.NoError(t, err)
	assert.Equal(t, "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", got)

	for _, bad := range []string{"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNb", "not-an-address", ""} {
		_, err := v.Validate(model.DestinationBitcoin, bad)
		assert.ErrorIs(t, err, model.ErrInvalidArgument, bad)
	}
}

func TestBankDestinationAndDenylist(t *testing.T) {
	v := NewDestinationValidator([]string{" GB29NWBK60161331926819 ", ethDest})

	got, err := v.Validate(model.DestinationBank, "nl91abna0417164300")
	require.NoError(t, err)
	assert.Equal(t, "NL91ABNA0417164300", got)

	_, err = v.Validate(model.DestinationBank, "ab")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	_, err = v.Validate(model.DestinationBank, strings.Repeat("A", 80))
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = v.Validate(model.DestinationBank, "gb29nwbk60161331926819")
	assert.ErrorIs(t, err, model.ErrForbidden)
	_, err = v.Validate(model.DestinationEthereum, common.HexToAddress(ethDest).Hex())
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = v.Validate(model.DestinationType("paypal"), "x")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}
