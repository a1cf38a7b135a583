package service

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/crown_ledger/model"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerSignature      = "X-Payout-Signature"
)

// Payout sends an approved withdrawal to the outside world and returns the
// external reference of the transfer.
type Payout interface {
	Send(ctx context.Context, req *model.WithdrawalRequest) (string, error)
}

// WebhookPayout 出款网关：POST 到外部出款服务
// - 请求带 Idempotency-Key（提现单号），重复投递由对端去重
// - 配置了签名私钥时，对请求体的 keccak256 做 secp256k1 签名
type WebhookPayout struct {
	url    string
	client *http.Client
	key    *ecdsa.PrivateKey
}

func NewWebhookPayout(url string, signingKeyHex string, timeout time.Duration) (*WebhookPayout, error) {
	if url == "" {
		return nil, errors.New("payout webhook url is empty")
	}
	var key *ecdsa.PrivateKey
	if signingKeyHex != "" {
		priv, err := crypto.HexToECDSA(strings.TrimPrefix(signingKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid payout signing key: %w", err)
		}
		key = priv
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &WebhookPayout{url: url, client: &http.Client{Timeout: timeout}, key: key}, nil
}

type payoutRequest struct {
	WithdrawalID    string                `json:"withdrawal_id"`
	AccountID       uint64                `json:"account_id"`
	Amount          int64                 `json:"amount"`
	DestinationType model.DestinationType `json:"destination_type"`
	Destination     string                `json:"destination"`
}

type payoutResponse struct {
	PayoutRef string `json:"payout_ref"`
}

func (p *WebhookPayout) Send(ctx context.Context, w *model.WithdrawalRequest) (string, error) {
	body, err := json.Marshal(payoutRequest{
		WithdrawalID:    w.ID,
		AccountID:       w.AccountID,
		Amount:          w.Amount,
		DestinationType: w.DestinationType,
		Destination:     w.Destination,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerIdempotencyKey, w.ID)
	if p.key != nil {
		sig, err := crypto.Sign(crypto.Keccak256(body), p.key)
		if err != nil {
			return "", fmt.Errorf("sign payout: %w", err)
		}
		req.Header.Set(headerSignature, "0x"+hex.EncodeToString(sig))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("payout webhook returned %d", resp.StatusCode)
	}
	var out payoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode payout response: %w", err)
	}
	if out.PayoutRef == "" {
		return "", errors.New("payout webhook returned no reference")
	}
	return out.PayoutRef, nil
}

// SignerAddress is the ethereum address receivers use to verify signatures.
func (p *WebhookPayout) SignerAddress() string {
	if p.key == nil {
		return ""
	}
	return crypto.PubkeyToAddress(p.key.PublicKey).Hex()
}
