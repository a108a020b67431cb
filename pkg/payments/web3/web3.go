// Package web3 verifies orders signed by customers' wallets.
package web3

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAddress   = errors.New("invalid wallet address")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrSignerMismatch   = errors.New("message is not signed by the wallet")
	ErrStale            = errors.New("signed message is too old or in the future")
)

const (
	// signatures older than this are rejected.
	MaxAge = 10 * time.Minute

	// tolerated clock skew of wallets.
	MaxSkew = time.Minute
)

// OrderMessage is what a customer signs to place a web3 order.
type OrderMessage struct {
	OrderId  string
	Email    string
	Item     string
	TokenId  string
	Contract string
	PriceEth decimal.Decimal
	SignedAt time.Time
}

// String renders the message exactly as wallets display and sign it.
func (m OrderMessage) String() string {
	return fmt.Sprintf(
		"EtchNFT Order Verification\n"+
			"Order ID: %s\n"+
			"Customer: %s\n"+
			"Item: %s\n"+
			"Token ID: %s\n"+
			"Contract: %s\n"+
			"Price: %s ETH\n"+
			"Timestamp: %d\n"+
			"\n"+
			"By signing this message, you confirm your order for a physical etched version of this NFT.",
		m.OrderId, m.Email, m.Item, m.TokenId, m.Contract, m.PriceEth.String(), m.SignedAt.UnixMilli(),
	)
}

// IsAddress reports whether s is a 0x-prefixed hex address.
func IsAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

// Recover returns the address which signed the message with personal_sign (EIP-191).
func Recover(message string, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}
	// wallets send v as 27/28.
	if 27 <= sig[crypto.RecoveryIDOffset] {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Verify checks message was signed by wallet.
func Verify(message string, signature string, wallet string) error {
	if !IsAddress(wallet) {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, wallet)
	}
	signer, err := Recover(message, signature)
	if err != nil {
		return err
	}
	if signer != common.HexToAddress(wallet) {
		return fmt.Errorf("%w: signed by %s", ErrSignerMismatch, signer.Hex())
	}
	return nil
}

// VerifyOrder checks m is fresh at now and signed by wallet.
func VerifyOrder(m OrderMessage, signature string, wallet string, now time.Time) error {
	if now.Sub(m.SignedAt) > MaxAge || m.SignedAt.Sub(now) > MaxSkew {
		return fmt.Errorf("%w: signed at %s", ErrStale, m.SignedAt.Format(time.RFC3339))
	}
	return Verify(m.String(), signature, wallet)
}
