package settlement

import (
	"context"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
)

// SignTransactionFunc is the callback used to sign transactions
type SignTransactionFunc func(ctx context.Context, tx *solana.Transaction) error

// Wallet is the connected-wallet capability the submitter needs: an address
// and the ability to sign a transaction. Browser extensions, hardware
// wallets, and local keys all fit behind this.
type Wallet interface {
	Address() solana.PublicKey
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
}

// CallbackWallet implements Wallet with an external signing callback
type CallbackWallet struct {
	publicKey solana.PublicKey
	sign      SignTransactionFunc
}

// NewCallbackWallet creates a wallet from a public key and signing callback
func NewCallbackWallet(publicKey solana.PublicKey, sign SignTransactionFunc) (*CallbackWallet, error) {
	if publicKey.IsZero() {
		return nil, fmt.Errorf("public key is required")
	}
	if sign == nil {
		return nil, fmt.Errorf("sign callback is required")
	}
	return &CallbackWallet{publicKey: publicKey, sign: sign}, nil
}

// NewLocalWallet creates a wallet from a base58-encoded private key
func NewLocalWallet(privateKeyBase58 string) (*CallbackWallet, error) {
	privateKey, err := solana.PrivateKeyFromBase58(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	sign := func(ctx context.Context, tx *solana.Transaction) error {
		return signWithPrivateKey(privateKey, tx)
	}

	return NewCallbackWallet(privateKey.PublicKey(), sign)
}

// Address returns the wallet's public key
func (w *CallbackWallet) Address() solana.PublicKey {
	return w.publicKey
}

// SignTransaction signs tx with the wallet's callback
func (w *CallbackWallet) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	return w.sign(ctx, tx)
}

func signWithPrivateKey(privateKey solana.PrivateKey, tx *solana.Transaction) error {
	messageBytes, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	signature, err := privateKey.Sign(messageBytes)
	if err != nil {
		return fmt.Errorf("failed to sign: %w", err)
	}

	accountIndex, err := tx.GetAccountIndex(privateKey.PublicKey())
	if err != nil {
		return fmt.Errorf("failed to get account index: %w", err)
	}

	if len(tx.Signatures) <= int(accountIndex) {
		newSignatures := make([]solana.Signature, accountIndex+1)
		copy(newSignatures, tx.Signatures)
		tx.Signatures = newSignatures
	}
	tx.Signatures[accountIndex] = signature

	return nil
}
