package settlement

import (
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// TxStatus is the client-side view of a submitted transaction
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
)

// TokenAccount is one token-holding account of the payer
type TokenAccount struct {
	Address solana.PublicKey
	Balance uint64
}

// ChainClient is the slice of the RPC surface the submitter and poller
// need. Tests substitute a fake.
type ChainClient interface {
	TokenAccounts(ctx context.Context, owner, mint solana.PublicKey) ([]TokenAccount, error)
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	SignatureStatus(ctx context.Context, sig solana.Signature) (TxStatus, error)
}

// rpcChain adapts a solana-go RPC client to ChainClient
type rpcChain struct {
	client *rpc.Client
}

// NewChainClient creates a ChainClient for the given cluster
func NewChainClient(cluster Cluster) (ChainClient, error) {
	config, err := configFor(cluster)
	if err != nil {
		return nil, err
	}
	return &rpcChain{client: rpc.New(config.RPCURL)}, nil
}

// NewChainClientFromRPC wraps an existing RPC client
func NewChainClientFromRPC(client *rpc.Client) ChainClient {
	return &rpcChain{client: client}
}

func (c *rpcChain) TokenAccounts(ctx context.Context, owner, mint solana.PublicKey) ([]TokenAccount, error) {
	result, err := c.client.GetTokenAccountsByOwner(
		ctx,
		owner,
		&rpc.GetTokenAccountsConfig{Mint: &mint},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingBase64},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list token accounts: %w", err)
	}

	accounts := make([]TokenAccount, 0, len(result.Value))
	for _, item := range result.Value {
		var data token.Account
		if err := bin.NewBinDecoder(item.Account.Data.GetBinary()).Decode(&data); err != nil {
			return nil, fmt.Errorf("failed to decode token account %s: %w", item.Pubkey, err)
		}
		accounts = append(accounts, TokenAccount{
			Address: item.Pubkey,
			Balance: data.Amount,
		})
	}
	return accounts, nil
}

func (c *rpcChain) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	return result.Value.Blockhash, nil
}

func (c *rpcChain) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig, nil
}

func (c *rpcChain) SignatureStatus(ctx context.Context, sig solana.Signature) (TxStatus, error) {
	result, err := c.client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return TxPending, fmt.Errorf("failed to get signature status: %w", err)
	}
	if len(result.Value) == 0 || result.Value[0] == nil {
		return TxPending, nil
	}

	status := result.Value[0]
	if status.Err != nil {
		return TxFailed, nil
	}
	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		return TxConfirmed, nil
	default:
		return TxPending, nil
	}
}
