// Package settlement builds, signs, and submits the on-chain stablecoin
// transfer that fulfills a Beep payment session, then polls for finality.
package settlement

import (
	"context"

	solana "github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/token"
	"go.uber.org/zap"

	beep "github.com/beep-labs/beep-go"
	"github.com/beep-labs/beep-go/checkout"
	"github.com/beep-labs/beep-go/money"
)

// Submitter settles payment sessions with a connected wallet
type Submitter struct {
	chain  ChainClient
	wallet Wallet
	mint   solana.PublicKey
	logger *zap.Logger
}

// SubmitterOption configures the submitter
type SubmitterOption func(*Submitter)

// WithSubmitterLogger sets a structured logger
func WithSubmitterLogger(l *zap.Logger) SubmitterOption {
	return func(s *Submitter) {
		s.logger = l
	}
}

// NewSubmitter creates a settlement submitter for the given cluster
func NewSubmitter(chain ChainClient, wallet Wallet, cluster Cluster, opts ...SubmitterOption) (*Submitter, error) {
	mint, err := MintFor(cluster)
	if err != nil {
		return nil, err
	}

	s := &Submitter{
		chain:  chain,
		wallet: wallet,
		mint:   mint,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Submit builds, signs, and submits the transfer that settles the payment
// session. The payer's token accounts are consolidated into one source
// before the transfer; the session's reference key travels as a memo so the
// backend can correlate the on-chain activity. Nothing is submitted when
// the balance is short.
func (s *Submitter) Submit(ctx context.Context, setup *checkout.PaymentSetup) (solana.Signature, error) {
	if s.wallet == nil {
		return solana.Signature{}, beep.NewError(beep.ErrCodeWallet, "no wallet connected", nil)
	}
	if setup == nil {
		return solana.Signature{}, beep.NewError(beep.ErrCodeValidation, "payment setup is required", nil)
	}

	amount, err := s.transferAmount(setup)
	if err != nil {
		return solana.Signature{}, err
	}

	owner := s.wallet.Address()
	accounts, err := s.chain.TokenAccounts(ctx, owner, s.mint)
	if err != nil {
		s.logger.Error("failed to list payer token accounts", zap.Stringer("owner", owner), zap.Error(err))
		return solana.Signature{}, beep.WrapError(beep.ErrCodeNetwork, "failed to list token accounts", err)
	}
	if len(accounts) == 0 {
		return solana.Signature{}, beep.NewError(beep.ErrCodeInsufficientFunds,
			"payer holds no settlement token", map[string]interface{}{"mint": s.mint.String()})
	}

	var balance uint64
	for _, account := range accounts {
		balance += account.Balance
	}
	if balance < amount {
		return solana.Signature{}, beep.NewError(beep.ErrCodeInsufficientFunds,
			"settlement token balance is too low", map[string]interface{}{
				"required":  amount,
				"available": balance,
			})
	}

	destination, err := solana.PublicKeyFromBase58(setup.DestinationAddress)
	if err != nil {
		return solana.Signature{}, beep.NewError(beep.ErrCodeValidation,
			"invalid destination address", map[string]interface{}{"address": setup.DestinationAddress})
	}

	destinationATA, _, err := solana.FindAssociatedTokenAddress(destination, s.mint)
	if err != nil {
		return solana.Signature{}, beep.WrapError(beep.ErrCodePayment, "failed to derive destination token account", err)
	}

	instructions, err := s.buildInstructions(owner, accounts, destinationATA, amount, setup.ReferenceKey)
	if err != nil {
		return solana.Signature{}, err
	}

	blockhash, err := s.chain.LatestBlockhash(ctx)
	if err != nil {
		s.logger.Error("failed to fetch blockhash", zap.Error(err))
		return solana.Signature{}, beep.WrapError(beep.ErrCodeNetwork, "failed to fetch blockhash", err)
	}

	builder := solana.NewTransactionBuilder().
		SetRecentBlockHash(blockhash).
		SetFeePayer(owner)
	for _, ix := range instructions {
		builder = builder.AddInstruction(ix)
	}

	tx, err := builder.Build()
	if err != nil {
		return solana.Signature{}, beep.WrapError(beep.ErrCodePayment, "failed to build transaction", err)
	}

	if err := s.wallet.SignTransaction(ctx, tx); err != nil {
		s.logger.Error("wallet signing failed", zap.Stringer("owner", owner), zap.Error(err))
		return solana.Signature{}, beep.WrapError(beep.ErrCodeWallet, "failed to sign transaction", err)
	}

	sig, err := s.chain.SendTransaction(ctx, tx)
	if err != nil {
		s.logger.Error("transaction submission failed",
			zap.String("reference_key", setup.ReferenceKey), zap.Error(err))
		return solana.Signature{}, beep.WrapError(beep.ErrCodePayment, "failed to submit transaction", err)
	}

	s.logger.Info("settlement submitted",
		zap.Stringer("signature", sig),
		zap.String("reference_key", setup.ReferenceKey),
		zap.Uint64("amount", amount))

	return sig, nil
}

// transferAmount derives the base-unit amount, flooring the display total so
// float noise can never overpay.
func (s *Submitter) transferAmount(setup *checkout.PaymentSetup) (uint64, error) {
	if setup.TotalAmount != "" {
		amount, err := money.ParseToBaseUnits(setup.TotalAmount, USDCDecimals)
		if err != nil {
			return 0, beep.NewError(beep.ErrCodeValidation,
				"invalid total amount", map[string]interface{}{"totalAmount": setup.TotalAmount})
		}
		return amount, nil
	}
	if setup.TotalBaseUnits == 0 {
		return 0, beep.NewError(beep.ErrCodeValidation, "payment setup has no amount", nil)
	}
	return setup.TotalBaseUnits, nil
}

// buildInstructions assembles the settlement transaction: compute budget,
// consolidation transfers into the source account, the memo tag, and the
// final transfer.
func (s *Submitter) buildInstructions(owner solana.PublicKey, accounts []TokenAccount, destinationATA solana.PublicKey, amount uint64, referenceKey string) ([]solana.Instruction, error) {
	// Prefer the associated token account as the source; fall back to the
	// largest holding when the payer only has auxiliary accounts.
	source := accounts[0]
	if ata, _, err := solana.FindAssociatedTokenAddress(owner, s.mint); err == nil {
		for _, account := range accounts {
			if account.Address.Equals(ata) {
				source = account
				break
			}
			if account.Balance > source.Balance {
				source = account
			}
		}
	}

	var consolidations []solana.Instruction
	for _, account := range accounts {
		if account.Address.Equals(source.Address) || account.Balance == 0 {
			continue
		}
		ix, err := token.NewTransferCheckedInstructionBuilder().
			SetAmount(account.Balance).
			SetDecimals(USDCDecimals).
			SetSourceAccount(account.Address).
			SetMintAccount(s.mint).
			SetDestinationAccount(source.Address).
			SetOwnerAccount(owner).
			ValidateAndBuild()
		if err != nil {
			return nil, beep.WrapError(beep.ErrCodePayment, "failed to build consolidation instruction", err)
		}
		consolidations = append(consolidations, ix)
	}

	estimatedUnits := computeUnitsPerTransfer * uint32(len(consolidations)+1)
	cuLimit, err := computebudget.NewSetComputeUnitLimitInstructionBuilder().
		SetUnits(estimatedUnits).
		ValidateAndBuild()
	if err != nil {
		return nil, beep.WrapError(beep.ErrCodePayment, "failed to build compute limit instruction", err)
	}

	cuPrice, err := computebudget.NewSetComputeUnitPriceInstructionBuilder().
		SetMicroLamports(defaultComputeUnitPrice).
		ValidateAndBuild()
	if err != nil {
		return nil, beep.WrapError(beep.ErrCodePayment, "failed to build compute price instruction", err)
	}

	instructions := []solana.Instruction{cuLimit, cuPrice}
	instructions = append(instructions, consolidations...)

	// Tag the transfer with the session reference key so the backend can
	// correlate on-chain activity with the off-chain session.
	if referenceKey != "" {
		memo := solana.NewInstruction(
			solana.MemoProgramID,
			solana.AccountMetaSlice{solana.Meta(owner).SIGNER()},
			[]byte(referenceKey),
		)
		instructions = append(instructions, memo)
	}

	transfer, err := token.NewTransferCheckedInstructionBuilder().
		SetAmount(amount).
		SetDecimals(USDCDecimals).
		SetSourceAccount(source.Address).
		SetMintAccount(s.mint).
		SetDestinationAccount(destinationATA).
		SetOwnerAccount(owner).
		ValidateAndBuild()
	if err != nil {
		return nil, beep.WrapError(beep.ErrCodePayment, "failed to build transfer instruction", err)
	}

	return append(instructions, transfer), nil
}
