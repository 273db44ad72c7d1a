package clients

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/vitwit/paymentkit/types"
)

// SolanaRPC is the subset of *rpc.Client the transferer needs.
type SolanaRPC interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransaction(ctx context.Context, transaction *solana.Transaction) (solana.Signature, error)
}

// SolanaTransferer pays out lamports with a system transfer signed by a hot
// wallet. Only the configured native asset is supported.
type SolanaTransferer struct {
	client      SolanaRPC
	payer       solana.PrivateKey
	nativeAsset types.AssetType
}

var _ Transferer = (*SolanaTransferer)(nil)

func NewSolanaTransferer(client SolanaRPC, payer solana.PrivateKey, nativeAsset types.AssetType) *SolanaTransferer {
	return &SolanaTransferer{
		client:      client,
		payer:       payer,
		nativeAsset: nativeAsset,
	}
}

// DialSolanaTransferer builds a transferer against an RPC endpoint.
func DialSolanaTransferer(rpcURL string, payerBase58 string, nativeAsset types.AssetType) (*SolanaTransferer, error) {
	payer, err := solana.PrivateKeyFromBase58(payerBase58)
	if err != nil {
		return nil, fmt.Errorf("invalid payer key: %w", err)
	}
	return NewSolanaTransferer(rpc.New(rpcURL), payer, nativeAsset), nil
}

func (s *SolanaTransferer) Transfer(ctx context.Context, coin types.Coin, to types.Address) error {
	if len(s.payer) == 0 {
		return ErrNoSigner
	}
	if coin.Asset != s.nativeAsset {
		return fmt.Errorf("%s: %w", coin.Asset, ErrUnsupportedAsset)
	}

	tx, err := s.buildTransfer(ctx, coin.Amount, solana.PublicKeyFromBytes(to[:]))
	if err != nil {
		return err
	}

	if _, err := s.client.SendTransaction(ctx, tx); err != nil {
		return fmt.Errorf("broadcast failed: %w", err)
	}
	return nil
}

func (s *SolanaTransferer) buildTransfer(ctx context.Context, lamports uint64, to solana.PublicKey) (*solana.Transaction, error) {
	recent, err := s.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("get latest blockhash: %w", err)
	}
	if recent == nil || recent.Value == nil {
		return nil, ErrBlockhashNotLoaded
	}

	from := s.payer.PublicKey()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, from, to).Build(),
		},
		recent.Value.Blockhash,
		solana.TransactionPayer(from),
	)
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(from) {
			return &s.payer
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return tx, nil
}

// Payer is the hot wallet public key.
func (s *SolanaTransferer) Payer() solana.PublicKey {
	return s.payer.PublicKey()
}
