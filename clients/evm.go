package clients

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/vitwit/paymentkit/types"
	"github.com/vitwit/paymentkit/utils"
)

const erc20TransferABI = `[{
	"inputs":[
	  {"name":"to","type":"address"},
	  {"name":"value","type":"uint256"}
	],
	"name":"transfer",
	"outputs":[{"name":"","type":"bool"}],
	"stateMutability":"nonpayable",
	"type":"function"
}]`

// nativeTransferGas is the fixed cost of a plain value transfer.
const nativeTransferGas = 21000

// EVMBackend is the subset of *ethclient.Client the transferer needs.
type EVMBackend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
}

// EVMTransferer pays out coins from a hot wallet on an EVM chain. Assets map
// to ERC-20 contracts; the native asset, if set, is sent as plain value.
type EVMTransferer struct {
	backend     EVMBackend
	chainID     *big.Int
	signer      *ecdsa.PrivateKey
	nativeAsset types.AssetType
	tokens      map[types.AssetType]common.Address
	tokenABI    abi.ABI
	closer      func()
}

var _ Transferer = (*EVMTransferer)(nil)

// EVMOption configures an EVMTransferer.
type EVMOption func(*EVMTransferer)

// WithERC20 routes an asset type to an ERC-20 contract.
func WithERC20(asset types.AssetType, contract common.Address) EVMOption {
	return func(t *EVMTransferer) {
		t.tokens[asset] = contract
	}
}

// WithNativeAsset names the asset type paid as native chain value.
func WithNativeAsset(asset types.AssetType) EVMOption {
	return func(t *EVMTransferer) {
		t.nativeAsset = asset
	}
}

func NewEVMTransferer(backend EVMBackend, chainID *big.Int, signerPrivHex string, opts ...EVMOption) (*EVMTransferer, error) {
	parsedABI, err := abi.JSON(strings.NewReader(erc20TransferABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	var signer *ecdsa.PrivateKey
	if signerPrivHex != "" {
		signer, err = utils.PrivateKeyFromHex(signerPrivHex)
		if err != nil {
			return nil, fmt.Errorf("invalid signer key: %w", err)
		}
	}

	t := &EVMTransferer{
		backend:  backend,
		chainID:  chainID,
		signer:   signer,
		tokens:   make(map[types.AssetType]common.Address),
		tokenABI: parsedABI,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// DialEVMTransferer connects to an RPC endpoint and wraps it in a transferer.
func DialEVMTransferer(rpcURL string, chainID *big.Int, signerPrivHex string, opts ...EVMOption) (*EVMTransferer, error) {
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("ethereum rpc dial: %w", err)
	}
	t, err := NewEVMTransferer(eth, chainID, signerPrivHex, opts...)
	if err != nil {
		eth.Close()
		return nil, err
	}
	t.closer = eth.Close
	return t, nil
}

// Transfer signs and broadcasts one transaction. It returns once the node
// accepts the transaction; inclusion is not awaited.
func (t *EVMTransferer) Transfer(ctx context.Context, coin types.Coin, to types.Address) error {
	if t.signer == nil {
		return ErrNoSigner
	}

	recipient, err := utils.EVMAddress(to)
	if err != nil {
		return err
	}
	amount := new(big.Int).SetUint64(coin.Amount)

	var (
		target common.Address
		value  *big.Int
		data   []byte
	)
	switch contract, ok := t.tokens[coin.Asset]; {
	case ok:
		callData, err := t.tokenABI.Pack("transfer", recipient, amount)
		if err != nil {
			return fmt.Errorf("pack call data failed: %w", err)
		}
		target, value, data = contract, big.NewInt(0), callData
	case t.nativeAsset != "" && coin.Asset == t.nativeAsset:
		target, value = recipient, amount
	default:
		return fmt.Errorf("%s: %w", coin.Asset, ErrUnsupportedAsset)
	}

	from := crypto.PubkeyToAddress(t.signer.PublicKey)

	gasLimit := uint64(nativeTransferGas)
	if data != nil {
		estimated, err := t.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &target, Data: data})
		if err != nil {
			return fmt.Errorf("estimate gas failed: %w", err)
		}
		gasLimit = estimated
	}

	gasPrice, err := t.backend.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("suggest gas price failed: %w", err)
	}

	nonce, err := t.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return fmt.Errorf("pending nonce failed: %w", err)
	}

	tx := ethtypes.NewTransaction(nonce, target, value, gasLimit, gasPrice, data)
	signed, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(t.chainID), t.signer)
	if err != nil {
		return fmt.Errorf("sign tx failed: %w", err)
	}

	if err := t.backend.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("send tx failed: %w", err)
	}
	return nil
}

// Sender is the hot wallet address, or the zero address with no signer.
func (t *EVMTransferer) Sender() common.Address {
	if t.signer == nil {
		return common.Address{}
	}
	return crypto.PubkeyToAddress(t.signer.PublicKey)
}

func (t *EVMTransferer) Close() {
	if t.closer != nil {
		t.closer()
	}
}
