package settlement

import (
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Cluster identifies a Solana cluster
type Cluster string

const (
	ClusterMainnet Cluster = "mainnet"
	ClusterDevnet  Cluster = "devnet"
)

// USDCDecimals is the decimal precision of the settlement token
const USDCDecimals = 6

// defaultComputeUnitPrice is the priority fee in micro-lamports per compute unit
const defaultComputeUnitPrice uint64 = 1000

// computeUnitsPerTransfer is the budget for one TransferChecked instruction
const computeUnitsPerTransfer uint32 = 6500

// clusterConfig holds per-cluster chain constants. These are chain
// properties, not user configuration.
type clusterConfig struct {
	RPCURL string
	Mint   solana.PublicKey
}

var clusterConfigs = map[Cluster]clusterConfig{
	ClusterMainnet: {
		RPCURL: rpc.MainNetBeta_RPC,
		Mint:   solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"),
	},
	ClusterDevnet: {
		RPCURL: rpc.DevNet_RPC,
		Mint:   solana.MustPublicKeyFromBase58("4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"),
	},
}

// configFor returns the chain constants for a cluster
func configFor(cluster Cluster) (clusterConfig, error) {
	config, ok := clusterConfigs[cluster]
	if !ok {
		return clusterConfig{}, fmt.Errorf("unsupported cluster: %s", cluster)
	}
	return config, nil
}

// MintFor returns the settlement token mint for a cluster
func MintFor(cluster Cluster) (solana.PublicKey, error) {
	config, err := configFor(cluster)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return config.Mint, nil
}
