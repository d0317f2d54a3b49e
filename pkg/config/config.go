package config

import (
	"fmt"
	"strings"
)

// Cluster identifies a well-known Solana cluster.
type Cluster string

const (
	ClusterMainnetBeta Cluster = "mainnet-beta"
	ClusterDevnet      Cluster = "devnet"
	ClusterTestnet     Cluster = "testnet"
	ClusterLocalnet    Cluster = "localnet"
)

var (
	SupportedClusters = []Cluster{
		ClusterMainnetBeta,
		ClusterDevnet,
		ClusterTestnet,
		ClusterLocalnet,
	}
)

// ClusterAPIURL returns the public HTTP and WebSocket RPC endpoints for a
// well-known cluster. Callers running against a private node should configure
// explicit endpoints instead.
func ClusterAPIURL(cluster Cluster) (string, string, error) {
	switch cluster {
	case ClusterMainnetBeta:
		return "https://api.mainnet-beta.solana.com", "wss://api.mainnet-beta.solana.com", nil
	case ClusterDevnet:
		return "https://api.devnet.solana.com", "wss://api.devnet.solana.com", nil
	case ClusterTestnet:
		return "https://api.testnet.solana.com", "wss://api.testnet.solana.com", nil
	case ClusterLocalnet:
		return "http://127.0.0.1:8899", "ws://127.0.0.1:8900", nil
	default:
		return "", "", fmt.Errorf("unsupported cluster '%s'", cluster)
	}
}

func IsSupportedCluster(cluster Cluster) bool {
	for _, c := range SupportedClusters {
		if c == cluster {
			return true
		}
	}
	return false
}

// Commitment is the confirmation level requested from the RPC node.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

var (
	SupportedCommitments = []Commitment{
		CommitmentProcessed,
		CommitmentConfirmed,
		CommitmentFinalized,
	}
)

func IsValidCommitment(commitment Commitment) bool {
	for _, c := range SupportedCommitments {
		if c == commitment {
			return true
		}
	}
	return false
}

// KebabToSnakeCase converts a CLI flag name to its viper key form.
func KebabToSnakeCase(str string) string {
	return strings.ReplaceAll(str, "-", "_")
}

// NormalizeFlagName maps a flag name to the key viper stores it under.
func NormalizeFlagName(name string) string {
	return KebabToSnakeCase(name)
}
