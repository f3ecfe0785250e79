package solana

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	solana "github.com/gagliardetto/solana-go"
)

// ErrNoWallet is returned when neither a keypair file nor a base58 key is configured.
var ErrNoWallet = errors.New("no wallet configured: set ANCHOR_WALLET or SOLANA_PRIVATE_KEY_BASE58")

// LoadPrivateKey reads a solana-keygen JSON keypair from keypairPath, falling back to a base58 secret.
func LoadPrivateKey(keypairPath, b58 string) (solana.PrivateKey, error) {
	if keypairPath != "" {
		path, err := expandHome(keypairPath)
		if err != nil {
			return nil, err
		}
		key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
		if err != nil {
			return nil, fmt.Errorf("read keypair %s: %w", path, err)
		}
		return key, nil
	}
	if b58 == "" {
		return nil, ErrNoWallet
	}
	key, err := solana.PrivateKeyFromBase58(b58)
	if err != nil {
		return nil, fmt.Errorf("decode base58 key: %w", err)
	}
	return key, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
