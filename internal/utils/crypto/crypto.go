package crypto

import (
	"crypto/rsa"
	"errors"
	"fmt"

	base64_ "brandhub/internal/utils/base64"
	"brandhub/internal/utils/logger"

	"golang.org/x/crypto/ssh"
)

var log = logger.New("crypto")

var PrivateKey *rsa.PrivateKey
var PublicKey *rsa.PublicKey

// LoadPrivateKey decodes a base64-wrapped PEM private key. Only RSA keys are
// accepted since identity tokens are signed with RS256.
func LoadPrivateKey(encoded string) (*rsa.PrivateKey, error) {
	if encoded == "" {
		return nil, errors.New("private key not found")
	}

	pemText, err := base64_.DecodeFromBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}

	key, err := ssh.ParseRawPrivateKey([]byte(pemText))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is %T, want RSA", key)
	}
	return rsaKey, nil
}

// InitializeKeys loads the process signing key pair.
func InitializeKeys(privateKeyEnv string) error {
	log.Info("Initializing keys")

	key, err := LoadPrivateKey(privateKeyEnv)
	if err != nil {
		return err
	}

	PrivateKey = key
	PublicKey = &key.PublicKey
	return nil
}
