package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Keypair is the single signing wallet.
type Keypair struct {
	priv ed25519.PrivateKey
	pub  string // base58
}

// KeypairFromBase58 loads a keypair from the conventional base58-encoded
// 64-byte secret (seed || public key).
func KeypairFromBase58(secret string) (*Keypair, error) {
	raw, err := base58.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("secret key must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}

	priv := ed25519.PrivateKey(raw)
	pub := priv.Public().(ed25519.PublicKey)
	if err := ValidatePublicKey(base58.Encode(pub)); err != nil {
		return nil, err
	}

	return &Keypair{priv: priv, pub: base58.Encode(pub)}, nil
}

// GenerateKeypair creates a random keypair. Test use.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Keypair{priv: priv, pub: base58.Encode(pub)}, nil
}

// PublicKey returns the base58 public key.
func (k *Keypair) PublicKey() string {
	return k.pub
}

// SecretBase58 returns the 64-byte secret in the conventional base58 form.
func (k *Keypair) SecretBase58() string {
	return base58.Encode(k.priv)
}

// Sign signs a message and returns the 64-byte signature.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}

// ValidatePublicKey checks that a base58 key decodes to a valid curve point.
func ValidatePublicKey(pubkey string) error {
	raw, err := base58.Decode(pubkey)
	if err != nil {
		return fmt.Errorf("decode public key %s: %w", pubkey, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("public key %s must be 32 bytes, got %d", pubkey, len(raw))
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return fmt.Errorf("public key %s not on curve: %w", pubkey, err)
	}
	return nil
}
