// Package signing computes and verifies keyed integrity codes over proposed
// tool directives before they are allowed to execute. The secret is generated
// once, stored with restrictive permissions, and held in protected memory
// while the process runs.
package signing

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/awnumar/memguard"
)

const keySize = 32

// Channel signs command text with a persistent HMAC-SHA256 key.
type Channel struct {
	key *memguard.LockedBuffer
}

// Open loads the signing key from keyPath, generating it on first use.
// The on-disk file is created with 0600 permissions and never transmitted.
func Open(keyPath string) (*Channel, error) {
	data, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		data, err = generateKey(keyPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key: %w", err)
	}
	if len(data) != keySize {
		return nil, fmt.Errorf("signing key at %s has %d bytes, want %d", keyPath, len(data), keySize)
	}

	// memguard wipes the input slice once the buffer owns it
	return &Channel{key: memguard.NewBufferFromBytes(data)}, nil
}

func generateKey(keyPath string) ([]byte, error) {
	if err := os.MkdirAll(filepath.Dir(keyPath), 0755); err != nil {
		return nil, err
	}

	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}

	if err := os.WriteFile(keyPath, key, 0600); err != nil {
		return nil, err
	}
	return key, nil
}

// Code returns the hex-encoded HMAC-SHA256 of the exact command text.
// Proposal and verification sides must each call Code independently so the
// comparison remains a real recomputation rather than a reused value.
func (c *Channel) Code(command string) (string, error) {
	if c.key == nil {
		return "", fmt.Errorf("signing channel is closed")
	}

	mac := hmac.New(sha256.New, c.key.Bytes())
	if _, err := mac.Write([]byte(command)); err != nil {
		return "", fmt.Errorf("failed to compute command code: %w", err)
	}
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify reports whether the proposed and recomputed codes match, in
// constant time.
func (c *Channel) Verify(proposed, recomputed string) bool {
	a, err := hex.DecodeString(proposed)
	if err != nil {
		return false
	}
	b, err := hex.DecodeString(recomputed)
	if err != nil {
		return false
	}
	return hmac.Equal(a, b)
}

// Close wipes the in-memory key. The channel is unusable afterwards.
func (c *Channel) Close() {
	if c.key != nil {
		c.key.Destroy()
		c.key = nil
	}
}
