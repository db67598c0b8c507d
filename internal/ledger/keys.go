// Rollcall - Attendance Tracking and Ledger Attestation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package ledger

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	keySalt     = "rollcall-ledger-v1"
	payerInfo   = "fee-payer"
	accountInfo = "attendance-account"

	// MinSeedLength is the shortest accepted master seed.
	MinSeedLength = 32
)

// KeyDeriver derives ed25519 keys from a master seed. The same
// (session, student) pair always yields the same account key, so a
// resubmitted record addresses the account it addressed the first time.
type KeyDeriver struct {
	seed []byte
}

// NewKeyDeriver validates the seed length.
func NewKeyDeriver(seed []byte) (*KeyDeriver, error) {
	if len(seed) < MinSeedLength {
		return nil, fmt.Errorf("ledger master seed must be at least %d bytes", MinSeedLength)
	}
	cp := make([]byte, len(seed))
	copy(cp, seed)
	return &KeyDeriver{seed: cp}, nil
}

// Payer returns the fee-payer key that signs every gateway request.
func (d *KeyDeriver) Payer() ed25519.PrivateKey {
	return d.derive([]byte(payerInfo))
}

// Account returns the attendance account key for one record.
func (d *KeyDeriver) Account(sessionID, studentID string) ed25519.PrivateKey {
	info := make([]byte, 0, len(accountInfo)+len(sessionID)+len(studentID)+2)
	info = append(info, accountInfo...)
	info = append(info, 0)
	info = append(info, sessionID...)
	info = append(info, 0)
	info = append(info, studentID...)
	return d.derive(info)
}

func (d *KeyDeriver) derive(info []byte) ed25519.PrivateKey {
	r := hkdf.New(sha256.New, d.seed, []byte(keySalt), info)
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(r, seed); err != nil {
		// hkdf only fails after 255*HashLen bytes.
		panic(fmt.Sprintf("hkdf: %v", err))
	}
	return ed25519.NewKeyFromSeed(seed)
}

// PublicHex renders a public key the way the gateway expects it.
func PublicHex(key ed25519.PrivateKey) string {
	pub, ok := key.Public().(ed25519.PublicKey)
	if !ok {
		return ""
	}
	return hex.EncodeToString(pub)
}

// ParseSeed accepts a hex-encoded seed, falling back to the raw bytes.
func ParseSeed(s string) ([]byte, error) {
	if s == "" {
		return nil, errors.New("ledger master seed is empty")
	}
	if b, err := hex.DecodeString(s); err == nil {
		return b, nil
	}
	return []byte(s), nil
}
