// Package security hashes and verifies account passwords with Argon2id.
// Hashes are stored in the PHC string format, so the parameters travel
// with the hash and can be tightened without invalidating old rows.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/angelmondragon/showcart-backend/pkg/config"
)

var (
	ErrMalformedHash = errors.New("malformed argon2id hash")
	ErrHashVersion   = errors.New("unsupported argon2 version")
)

type hashParams struct {
	memoryKB    uint32
	passes      uint32
	parallelism uint8
	saltLen     uint32
	keyLen      uint32
}

// Floors keep a misconfigured deploy from issuing throwaway hashes;
// ceilings keep one from eating the dyno's memory.
func resolveParams(cfg config.PasswordConfig) hashParams {
	return hashParams{
		memoryKB:    uint32(bound(cfg.ArgonMemoryKB, 8, 512*1024)),
		passes:      uint32(bound(cfg.ArgonTime, 1, 10)),
		parallelism: uint8(bound(cfg.ArgonParallelism, 1, 255)),
		saltLen:     uint32(bound(cfg.ArgonSaltLen, 8, 64)),
		keyLen:      uint32(bound(cfg.ArgonKeyLen, 16, 64)),
	}
}

func bound(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// HashPassword derives an Argon2id hash of password and encodes it as
// $argon2id$v=19$m=...,t=...,p=...$salt$key with raw base64 segments.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}

	p := resolveParams(cfg)
	salt := make([]byte, p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, p.passes, p.memoryKB, p.parallelism, p.keyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memoryKB, p.passes, p.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword recomputes the hash with the parameters embedded in
// encoded and compares in constant time. A mismatch is (false, nil);
// errors are reserved for hashes this package cannot interpret.
func VerifyPassword(password, encoded string) (bool, error) {
	p, salt, key, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, p.passes, p.memoryKB, p.parallelism, p.keyLen)
	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

func decodeHash(encoded string) (hashParams, []byte, []byte, error) {
	var p hashParams

	segments := strings.Split(encoded, "$")
	if len(segments) != 6 || segments[0] != "" || segments[1] != "argon2id" {
		return p, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(segments[2], "v=%d", &version); err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	if version != argon2.Version {
		return p, nil, nil, ErrHashVersion
	}

	if _, err := fmt.Sscanf(segments[3], "m=%d,t=%d,p=%d", &p.memoryKB, &p.passes, &p.parallelism); err != nil {
		return p, nil, nil, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.Strict().DecodeString(segments[4])
	if err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	key, err := base64.RawStdEncoding.Strict().DecodeString(segments[5])
	if err != nil {
		return p, nil, nil, ErrMalformedHash
	}

	p.saltLen = uint32(len(salt))
	p.keyLen = uint32(len(key))
	return p, salt, key, nil
}
