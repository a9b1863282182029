// Package security hashes passwords with Argon2id and generates temporary
// credentials.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/catchyfabric/market-backend/pkg/config"
)

// ErrInvalidHash signals a malformed Argon2id hash string.
var ErrInvalidHash = errors.New("invalid argon2id hash")

var b64 = base64.RawStdEncoding

// ArgonParams are the cost settings embedded into each hash string.
type ArgonParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

func (p ArgonParams) key(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
}

// weakerThan compares the settings that raise the cost of guessing.
func (p ArgonParams) weakerThan(o ArgonParams) bool {
	return p.Memory < o.Memory || p.Time < o.Time || p.KeyLen < o.KeyLen
}

// ParamsFromConfig clamps configured values into safe ranges.
func ParamsFromConfig(cfg config.PasswordConfig) ArgonParams {
	return ArgonParams{
		Memory:      uint32(clamp(cfg.ArgonMemoryKB, 8, 512*1024)),
		Time:        uint32(clamp(cfg.ArgonTime, 1, 10)),
		Parallelism: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		SaltLen:     uint32(clamp(cfg.ArgonSaltLen, 8, 64)),
		KeyLen:      uint32(clamp(cfg.ArgonKeyLen, 16, 64)),
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// phc is a parsed "$argon2id$v=19$m=..,t=..,p=..$salt$hash" string.
type phc struct {
	params ArgonParams
	salt   []byte
	hash   []byte
}

func (h phc) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Time, h.params.Parallelism,
		b64.EncodeToString(h.salt), b64.EncodeToString(h.hash))
}

func parsePHC(encoded string) (phc, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return phc{}, ErrInvalidHash
	}
	if fields[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return phc{}, ErrInvalidHash
	}

	var h phc
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &h.params.Memory, &h.params.Time, &h.params.Parallelism); err != nil {
		return phc{}, ErrInvalidHash
	}
	var err error
	if h.salt, err = b64.DecodeString(fields[4]); err != nil {
		return phc{}, ErrInvalidHash
	}
	if h.hash, err = b64.DecodeString(fields[5]); err != nil || len(h.hash) == 0 {
		return phc{}, ErrInvalidHash
	}
	h.params.SaltLen = uint32(len(h.salt))
	h.params.KeyLen = uint32(len(h.hash))
	return h, nil
}

// HashPassword returns a PHC-formatted Argon2id hash with a fresh salt.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	h := phc{params: ParamsFromConfig(cfg)}
	h.salt = make([]byte, h.params.SaltLen)
	if _, err := rand.Read(h.salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	h.hash = h.params.key(password, h.salt)
	return h.String(), nil
}

// VerifyPassword compares in constant time. A malformed hash is an error, a
// wrong password is not.
func VerifyPassword(password, encoded string) (bool, error) {
	h, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.hash, h.params.key(password, h.salt)) == 1, nil
}

// NeedsRehash reports whether encoded is unreadable or cheaper than cfg.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	h, err := parsePHC(encoded)
	return err != nil || h.params.weakerThan(ParamsFromConfig(cfg))
}
