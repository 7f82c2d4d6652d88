package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// OWASP-recommended argon2id parameters.
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2SaltLen = 16
	argon2KeyLen  = 32

	argon2MaxMemory = 1 << 20
)

// Argon2idHasher implements PasswordHasher using argon2id, encoded in
// PHC string format: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
type Argon2idHasher struct {
	time    uint32
	memory  uint32
	threads uint8
	pool    *HashPool
}

// NewArgon2idHasher creates an argon2id hasher. A nil pool gets a private one.
func NewArgon2idHasher(pool *HashPool) *Argon2idHasher {
	if pool == nil {
		pool = NewHashPool(0)
	}
	return &Argon2idHasher{
		time:    argon2Time,
		memory:  argon2Memory,
		threads: argon2Threads,
		pool:    pool,
	}
}

// Hash produces an argon2id hash of the password
func (h *Argon2idHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("argon2id salt: %w", err)
	}

	res, err := h.pool.do(ctx, func() hashResult {
		key := argon2.IDKey([]byte(plaintext), salt, h.time, h.memory, h.threads, argon2KeyLen)
		return hashResult{value: fmt.Sprintf(
			"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
			argon2.Version,
			h.memory,
			h.time,
			h.threads,
			base64.RawStdEncoding.EncodeToString(salt),
			base64.RawStdEncoding.EncodeToString(key),
		)}
	})
	if err != nil {
		return "", err
	}

	return res.value, nil
}

// Verify checks plaintext against an encoded argon2id hash
func (h *Argon2idHasher) Verify(ctx context.Context, plaintext, hashed string) (bool, error) {
	if plaintext == "" {
		return false, nil
	}

	params, ok := parseArgon2id(hashed)
	if !ok {
		return false, nil
	}

	res, err := h.pool.do(ctx, func() hashResult {
		computed := argon2.IDKey([]byte(plaintext), params.salt, params.time, params.memory, params.threads, uint32(len(params.key)))
		return hashResult{ok: subtle.ConstantTimeCompare(computed, params.key) == 1}
	})
	if err != nil {
		return false, err
	}

	return res.ok, nil
}

type argon2Params struct {
	time    uint32
	memory  uint32
	threads uint8
	salt    []byte
	key     []byte
}

func parseArgon2id(encoded string) (argon2Params, bool) {
	var p argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, false
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return p, false
	}

	// threads must fit in uint8, and zero values would make argon2 panic
	if threads == 0 || threads > 255 || time == 0 || memory == 0 || memory > argon2MaxMemory {
		return p, false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, false
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > 1<<10 {
		return p, false
	}

	p.time = time
	p.memory = memory
	p.threads = uint8(threads)
	p.salt = salt
	p.key = key
	return p, true
}

var _ PasswordHasher = (*Argon2idHasher)(nil)
