package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32
	argonSaltLen        = 16

	MinLength = 8
	MaxLength = 30
)

var ErrInvalid = errors.New("password must be 8-30 alphanumeric characters")

// Validate enforces the account password rules.
func Validate(raw string) error {
	if len(raw) < MinLength || len(raw) > MaxLength {
		return ErrInvalid
	}
	for _, r := range raw {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !isAlnum {
			return ErrInvalid
		}
	}
	return nil
}

type params struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

// Hash returns an encoded Argon2id hash with a random salt.
func Hash(raw string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(raw), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks whether raw matches the encoded Argon2id hash.
func Verify(raw, encoded string) bool {
	p, err := decode(encoded)
	if err != nil {
		return false
	}
	check := argon2.IDKey([]byte(raw), p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(p.key, check) == 1
}

func decode(encoded string) (params, error) {
	var (
		p       params
		version int
		salt    string
		key     string
	)
	parts := splitDollar(encoded)
	if len(parts) != 5 || parts[0] != "argon2id" {
		return p, errors.New("unsupported hash format")
	}
	if _, err := fmt.Sscanf(parts[1], "v=%d", &version); err != nil || version != argon2.Version {
		return p, errors.New("unsupported argon2 version")
	}
	if _, err := fmt.Sscanf(parts[2], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return p, err
	}
	salt, key = parts[3], parts[4]

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(salt); err != nil {
		return p, err
	}
	if p.key, err = base64.RawStdEncoding.DecodeString(key); err != nil {
		return p, err
	}
	if len(p.key) == 0 {
		return p, errors.New("empty key")
	}
	return p, nil
}

func splitDollar(encoded string) []string {
	if len(encoded) == 0 || encoded[0] != '$' {
		return nil
	}
	var (
		out   []string
		start = 1
	)
	for i := 1; i < len(encoded); i++ {
		if encoded[i] == '$' {
			out = append(out, encoded[start:i])
			start = i + 1
		}
	}
	return append(out, encoded[start:])
}
