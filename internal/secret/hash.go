package secret

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// HashParams controls the argon2id cost parameters. Lower values are only
// appropriate in tests.
type HashParams struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	KeyLen    uint32
	SaltLen   uint32
}

// DefaultHashParams matches the teacher's scrypt default posture: secure by
// default, overridable downward only by tests.
func DefaultHashParams() HashParams {
	return HashParams{Time: 3, MemoryKiB: 64 * 1024, Threads: 4, KeyLen: 32, SaltLen: 16}
}

// PasswordHash is an argon2id digest of a password, stored as salt||hash so
// Verify can be reproduced without retaining the password itself. AsBytes
// exposes the raw digest for reuse as AEAD key material for the statefile.
type PasswordHash struct {
	params HashParams
	salt   []byte
	digest []byte
}

// NewPasswordHash derives a PasswordHash from pw using params, generating a
// fresh random salt.
func NewPasswordHash(pw *Password, params HashParams) (*PasswordHash, error) {
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	digest := argon2.IDKey(pw.Bytes(), salt, params.Time, params.MemoryKiB, params.Threads, params.KeyLen)
	return &PasswordHash{params: params, salt: salt, digest: digest}, nil
}

// NewDefaultPasswordHash derives a PasswordHash using DefaultHashParams,
// mirroring the original's PasswordHash::from_default.
func NewDefaultPasswordHash(pw *Password) (*PasswordHash, error) {
	return NewPasswordHash(pw, DefaultHashParams())
}

// Verify reports whether pw hashes to the same digest under h's params and
// salt, using a constant-time comparison.
func (h *PasswordHash) Verify(pw *Password) bool {
	candidate := argon2.IDKey(pw.Bytes(), h.salt, h.params.Time, h.params.MemoryKiB, h.params.Threads, h.params.KeyLen)
	return subtle.ConstantTimeCompare(candidate, h.digest) == 1
}

// AsBytes returns the raw digest bytes, suitable for use as AEAD passphrase
// material (hex-encoded by the caller, since age's password recipients take
// a string).
func (h *PasswordHash) AsBytes() []byte {
	out := make([]byte, len(h.digest))
	copy(out, h.digest)
	return out
}

// AsPassphrase hex-encodes the digest for use as an age scrypt password.
func (h *PasswordHash) AsPassphrase() string {
	return hex.EncodeToString(h.digest)
}

// Marshal serializes the hash (params, salt, digest) for storage alongside
// signer state, so a restarted daemon can re-verify a password without
// re-deriving it from scratch.
func (h *PasswordHash) Marshal() []byte {
	out := make([]byte, 0, 4+4+1+4+4+len(h.salt)+len(h.digest))
	out = appendU32(out, h.params.Time)
	out = appendU32(out, h.params.MemoryKiB)
	out = append(out, h.params.Threads)
	out = appendU32(out, uint32(len(h.salt)))
	out = append(out, h.salt...)
	out = appendU32(out, uint32(len(h.digest)))
	out = append(out, h.digest...)
	return out
}

// UnmarshalPasswordHash parses the output of Marshal.
func UnmarshalPasswordHash(data []byte) (*PasswordHash, error) {
	r := data
	time, r, err := readU32(r)
	if err != nil {
		return nil, err
	}
	mem, r, err := readU32(r)
	if err != nil {
		return nil, err
	}
	if len(r) < 1 {
		return nil, fmt.Errorf("password hash: truncated threads field")
	}
	threads := r[0]
	r = r[1:]
	saltLen, r, err := readU32(r)
	if err != nil {
		return nil, err
	}
	if uint32(len(r)) < saltLen {
		return nil, fmt.Errorf("password hash: truncated salt")
	}
	salt := r[:saltLen]
	r = r[saltLen:]
	digestLen, r, err := readU32(r)
	if err != nil {
		return nil, err
	}
	if uint32(len(r)) < digestLen {
		return nil, fmt.Errorf("password hash: truncated digest")
	}
	digest := r[:digestLen]

	return &PasswordHash{
		params: HashParams{Time: time, MemoryKiB: mem, Threads: threads, KeyLen: digestLen, SaltLen: saltLen},
		salt:   append([]byte(nil), salt...),
		digest: append([]byte(nil), digest...),
	}, nil
}

func appendU32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func readU32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, fmt.Errorf("password hash: truncated length field")
	}
	v := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return v, b[4:], nil
}
