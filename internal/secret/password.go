// Package secret holds password material and its argon2id digest with
// mlock'd, explicitly zeroed backing storage.
package secret

import (
	"crypto/subtle"
	"runtime"
	"sync"
)

// Password is a zeroizing wrapper around raw password bytes. The zero value
// is not usable; construct with NewPassword.
type Password struct {
	mu     sync.Mutex
	data   []byte
	locked bool
}

// NewPassword copies raw into a mlock'd buffer owned by the returned
// Password. The caller should still zero raw itself if it owns a reusable
// buffer; NewPassword only protects its own copy.
func NewPassword(raw []byte) *Password {
	data := make([]byte, len(raw))
	copy(data, raw)

	p := &Password{data: data, locked: mlock(data)}
	runtime.SetFinalizer(p, func(p *Password) { p.Zero() })
	return p
}

// Bytes returns the password's raw bytes. The returned slice aliases
// internal storage and must not be retained past Zero.
func (p *Password) Bytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data
}

// Equal reports whether p holds the same bytes as other, using a
// constant-time comparison.
func (p *Password) Equal(other *Password) bool {
	p.mu.Lock()
	a := p.data
	p.mu.Unlock()

	other.mu.Lock()
	b := other.data
	other.mu.Unlock()

	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Zero overwrites the password bytes and releases the memory lock. Safe to
// call more than once.
func (p *Password) Zero() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.data == nil {
		return
	}
	for i := range p.data {
		p.data[i] = 0
	}
	runtime.KeepAlive(p.data)
	if p.locked {
		munlock(p.data)
		p.locked = false
	}
	p.data = nil
	runtime.SetFinalizer(p, nil)
}
