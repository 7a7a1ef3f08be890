package shiftdata

import (
	"context"
	"sync"
)

// Tokens issues request tokens. Issuing a new token invalidates the previous one
// and cancels its context.
type Tokens struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// Token identifies one logical request
type Token struct {
	seq uint64
	ctx context.Context
	src *Tokens
}

// Next issues a token derived from parent, superseding any earlier token
func (t *Tokens) Next(parent context.Context) *Token {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	t.seq++
	t.cancel = cancel

	return &Token{seq: t.seq, ctx: ctx, src: t}
}

// Current returns the sequence number of the latest issued token
func (t *Tokens) Current() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seq
}

// Valid reports whether this is still the latest token
func (tk *Token) Valid() bool {
	return tk.src.Current() == tk.seq
}

// Context is cancelled once the token is superseded
func (tk *Token) Context() context.Context {
	return tk.ctx
}

func (tk *Token) Seq() uint64 {
	return tk.seq
}
