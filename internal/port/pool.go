package port

import (
	"fmt"
	"sync"

	"firestige.xyz/timedemux/internal/core"
)

// Pool hands out message buffers up to a fixed size and recycles them.
type Pool struct {
	max  int
	pool sync.Pool
}

// NewPool creates a pool whose buffers are at most max bytes. max <= 0 means
// no limit.
func NewPool(max int) *Pool {
	return &Pool{max: max}
}

// Max returns the largest buffer the pool hands out, 0 if unlimited.
func (p *Pool) Max() int {
	return p.max
}

// Get returns a buffer of exactly n bytes. Its contents are undefined.
func (p *Pool) Get(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative size %d", core.ErrBufferExhausted, n)
	}
	if p.max > 0 && n > p.max {
		return nil, fmt.Errorf("%w: %d bytes requested, limit %d", core.ErrBufferExhausted, n, p.max)
	}
	if v, ok := p.pool.Get().(*[]byte); ok && cap(*v) >= n {
		return (*v)[:n], nil
	}
	return make([]byte, n, max(n, 64)), nil
}

// Put returns a buffer to the pool.
func (p *Pool) Put(buf []byte) {
	if cap(buf) == 0 {
		return
	}
	buf = buf[:0]
	p.pool.Put(&buf)
}
