package duplication

import "sync"

// framePool pools frame buffers of a single size. A capture loop produces
// frames of one size until the display mode changes, so one size class is
// enough; a size change drops everything pooled for the old size.
type framePool struct {
	mu   sync.Mutex
	pool *sync.Pool
	size int
}

func (p *framePool) current(n int) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool == nil || p.size != n {
		p.size = n
		p.pool = &sync.Pool{}
	}
	return p.pool
}

// Get returns a buffer with length n.
func (p *framePool) Get(n int) []byte {
	if v := p.current(n).Get(); v != nil {
		return (*v.(*[]byte))[:n]
	}
	return make([]byte, n)
}

// Put returns buf to the pool if it matches the current size.
func (p *framePool) Put(buf []byte) {
	p.mu.Lock()
	pool := p.pool
	match := pool != nil && len(buf) == p.size
	p.mu.Unlock()
	if match {
		pool.Put(&buf)
	}
}
