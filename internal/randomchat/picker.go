package randomchat

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// Picker chooses one of n candidates.
type Picker interface {
	IntN(n int) int
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewPicker returns a uniform, goroutine-safe picker. The same seed always
// yields the same sequence of picks.
func NewPicker(seed uint64) Picker {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandomPicker seeds a picker from the operating system.
func NewRandomPicker() Picker {
	var b [8]byte
	_, _ = crand.Read(b[:])
	return NewPicker(binary.LittleEndian.Uint64(b[:]))
}

func (p *lockedRand) IntN(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.r.IntN(n)
}
