package services

import "sync"

const generationStripes = 64

// cartGenerations counts cart mutations per user so a cache fill that raced
// a write can be dropped. Users share stripes; a collision only costs a
// skipped cache write.
type cartGenerations struct {
	stripes [generationStripes]generationStripe
}

type generationStripe struct {
	mu  sync.Mutex
	gen uint64
}

func (g *cartGenerations) stripe(userID int64) *generationStripe {
	return &g.stripes[uint64(userID)%generationStripes]
}

// current returns the generation a read must still match when it is cached
func (g *cartGenerations) current(userID int64) uint64 {
	s := g.stripe(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// bump marks the user's cart as being written
func (g *cartGenerations) bump(userID int64) {
	s := g.stripe(userID)
	s.mu.Lock()
	s.gen++
	s.mu.Unlock()
}

// fill runs set only if no write began since gen was read
func (g *cartGenerations) fill(userID int64, gen uint64, set func()) bool {
	s := g.stripe(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	set()
	return true
}

// invalidate bumps the generation and runs drop under the same lock, so a
// fill either lands before drop or is skipped
func (g *cartGenerations) invalidate(userID int64, drop func()) {
	s := g.stripe(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	drop()
}
