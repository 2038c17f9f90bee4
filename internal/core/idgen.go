package core

import "math/rand/v2"

// IDGen hands out unique non-zero 32-bit ids. Ids stay reserved until
// Release. Not safe for concurrent use.
type IDGen struct {
	used map[uint32]struct{}
	rng  *rand.Rand
}

func NewIDGen() *IDGen {
	return &IDGen{
		used: make(map[uint32]struct{}),
		rng:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// NewSeededIDGen returns a generator with a deterministic sequence.
func NewSeededIDGen(seed uint64) *IDGen {
	return &IDGen{
		used: make(map[uint32]struct{}),
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (g *IDGen) Next() uint32 {
	for {
		id := g.rng.Uint32()
		if id == 0 {
			continue
		}
		if _, taken := g.used[id]; taken {
			continue
		}
		g.used[id] = struct{}{}
		return id
	}
}

func (g *IDGen) Release(id uint32) {
	delete(g.used, id)
}

func (g *IDGen) InUse(id uint32) bool {
	_, ok := g.used[id]
	return ok
}

func (g *IDGen) Len() int { return len(g.used) }
