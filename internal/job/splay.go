package job

import (
	"hash/fnv"
	"math/rand"
)

// Seed returns the effective splay seed for d: an explicit per-job override
// wins, otherwise the seed derives from the node identity so every host in a
// fleet lands on its own (stable) delay.
func Seed(d Descriptor, nodeName string) uint64 {
	if d.SplaySeed != nil {
		return *d.SplaySeed
	}
	return fnv64a(nodeName)
}

// SplayDelay returns the start delay in seconds, in [0, splay).
//
// The value is a pure function of (splay, seed): recompiling the same
// descriptor on the same node yields the same delay, so reapplying
// configuration never churns the installed cron entry.
func SplayDelay(d Descriptor, seed uint64) int {
	if d.Splay <= 1 {
		return 0
	}
	rng := rand.New(rand.NewSource(int64(seed)))
	return int(rng.Int63n(int64(d.Splay)))
}

func fnv64a(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
