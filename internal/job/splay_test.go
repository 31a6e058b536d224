package job

import "testing"

func TestSplayDelayStable(t *testing.T) {
	t.Parallel()
	d := baseDescriptor()
	seed := Seed(d, "node-01.example.com")
	first := SplayDelay(d, seed)
	for i := 0; i < 20; i++ {
		if got := SplayDelay(d, seed); got != first {
			t.Fatalf("delay changed between calls: %d vs %d", got, first)
		}
	}
}

func TestSplayDelayRange(t *testing.T) {
	t.Parallel()
	d := baseDescriptor()
	for _, splay := range []int{1, 2, 7, 300, 86400} {
		d.Splay = splay
		for seed := uint64(0); seed < 200; seed++ {
			got := SplayDelay(d, seed)
			if got < 0 || got >= splay {
				t.Fatalf("SplayDelay(splay=%d, seed=%d) = %d, want [0,%d)", splay, seed, got, splay)
			}
		}
	}
}

func TestSplayDelayOfOneIsZero(t *testing.T) {
	t.Parallel()
	d := baseDescriptor()
	d.Splay = 1
	for seed := uint64(0); seed < 1000; seed++ {
		if got := SplayDelay(d, seed); got != 0 {
			t.Fatalf("SplayDelay(splay=1, seed=%d) = %d, want 0", seed, got)
		}
	}
}

func TestSeedPrecedence(t *testing.T) {
	t.Parallel()
	d := baseDescriptor()

	fromNode := Seed(d, "node-01")
	if fromNode != fnv64a("node-01") {
		t.Fatalf("node-derived seed = %d, want fnv64a hash", fromNode)
	}

	override := uint64(12345)
	d.SplaySeed = &override
	if got := Seed(d, "node-01"); got != override {
		t.Fatalf("explicit seed = %d, want %d", got, override)
	}
}

func TestSeedDiffersAcrossNodes(t *testing.T) {
	t.Parallel()
	d := baseDescriptor()
	if Seed(d, "node-01") == Seed(d, "node-02") {
		t.Fatal("different node names produced identical seeds")
	}
}
