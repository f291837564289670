package world

import "testing"

func cacheForTest(capacity int) (*chunkCache, *int) {
	builds := 0
	cc := newChunkCache(capacity, func(coord ChunkCoord) *Chunk {
		builds++
		return &Chunk{Coord: coord, Size: 1, Height: 1, Voxels: make([]Voxel, 1), Light: make([]uint8, 1)}
	})
	return cc, &builds
}

func TestCacheReusesResidentChunks(t *testing.T) {
	cc, builds := cacheForTest(4)
	a := cc.get(ChunkCoord{0, 0})
	if got := cc.get(ChunkCoord{0, 0}); got != a {
		t.Fatalf("second get returned a different chunk")
	}
	if *builds != 1 {
		t.Fatalf("builds = %d, want 1", *builds)
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cc, builds := cacheForTest(2)
	cc.pin(ChunkCoord{0, 0})
	cc.get(ChunkCoord{0, 0})
	cc.get(ChunkCoord{1, 0})
	cc.get(ChunkCoord{2, 0}) // over capacity: (1,0) is the oldest unpinned

	if cc.peek(ChunkCoord{1, 0}) != nil {
		t.Fatalf("(1,0) should have been evicted")
	}
	if cc.peek(ChunkCoord{0, 0}) == nil {
		t.Fatalf("pinned chunk was evicted")
	}
	if cc.peek(ChunkCoord{2, 0}) == nil {
		t.Fatalf("fresh chunk missing")
	}
	if *builds != 3 {
		t.Fatalf("builds = %d, want 3", *builds)
	}

	// A revisit rebuilds.
	cc.get(ChunkCoord{1, 0})
	if *builds != 4 {
		t.Fatalf("revisit did not rebuild, builds = %d", *builds)
	}
}

func TestCachePinFollowsNavigation(t *testing.T) {
	cc, _ := cacheForTest(1)
	cc.pin(ChunkCoord{0, 0})
	cc.get(ChunkCoord{0, 0})
	cc.pin(ChunkCoord{1, 0})
	cc.get(ChunkCoord{1, 0})

	if cc.peek(ChunkCoord{0, 0}) != nil {
		t.Fatalf("unpinned origin should have been evicted at capacity 1")
	}
	if cc.peek(ChunkCoord{1, 0}) == nil {
		t.Fatalf("current chunk missing")
	}
	if cc.len() != 1 {
		t.Fatalf("len = %d, want 1", cc.len())
	}
}
