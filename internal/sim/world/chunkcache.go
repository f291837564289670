package world

import "container/list"

// chunkCache keeps recently visited chunks alive with LRU eviction.
// Chunks are pure functions of (seed, coord) plus the edit overlay, so
// eviction loses nothing: a revisit regenerates and replays edits.
type chunkCache struct {
	capacity int
	build    func(ChunkCoord) *Chunk

	ll    *list.List // front = most recently used
	items map[ChunkCoord]*list.Element

	// The on-screen chunk; eviction never drops it.
	pinned ChunkCoord

	built int
}

func newChunkCache(capacity int, build func(ChunkCoord) *Chunk) *chunkCache {
	if capacity < 1 {
		capacity = 1
	}
	return &chunkCache{
		capacity: capacity,
		build:    build,
		ll:       list.New(),
		items:    map[ChunkCoord]*list.Element{},
	}
}

func (cc *chunkCache) pin(coord ChunkCoord) { cc.pinned = coord }

// peek returns the chunk if it is resident, without touching LRU order
// or generating it.
func (cc *chunkCache) peek(coord ChunkCoord) *Chunk {
	if el, ok := cc.items[coord]; ok {
		return el.Value.(*Chunk)
	}
	return nil
}

func (cc *chunkCache) get(coord ChunkCoord) *Chunk {
	if el, ok := cc.items[coord]; ok {
		cc.ll.MoveToFront(el)
		return el.Value.(*Chunk)
	}
	c := cc.build(coord)
	cc.items[coord] = cc.ll.PushFront(c)
	cc.built++
	for cc.ll.Len() > cc.capacity {
		if !cc.evictOldest() {
			break
		}
	}
	return c
}

func (cc *chunkCache) evictOldest() bool {
	for el := cc.ll.Back(); el != nil; el = el.Prev() {
		c := el.Value.(*Chunk)
		if c.Coord == cc.pinned {
			continue
		}
		cc.ll.Remove(el)
		delete(cc.items, c.Coord)
		return true
	}
	return false
}

func (cc *chunkCache) len() int { return cc.ll.Len() }
