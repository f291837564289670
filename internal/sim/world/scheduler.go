package world

import "container/heap"

// scheduledEdit is a deferred voxel removal (felled trunk segments,
// decaying leaves). expect pins the material the cell must still hold
// when the tick arrives; anything else means the edit went stale.
type scheduledEdit struct {
	fire   int64
	seq    int // FIFO among edits firing on the same tick
	coord  ChunkCoord
	pos    [3]int
	expect uint16
	reason string
}

type editQueue []*scheduledEdit

func (q editQueue) Len() int { return len(q) }

func (q editQueue) Less(i, j int) bool {
	if q[i].fire != q[j].fire {
		return q[i].fire < q[j].fire
	}
	return q[i].seq < q[j].seq
}

func (q editQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *editQueue) Push(x any) { *q = append(*q, x.(*scheduledEdit)) }

func (q *editQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return it
}

// editScheduler orders deferred edits by firing tick, stable for ties.
type editScheduler struct {
	q   editQueue
	seq int
}

func (s *editScheduler) schedule(fire int64, coord ChunkCoord, pos [3]int, expect uint16, reason string) {
	s.seq++
	heap.Push(&s.q, &scheduledEdit{
		fire:   fire,
		seq:    s.seq,
		coord:  coord,
		pos:    pos,
		expect: expect,
		reason: reason,
	})
}

// due pops every edit scheduled at or before tick, in firing order.
func (s *editScheduler) due(tick int64) []*scheduledEdit {
	var out []*scheduledEdit
	for len(s.q) > 0 && s.q[0].fire <= tick {
		out = append(out, heap.Pop(&s.q).(*scheduledEdit))
	}
	return out
}

func (s *editScheduler) pending() int { return len(s.q) }
