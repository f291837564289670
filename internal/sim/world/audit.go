package world

// EditEntry is one applied voxel mutation, the audit trail row.
type EditEntry struct {
	Tick   int64  `json:"tick"`
	Chunk  [2]int `json:"chunk"`
	Pos    [3]int `json:"pos"`
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

// EditLogger receives every applied voxel mutation. Implementations
// must not block the engine loop; buffering is their problem.
type EditLogger interface {
	WriteEdit(entry EditEntry) error
}

func (e *Engine) recordEdit(tick int64, coord ChunkCoord, pos [3]int, from, to uint16, reason string) {
	if e.editLog == nil {
		return
	}
	_ = e.editLog.WriteEdit(EditEntry{
		Tick:   tick,
		Chunk:  [2]int{coord.CX, coord.CY},
		Pos:    pos,
		From:   e.mats.name(from),
		To:     e.mats.name(to),
		Reason: reason,
	})
}
