package worldtime

// State is the per-tick time snapshot the engine forwards to the UI.
type State struct {
	Tick      int64   `json:"tick"`
	TimeOfDay float64 `json:"time_of_day"`
	Phase     Phase   `json:"phase"`
	Ambient   float64 `json:"ambient"`
}

// State captures the clock at its current tick.
func (c *Clock) State() State {
	return State{
		Tick:      c.tick,
		TimeOfDay: c.TimeOfDay(),
		Phase:     c.Phase(),
		Ambient:   c.Ambient(),
	}
}

// SkyLight maps the ambient factor onto the 0..15 voxel light scale.
// It seeds the sky pass of the lighting engine.
func (c *Clock) SkyLight() uint8 {
	l := int(c.Ambient()*15 + 0.5)
	if l > 15 {
		l = 15
	}
	if l < 0 {
		l = 0
	}
	return uint8(l)
}
