// Package worldtime tracks the world tick and derives the day/night
// cycle from it. The clock is owned by the engine loop; nothing here
// is safe for concurrent use.
package worldtime

type Phase string

const (
	PhaseDay   Phase = "DAY"
	PhaseDusk  Phase = "DUSK"
	PhaseNight Phase = "NIGHT"
	PhaseDawn  Phase = "DAWN"
)

// Cycle phase boundaries as fractions of a day.
const (
	duskStart  = 0.45
	nightStart = 0.55
	dawnStart  = 0.95
)

// Ambient light never drops below this at night.
const nightAmbient = 0.35

type Clock struct {
	tick     int64
	dayTicks int
}

func NewClock(dayTicks int) *Clock {
	if dayTicks < 1 {
		dayTicks = 1
	}
	return &Clock{dayTicks: dayTicks}
}

func (c *Clock) Advance()    { c.tick++ }
func (c *Clock) Tick() int64 { return c.tick }

// SetTick restores the clock from a snapshot.
func (c *Clock) SetTick(t int64) {
	if t < 0 {
		t = 0
	}
	c.tick = t
}

// TimeOfDay returns the position within the current day in [0,1).
func (c *Clock) TimeOfDay() float64 {
	return float64(c.tick%int64(c.dayTicks)) / float64(c.dayTicks)
}

func (c *Clock) Phase() Phase {
	switch tod := c.TimeOfDay(); {
	case tod < duskStart:
		return PhaseDay
	case tod < nightStart:
		return PhaseDusk
	case tod < dawnStart:
		return PhaseNight
	default:
		return PhaseDawn
	}
}

// Ambient returns the global light factor in [nightAmbient, 1]:
// full during the day, floor at night, linear ramps across dusk and
// dawn.
func (c *Clock) Ambient() float64 {
	tod := c.TimeOfDay()
	switch {
	case tod < duskStart:
		return 1.0
	case tod < nightStart:
		f := (tod - duskStart) / (nightStart - duskStart)
		return 1.0 - f*(1.0-nightAmbient)
	case tod < dawnStart:
		return nightAmbient
	default:
		f := (tod - dawnStart) / (1.0 - dawnStart)
		return nightAmbient + f*(1.0-nightAmbient)
	}
}
