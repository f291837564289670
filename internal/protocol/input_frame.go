package protocol

// ClientMsg is the single decoded shape for everything the UI sends
// after the handshake. Type selects which fields are meaningful; the
// rest stay at their zero values.
type ClientMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`

	// POINTER: viewport-relative pointer position.
	X    float64 `json:"x,omitempty"`
	Y    float64 `json:"y,omitempty"`
	Kind string  `json:"kind,omitempty"` // "mouse" | "touch"

	// INPUT: primary button/press state.
	Down bool `json:"down,omitempty"`

	// MODE: "camera" | "edit".
	Mode string `json:"mode,omitempty"`

	// SELECT / PLACE: material id, e.g. "STONE".
	Material string `json:"material,omitempty"`

	// NAVIGATE: "N" | "S" | "E" | "W".
	Direction string `json:"direction,omitempty"`

	// CAMERA: zero means "leave unchanged" for every field.
	Rotate  int     `json:"rotate,omitempty"` // quarter turns, signed
	Zoom    float64 `json:"zoom,omitempty"`
	Pitch   float64 `json:"pitch,omitempty"`
	Ceiling int     `json:"ceiling,omitempty"`
}

// FRAME (server -> client): one composed viewport image.
type FrameMsg struct {
	Type  string `json:"type"`
	Tick  int64  `json:"tick"`
	Coord [2]int `json:"coord"`
	W     int    `json:"w"`
	H     int    `json:"h"`
	PNG   string `json:"png"` // base64 image/png
}

// STATS (server -> client): periodic engine counters.
type StatsMsg struct {
	Type          string  `json:"type"`
	Tick          int64   `json:"tick"`
	FPS           float64 `json:"fps"`
	VisibleVoxels int     `json:"visible_voxels"`
	Coord         [2]int  `json:"coord"`
}

// TIME (server -> client): day/night state, sent every tick.
type TimeMsg struct {
	Type      string  `json:"type"`
	Tick      int64   `json:"tick"`
	TimeOfDay float64 `json:"time_of_day"`
	Phase     string  `json:"phase"`
	Ambient   float64 `json:"ambient"`
}

// INVENTORY (server -> client): one mined-voxel tally update.
type InventoryMsg struct {
	Type     string         `json:"type"`
	Material string         `json:"material"`
	Count    int            `json:"count"`
	Totals   map[string]int `json:"totals"`
}

// PLACED (server -> client): confirmation of a committed placement.
type PlacedMsg struct {
	Type     string `json:"type"`
	Material string `json:"material"`
	Pos      [3]int `json:"pos"`
	Coord    [2]int `json:"coord"`
}

// EXPLORATION (server -> client): visited chunk keys + current coord.
type ExplorationMsg struct {
	Type    string   `json:"type"`
	Visited []string `json:"visited"`
	Current [2]int   `json:"current"`
}

// ERROR (server -> client).
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
