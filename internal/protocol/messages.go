package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Client          string `json:"client,omitempty"`
	ViewportW       int    `json:"viewport_w,omitempty"`
	ViewportH       int    `json:"viewport_h,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	WorldParams     WorldParams    `json:"world_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
	Materials       []MaterialRef  `json:"materials"`
}

type WorldParams struct {
	Seed         string `json:"seed"`
	TickRateHz   int    `json:"tick_rate_hz"`
	DayTicks     int    `json:"day_ticks"`
	WorldHeight  int    `json:"world_height"`
	ChunkSizeMin int    `json:"chunk_size_min"`
	ChunkSizeMax int    `json:"chunk_size_max"`
	ViewportW    int    `json:"viewport_w"`
	ViewportH    int    `json:"viewport_h"`
}

type CatalogDigests struct {
	MaterialPalette DigestRef `json:"material_palette"`
	MaterialDefs    string    `json:"material_defs_digest"`
	Tuning          string    `json:"tuning_digest,omitempty"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// MaterialRef is the slice of the material catalog the UI needs for
// its picker: names, palette ids, base colors, and which entries can
// be placed.
type MaterialRef struct {
	ID        string `json:"id"`
	Palette   uint16 `json:"palette"`
	Color     string `json:"color"`
	Placeable bool   `json:"placeable"`
	Emission  uint8  `json:"emission,omitempty"`
}
