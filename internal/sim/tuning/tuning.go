package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Tuning collects the runtime knobs of the engine. Values in
// tuning.yaml override the defaults field by field; anything the file
// leaves out keeps its default.
type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz" validate:"min=1,max=60"`
	DayTicks   int `yaml:"day_ticks" validate:"min=100"`

	WorldHeight  int `yaml:"world_height" validate:"min=16,max=256"`
	ChunkSizeMin int `yaml:"chunk_size_min" validate:"min=8,max=128"`
	ChunkSizeMax int `yaml:"chunk_size_max" validate:"min=8,max=128,gtefield=ChunkSizeMin"`

	MiningRate      int `yaml:"mining_rate" validate:"min=1"`
	SpawnSafeRadius int `yaml:"spawn_safe_radius" validate:"min=0"`

	FellingDelayTicks   int `yaml:"felling_delay_ticks" validate:"min=1"`
	LeafDecayDelayTicks int `yaml:"leaf_decay_delay_ticks" validate:"min=1"`
	LeafDecayJitter     int `yaml:"leaf_decay_jitter" validate:"min=0"`

	CacheChunks int `yaml:"cache_chunks" validate:"min=1"`

	AutosaveEveryTicks int `yaml:"autosave_every_ticks" validate:"min=0"`
	StatsEveryTicks    int `yaml:"stats_every_ticks" validate:"min=1"`

	ViewportW int `yaml:"viewport_w" validate:"min=64,max=4096"`
	ViewportH int `yaml:"viewport_h" validate:"min=64,max=4096"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:          10,
		DayTicks:            2400,
		WorldHeight:         64,
		ChunkSizeMin:        30,
		ChunkSizeMax:        50,
		MiningRate:          1,
		SpawnSafeRadius:     8,
		FellingDelayTicks:   4,
		LeafDecayDelayTicks: 10,
		LeafDecayJitter:     8,
		CacheChunks:         64,
		AutosaveEveryTicks:  600,
		StatsEveryTicks:     30,
		ViewportW:           960,
		ViewportH:           540,
	}
}

// Load reads tuning.yaml over the defaults. A missing file is not an
// error: the defaults stand alone.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, t.validate()
		}
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, t.validate()
}

func (t Tuning) validate() error {
	if err := validator.New().Struct(t); err != nil {
		return fmt.Errorf("tuning.yaml: %w", err)
	}
	return nil
}

// Digest identifies the applied tuning values. The handshake and the
// save index both carry it so a client (or an operator reading the
// index) can tell when the knobs changed between sessions.
func (t Tuning) Digest() string {
	b, _ := json.Marshal(t)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
