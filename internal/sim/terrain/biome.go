package terrain

// Biome names a terrain style. Classification is coarse: one biome per
// chunk, from temperature/humidity noise sampled at chunk-grid
// resolution.
type Biome string

const (
	BiomeGrassland Biome = "GRASSLAND"
	BiomePrairie   Biome = "PRAIRIE"
	BiomeDesert    Biome = "DESERT"
	BiomeJungle    Biome = "JUNGLE"
	BiomeSnow      Biome = "SNOW"
)

// BiomeParams drive the height field and structure placement for one
// biome. HeightBase is a fraction of world height.
type BiomeParams struct {
	HeightBase float64
	HeightAmp  float64
	HeightFreq float64

	// Structure attempts per 1000 surface cells.
	TreePermille  int
	SpikePermille int
}

var biomeParams = map[Biome]BiomeParams{
	BiomeGrassland: {HeightBase: 0.42, HeightAmp: 6, HeightFreq: 0.08, TreePermille: 14},
	BiomePrairie:   {HeightBase: 0.40, HeightAmp: 4, HeightFreq: 0.06, TreePermille: 3},
	BiomeDesert:    {HeightBase: 0.38, HeightAmp: 5, HeightFreq: 0.07, TreePermille: 5},
	BiomeJungle:    {HeightBase: 0.45, HeightAmp: 8, HeightFreq: 0.10, TreePermille: 26},
	BiomeSnow:      {HeightBase: 0.48, HeightAmp: 7, HeightFreq: 0.09, TreePermille: 8, SpikePermille: 4},
}

// ParamsFor returns the generation parameters of a biome.
func ParamsFor(b Biome) BiomeParams {
	if p, ok := biomeParams[b]; ok {
		return p
	}
	return biomeParams[BiomeGrassland]
}

const biomeFieldFreq = 0.13

// Classifier maps chunk coordinates to biomes. It is pure and
// side-effect-free: the same world seed always yields the same map.
type Classifier struct {
	temp  *Noise
	humid *Noise
}

func NewClassifier(worldSeed string) *Classifier {
	return &Classifier{
		temp:  NewNoise(worldSeed + "|temperature"),
		humid: NewNoise(worldSeed + "|humidity"),
	}
}

// BiomeAt classifies one chunk coordinate.
func (c *Classifier) BiomeAt(cx, cy int) Biome {
	t := c.temp.FBM(float64(cx)*biomeFieldFreq, float64(cy)*biomeFieldFreq, 0, 3, 2.0, 0.5)
	h := c.humid.FBM(float64(cx)*biomeFieldFreq+512, float64(cy)*biomeFieldFreq+512, 0, 3, 2.0, 0.5)
	return classify(t, h)
}

// classify applies the fixed temperature/humidity thresholds.
func classify(temp, humid float64) Biome {
	switch {
	case temp < -0.35:
		return BiomeSnow
	case temp > 0.40 && humid < -0.10:
		return BiomeDesert
	case temp > 0.15 && humid > 0.20:
		return BiomeJungle
	case humid < -0.25:
		return BiomePrairie
	default:
		return BiomeGrassland
	}
}

// NeighborBiomes resolves the 4 orthogonal neighbors of a chunk in
// west, east, north, south order.
func (c *Classifier) NeighborBiomes(cx, cy int) [4]Biome {
	return [4]Biome{
		c.BiomeAt(cx-1, cy),
		c.BiomeAt(cx+1, cy),
		c.BiomeAt(cx, cy-1),
		c.BiomeAt(cx, cy+1),
	}
}
