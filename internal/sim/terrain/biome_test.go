package terrain

import "testing"

func TestBiomeDeterministic(t *testing.T) {
	a := NewClassifier("biome-world")
	b := NewClassifier("biome-world")
	for cx := -20; cx <= 20; cx += 3 {
		for cy := -20; cy <= 20; cy += 3 {
			if a.BiomeAt(cx, cy) != b.BiomeAt(cx, cy) {
				t.Fatalf("chunk (%d,%d) classified differently across runs", cx, cy)
			}
		}
	}
}

func TestBiomeAllClassesReachable(t *testing.T) {
	c := NewClassifier("coverage")
	seen := map[Biome]bool{}
	for cx := -120; cx <= 120; cx += 2 {
		for cy := -120; cy <= 120; cy += 2 {
			seen[c.BiomeAt(cx, cy)] = true
		}
	}
	for _, b := range []Biome{BiomeGrassland, BiomePrairie, BiomeDesert, BiomeJungle, BiomeSnow} {
		if !seen[b] {
			t.Fatalf("biome %s never produced over the sampled region", b)
		}
	}
}

func TestClassifyThresholds(t *testing.T) {
	cases := []struct {
		temp, humid float64
		want        Biome
	}{
		{-0.5, 0.0, BiomeSnow},
		{0.5, -0.2, BiomeDesert},
		{0.3, 0.3, BiomeJungle},
		{0.0, -0.4, BiomePrairie},
		{0.0, 0.0, BiomeGrassland},
		{-0.34, -0.1, BiomeGrassland}, // just above snow cutoff
		{0.5, 0.0, BiomeGrassland},    // hot but not dry enough for desert
	}
	for _, tc := range cases {
		if got := classify(tc.temp, tc.humid); got != tc.want {
			t.Fatalf("classify(%v,%v) = %s, want %s", tc.temp, tc.humid, got, tc.want)
		}
	}
}

func TestParamsForKnownBiomes(t *testing.T) {
	for _, b := range []Biome{BiomeGrassland, BiomePrairie, BiomeDesert, BiomeJungle, BiomeSnow} {
		p := ParamsFor(b)
		if p.HeightBase <= 0 || p.HeightBase >= 1 {
			t.Fatalf("%s height base out of (0,1): %v", b, p.HeightBase)
		}
		if p.HeightAmp <= 0 {
			t.Fatalf("%s has no relief", b)
		}
	}
	// Unknown biome falls back to grassland rather than zero params.
	if ParamsFor(Biome("SWAMP")) != ParamsFor(BiomeGrassland) {
		t.Fatalf("unknown biome should use grassland params")
	}
}

func TestNeighborBiomesOrder(t *testing.T) {
	c := NewClassifier("neighbors")
	n := c.NeighborBiomes(4, -2)
	if n[0] != c.BiomeAt(3, -2) || n[1] != c.BiomeAt(5, -2) ||
		n[2] != c.BiomeAt(4, -3) || n[3] != c.BiomeAt(4, -1) {
		t.Fatalf("neighbor order broken: %v", n)
	}
}
