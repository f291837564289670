package terrain

import "math"

// Noise is classic 3D gradient noise over a 256-entry permutation
// table. The table is shuffled by drawing from a Rand, so the field is
// a pure function of its seed string.
type Noise struct {
	perm [512]int
}

// NewNoise builds a gradient-noise field from a seed string.
func NewNoise(seed string) *Noise {
	n := &Noise{}
	r := NewRand(seed)

	var base [256]int
	for i := range base {
		base[i] = i
	}
	for i := 255; i > 0; i-- {
		j := r.IntN(i + 1)
		base[i], base[j] = base[j], base[i]
	}
	for i := 0; i < 256; i++ {
		n.perm[i] = base[i]
		n.perm[i+256] = base[i]
	}
	return n
}

// fade is the smoothstep 6t^5 - 15t^4 + 10t^3.
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(t, a, b float64) float64 {
	return a + t*(b-a)
}

func grad(hash int, x, y, z float64) float64 {
	h := hash & 15
	u := x
	if h >= 8 {
		u = y
	}
	v := y
	if h >= 4 {
		if h == 12 || h == 14 {
			v = x
		} else {
			v = z
		}
	}
	if h&1 != 0 {
		u = -u
	}
	if h&2 != 0 {
		v = -v
	}
	return u + v
}

// At samples the field at (x, y, z). Values are continuous, smooth and
// fall in (-1, 1).
func (n *Noise) At(x, y, z float64) float64 {
	xi := int(math.Floor(x)) & 255
	yi := int(math.Floor(y)) & 255
	zi := int(math.Floor(z)) & 255

	xf := x - math.Floor(x)
	yf := y - math.Floor(y)
	zf := z - math.Floor(z)

	u := fade(xf)
	v := fade(yf)
	w := fade(zf)

	p := &n.perm
	aaa := p[p[p[xi]+yi]+zi]
	aba := p[p[p[xi]+yi+1]+zi]
	aab := p[p[p[xi]+yi]+zi+1]
	abb := p[p[p[xi]+yi+1]+zi+1]
	baa := p[p[p[xi+1]+yi]+zi]
	bba := p[p[p[xi+1]+yi+1]+zi]
	bab := p[p[p[xi+1]+yi]+zi+1]
	bbb := p[p[p[xi+1]+yi+1]+zi+1]

	x1 := lerp(u, grad(aaa, xf, yf, zf), grad(baa, xf-1, yf, zf))
	x2 := lerp(u, grad(aba, xf, yf-1, zf), grad(bba, xf-1, yf-1, zf))
	y1 := lerp(v, x1, x2)

	x1 = lerp(u, grad(aab, xf, yf, zf-1), grad(bab, xf-1, yf, zf-1))
	x2 = lerp(u, grad(abb, xf, yf-1, zf-1), grad(bbb, xf-1, yf-1, zf-1))
	y2 := lerp(v, x1, x2)

	return lerp(w, y1, y2)
}

// FBM sums octaves of the field, normalized back to (-1, 1).
func (n *Noise) FBM(x, y, z float64, octaves int, lacunarity, persistence float64) float64 {
	var total, maxAmp float64
	freq := 1.0
	amp := 1.0
	for i := 0; i < octaves; i++ {
		total += n.At(x*freq, y*freq, z*freq) * amp
		maxAmp += amp
		amp *= persistence
		freq *= lacunarity
	}
	return total / maxAmp
}
