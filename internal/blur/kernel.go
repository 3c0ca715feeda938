package blur

import (
	"math"
	"sync"
)

// Kernel is the weight/offset table for one blur strength.
//
// Offsets are in texels and symmetric around zero; Weights[i] belongs to
// Offsets[i]. For strength 0 both slices are empty.
type Kernel struct {
	Strength int
	Weights  []float32
	Offsets  []float32
}

// Taps returns the number of texture samples one pass takes.
func (k *Kernel) Taps() int {
	return len(k.Weights)
}

// Empty reports whether the kernel is the identity.
func (k *Kernel) Empty() bool {
	return len(k.Weights) == 0
}

// Radius returns the half-width in texels covered by strength s (3·s).
func Radius(strength int) int {
	if strength <= 0 {
		return 0
	}
	return strength * 3
}

// TapCount returns the number of folded taps for strength s.
func TapCount(strength int) int {
	r := Radius(strength)
	if r == 0 {
		return 0
	}
	return 1 + 2*((r+1)/2)
}

// Build computes the kernel for strength s without consulting a cache.
// Negative strengths are treated as 0.
func Build(strength int) *Kernel {
	if strength <= 0 {
		return &Kernel{Weights: []float32{}, Offsets: []float32{}}
	}

	sigma := float64(strength)
	radius := Radius(strength)
	twoSigmaSq := 2 * sigma * sigma

	// One side of the discrete Gaussian, g[0] is the centre texel.
	g := make([]float64, radius+1)
	total := 0.0
	for i := 0; i <= radius; i++ {
		x := float64(i)
		g[i] = math.Exp(-(x * x) / twoSigmaSq)
		if i == 0 {
			total += g[i]
		} else {
			total += 2 * g[i]
		}
	}

	// Fold texel pairs (1,2), (3,4), ... into single bilinear taps.
	n := TapCount(strength)
	weights := make([]float64, 0, n/2)
	offsets := make([]float64, 0, n/2)
	for i := 1; i <= radius; i += 2 {
		a := g[i]
		b := 0.0
		if i+1 <= radius {
			b = g[i+1]
		}
		w := a + b
		weights = append(weights, w)
		offsets = append(offsets, (float64(i)*a+float64(i+1)*b)/w)
	}

	k := &Kernel{
		Strength: strength,
		Weights:  make([]float32, n),
		Offsets:  make([]float32, n),
	}
	center := len(weights)
	k.Weights[center] = float32(g[0] / total)
	for j := range weights {
		w := float32(weights[j] / total)
		off := float32(offsets[j])
		k.Weights[center+1+j] = w
		k.Offsets[center+1+j] = off
		k.Weights[center-1-j] = w
		k.Offsets[center-1-j] = -off
	}
	return k
}

// Cache maps blur strengths to kernels. Entries are never evicted: the set
// of strengths a session uses is small and bounded.
//
// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	kernels map[int]*Kernel
}

// NewCache creates an empty kernel cache.
func NewCache() *Cache {
	return &Cache{kernels: make(map[int]*Kernel)}
}

// Get returns the kernel for strength s, building it on first use.
// The returned kernel must not be modified.
func (c *Cache) Get(strength int) *Kernel {
	if strength < 0 {
		strength = 0
	}

	c.mu.RLock()
	if k, ok := c.kernels[strength]; ok {
		c.mu.RUnlock()
		return k
	}
	c.mu.RUnlock()

	k := Build(strength)

	c.mu.Lock()
	if existing, ok := c.kernels[strength]; ok {
		c.mu.Unlock()
		return existing
	}
	c.kernels[strength] = k
	c.mu.Unlock()

	return k
}

// Len returns the number of cached strengths.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.kernels)
}

