package sampling

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncatedNormalClampsIntoBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := TruncatedNormal{Mu: 280, Sigma: 50, Lo: 275, Hi: 285}
	for i := 0; i < 1000; i++ {
		v := s.Sample(rng)
		assert.GreaterOrEqual(t, v, 275)
		assert.LessOrEqual(t, v, 285)
	}
}

func TestEmpiricalDiscreteOnlyReturnsKnownValues(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	known := map[int]bool{10: true, 20: true, 20: true, 30: true}
	s := EmpiricalDiscrete{Values: []int{10, 20, 20, 30}}
	for i := 0; i < 200; i++ {
		assert.True(t, known[s.Sample(rng)])
	}
}

func TestMixtureRespectsComponentBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	m := Mixture{PPeak: 1.0, PeakMu: 180, PeakSigma: 10, PeakLo: 150, PeakHi: 210, TailLo: 200, TailHi: 400}
	for i := 0; i < 500; i++ {
		v := m.Sample(rng)
		assert.GreaterOrEqual(t, v, 150)
		assert.LessOrEqual(t, v, 210)
	}

	allTail := Mixture{PPeak: 0.0, PeakMu: 180, PeakSigma: 10, PeakLo: 150, PeakHi: 210, TailLo: 200, TailHi: 400}
	for i := 0; i < 500; i++ {
		v := allTail.Sample(rng)
		assert.GreaterOrEqual(t, v, 200)
		assert.LessOrEqual(t, v, 400)
	}
}

func TestFitLogNormalDegenerateInputFallsBackToDefaults(t *testing.T) {
	mu, sigma := FitLogNormal(nil)
	assert.Equal(t, 0.0, mu)
	assert.Equal(t, 1.0, sigma)

	mu, sigma = FitLogNormal([]int{0, 0, 0})
	assert.Equal(t, 0.0, mu)
	assert.Equal(t, 1.0, sigma)
}

func TestFitLogNormalRecoversReasonableMean(t *testing.T) {
	values := []int{60, 65, 70, 70, 75, 80, 85, 90}
	mu, sigma := FitLogNormal(values)
	assert.Greater(t, sigma, 0.0)

	// mean of exp(mu + sigma^2/2) should land in the neighborhood of the
	// sample mean for a reasonably well-behaved input.
	rng := rand.New(rand.NewSource(4))
	s := LogNormal{MuLn: mu, SigmaLn: sigma, Lo: 1, Hi: 500}
	var total int
	const n = 5000
	for i := 0; i < n; i++ {
		total += s.Sample(rng)
	}
	avg := float64(total) / float64(n)
	assert.InDelta(t, 74.0, avg, 15.0)
}

func TestBuildDryMixtureSamplerSplitsAtThreshold(t *testing.T) {
	values := []int{40, 45, 50, 60, 260, 280, 300}
	m := BuildDryMixtureSampler(values, 20, 100, 200, 350)
	assert.InDelta(t, 4.0/7.0, m.PPeak, 1e-9)
}
