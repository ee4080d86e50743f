package dsp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	frameSize = 2048
	hopSize   = 512

	minBPM = 60.0
	maxBPM = 180.0

	// spectral stats sample at most this many frames, striding evenly,
	// so long tracks do not blow up analysis time
	maxSpectralFrames = 256

	eps = 1e-10
)

// envelope computes the per-hop RMS loudness curve.
func envelope(samples []float64) []float64 {
	if len(samples) < frameSize {
		return nil
	}
	n := (len(samples)-frameSize)/hopSize + 1
	env := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hopSize
		var sum float64
		for _, s := range samples[start : start+frameSize] {
			sum += s * s
		}
		env[i] = math.Sqrt(sum / frameSize)
	}
	return env
}

// rhythm estimates tempo and a danceability proxy from the
// autocorrelation of the loudness envelope. Danceability is the strength
// of the dominant periodicity relative to the signal's own energy.
func rhythm(samples []float64, rate int) (bpm, danceability float64, ok bool) {
	env := envelope(samples)
	if len(env) < 16 {
		return 0, 0, false
	}

	var mean float64
	for _, v := range env {
		mean += v
	}
	mean /= float64(len(env))

	flux := make([]float64, len(env))
	var energy float64
	for i, v := range env {
		flux[i] = v - mean
		energy += flux[i] * flux[i]
	}
	if energy < eps {
		return 0, 0, false
	}

	envRate := float64(rate) / hopSize
	minLag := int(60.0 / maxBPM * envRate)
	maxLag := int(60.0 / minBPM * envRate)
	if maxLag >= len(flux) {
		maxLag = len(flux) - 1
	}
	if minLag < 1 || minLag >= maxLag {
		return 0, 0, false
	}

	bestLag, bestCorr := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var corr float64
		for i := 0; i+lag < len(flux); i++ {
			corr += flux[i] * flux[i+lag]
		}
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}
	if bestLag == 0 {
		return 0, 0, false
	}

	bpm = 60.0 * envRate / float64(bestLag)
	danceability = clamp01(bestCorr / energy)
	return bpm, danceability, true
}

// dynamicComplexity is the average absolute deviation of frame loudness
// (in dB) from the track's mean loudness.
func dynamicComplexity(samples []float64) (float64, bool) {
	env := envelope(samples)
	if len(env) < 4 {
		return 0, false
	}
	db := make([]float64, len(env))
	var mean float64
	for i, v := range env {
		db[i] = 20 * math.Log10(v+eps)
		mean += db[i]
	}
	mean /= float64(len(db))

	var dev float64
	for _, v := range db {
		dev += math.Abs(v - mean)
	}
	return dev / float64(len(db)), true
}

type spectralStats struct {
	centroid float64
	flatness float64
	contrast float64
	chroma   [12]float64
}

// analyzeSpectra computes frame spectra once and derives every
// spectrum-based descriptor from them.
func analyzeSpectra(samples []float64, rate int) (spectralStats, bool) {
	if len(samples) < frameSize {
		return spectralStats{}, false
	}

	frames := (len(samples)-frameSize)/hopSize + 1
	stride := 1
	if frames > maxSpectralFrames {
		stride = frames / maxSpectralFrames
	}

	fft := fourier.NewFFT(frameSize)
	window := hann(frameSize)
	buf := make([]float64, frameSize)

	var stats spectralStats
	var used int
	binHz := float64(rate) / frameSize

	for f := 0; f < frames; f += stride {
		start := f * hopSize
		for i := range buf {
			buf[i] = samples[start+i] * window[i]
		}
		coeffs := fft.Coefficients(nil, buf)

		mags := make([]float64, len(coeffs))
		var magSum, weighted, logSum float64
		for i, c := range coeffs {
			m := cmplxAbs(c)
			mags[i] = m
			magSum += m
			weighted += float64(i) * binHz * m
			logSum += math.Log(m + eps)
		}
		if magSum < eps {
			continue
		}

		stats.centroid += weighted / magSum
		arith := magSum / float64(len(mags))
		geo := math.Exp(logSum / float64(len(mags)))
		stats.flatness += geo / (arith + eps)
		stats.contrast += frameContrast(mags)
		accumulateChroma(&stats.chroma, mags, binHz)
		used++
	}

	if used == 0 {
		return spectralStats{}, false
	}
	stats.centroid /= float64(used)
	stats.flatness /= float64(used)
	stats.contrast /= float64(used)
	return stats, true
}

// frameContrast is the log-energy gap between the loudest and quietest
// 15% of bins, a single-band simplification of spectral contrast.
func frameContrast(mags []float64) float64 {
	sorted := append([]float64(nil), mags...)
	sort.Float64s(sorted)
	q := len(sorted) * 15 / 100
	if q == 0 {
		q = 1
	}
	var low, high float64
	for i := 0; i < q; i++ {
		low += sorted[i]
		high += sorted[len(sorted)-1-i]
	}
	low /= float64(q)
	high /= float64(q)
	return math.Log10(high+eps) - math.Log10(low+eps)
}

func accumulateChroma(chroma *[12]float64, mags []float64, binHz float64) {
	for i, m := range mags {
		freq := float64(i) * binHz
		if freq < 55 || freq > 4186 {
			continue
		}
		midi := 69 + 12*math.Log2(freq/440.0)
		pc := ((int(math.Round(midi)) % 12) + 12) % 12
		chroma[pc] += m * m
	}
}

var pitchNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Krumhansl-Schmuckler key profiles.
var (
	majorProfile = [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = [12]float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// estimateKey correlates the chroma vector against rotated major and
// minor templates. Confidence is how far the best match stands out from
// the runner-up.
func estimateKey(chroma [12]float64) (key, scale string, confidence float64, ok bool) {
	var total float64
	for _, v := range chroma {
		total += v
	}
	if total < eps {
		return "", "", 0, false
	}

	best, second := math.Inf(-1), math.Inf(-1)
	bestPC, bestScale := 0, "major"
	for pc := 0; pc < 12; pc++ {
		for _, mode := range []struct {
			name    string
			profile [12]float64
		}{{"major", majorProfile}, {"minor", minorProfile}} {
			r := correlate(chroma, mode.profile, pc)
			if r > best {
				second = best
				best = r
				bestPC = pc
				bestScale = mode.name
			} else if r > second {
				second = r
			}
		}
	}

	confidence = clamp01((best - second) / (math.Abs(best) + eps))
	return pitchNames[bestPC], bestScale, confidence, true
}

// correlate computes the Pearson correlation between the chroma vector
// and the profile rotated so that index 0 lands on tonic pc.
func correlate(chroma [12]float64, profile [12]float64, tonic int) float64 {
	var meanC, meanP float64
	for i := 0; i < 12; i++ {
		meanC += chroma[i]
		meanP += profile[i]
	}
	meanC /= 12
	meanP /= 12

	var num, denC, denP float64
	for i := 0; i < 12; i++ {
		c := chroma[(tonic+i)%12] - meanC
		p := profile[i] - meanP
		num += c * p
		denC += c * c
		denP += p * p
	}
	den := math.Sqrt(denC * denP)
	if den < eps {
		return 0
	}
	return num / den
}

func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
