package audio

// ToMono averages interleaved channels into a single channel. Mono input is
// returned unchanged.
func ToMono(samples []float32, channels int) []float32 {
	if channels <= 1 || len(samples) == 0 {
		return samples
	}

	frames := len(samples) / channels
	out := make([]float32, frames)
	for i := range frames {
		base := i * channels
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += samples[base+ch]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// Resample converts mono samples between rates by linear interpolation.
// Equal rates pass through; a destination of one sample or fewer degrades to
// nil.
func Resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || len(samples) == 0 {
		return samples
	}
	if srcRate <= 0 || dstRate <= 0 {
		return nil
	}

	duration := float64(len(samples)) / float64(srcRate)
	dstLen := int(duration * float64(dstRate))
	if dstLen <= 1 {
		return nil
	}

	out := make([]float32, dstLen)
	step := float64(len(samples)-1) / float64(dstLen-1)
	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		frac := float32(pos - float64(idx))

		s0 := samples[idx]
		s1 := s0
		if idx+1 < len(samples) {
			s1 = samples[idx+1]
		}
		out[i] = s0 + (s1-s0)*frac
	}
	return out
}
