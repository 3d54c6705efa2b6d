package scope

// Downsample decimates src to at most maxPoints values for display. The first
// value is always kept. dst is reused when it has enough capacity.
func Downsample[T any](dst, src []T, maxPoints int) []T {
	n := min(len(src), maxPoints)
	if cap(dst) >= n {
		dst = dst[:0]
	} else {
		dst = make([]T, 0, n)
	}

	if len(src) <= maxPoints {
		return append(dst, src...)
	}

	step := float64(len(src)) / float64(maxPoints)
	for i := range maxPoints {
		dst = append(dst, src[int(float64(i)*step)])
	}
	return dst
}
