package listing

// Interleave merges two ordered sequences into one, alternating one element
// from a and one from b; once a source is exhausted the remainder of the other
// is appended in its original order. Relative order within each source is
// preserved. This is a fairness policy, not a ranking: it stops one property
// category from dominating the first page purely because its collection is
// bigger.
func Interleave[T any](a, b []T) []T {
	out := make([]T, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		if i < len(a) {
			out = append(out, a[i])
			i++
		}
		if j < len(b) {
			out = append(out, b[j])
			j++
		}
	}
	return out
}
