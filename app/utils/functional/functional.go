package functional

// Map applies f to every element, keeping order.
func Map[T, V any](slice []T, f func(T) V) []V {
	result := make([]V, 0, len(slice))
	for _, v := range slice {
		result = append(result, f(v))
	}
	return result
}

// Distinct drops repeated elements, keeping the first occurrence.
func Distinct[T comparable](slice []T) []T {
	seen := make(map[T]struct{}, len(slice))
	result := make([]T, 0, len(slice))
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
