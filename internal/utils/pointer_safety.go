package utils

func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

// HasValue reports whether s is set and non-empty.
func HasValue(s *string) bool {
	return s != nil && *s != ""
}
