package utils

// Value dereferences v, returning the zero value of T for a nil pointer.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

// Override returns *v when v is set, otherwise current.
func Override[T any](current T, v *T) T {
	if v == nil {
		return current
	}
	return *v
}
