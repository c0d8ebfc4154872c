package stdx

// Must0 panics when err is not nil. Use it for init-time invariants where a
// failure means the program is misconfigured.
func Must0(err error) {
	if err != nil {
		panic(err)
	}
}

// Must1 returns v, or panics with err when it is not nil.
//
//	registry := stdx.Must1(tool.NewRegistry(defs...))
func Must1[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// Must2 is Must1 for functions returning two values and an error.
func Must2[T, V any](t T, v V, err error) (T, V) {
	if err != nil {
		panic(err)
	}
	return t, v
}

// Zero returns the zero value of T.
func Zero[T any]() T {
	var zero T
	return zero
}
