package mathx

// CeilDiv returns the ceiling of a/b.
// If b <= 0 or a <= 0, zero is returned.
func CeilDiv(a, b int64) int64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	// (a-1)/b+1 rather than (a+b-1)/b: the latter overflows for large b.
	return (a-1)/b + 1
}
