package permission

// Mask64 is a capability bitmask holding up to 64 registered permissions.
type Mask64 uint64

// Has reports whether bit is set.
func (m Mask64) Has(bit int) bool {
	if bit < 0 || bit >= MaxBits {
		return false
	}
	return (m & (1 << bit)) != 0
}

// Set turns bit on.
func (m *Mask64) Set(bit int) {
	if bit < 0 || bit >= MaxBits {
		return
	}
	*m |= (1 << bit)
}

// Clear turns bit off.
func (m *Mask64) Clear(bit int) {
	if bit < 0 || bit >= MaxBits {
		return
	}
	*m &^= (1 << bit)
}

// Raw returns the underlying integer.
func (m Mask64) Raw() uint64 {
	return uint64(m)
}
