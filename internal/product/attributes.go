package product

// Attributes is the canonical attribute map of one input row. It never holds
// an entry whose contributing inputs were all blank.
type Attributes map[SearchField]string

// Get returns the value of f and whether it is present.
func (a Attributes) Get(f SearchField) (string, bool) {
	v, ok := a[f]
	return v, ok
}

// Only reports whether f is the sole attribute present.
func (a Attributes) Only(f SearchField) bool {
	_, ok := a[f]
	return ok && len(a) == 1
}
