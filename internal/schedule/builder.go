package schedule

// Builder accumulates per-node primitive lists during compilation, one open
// time slice per node, and flushes them into an immutable Set at the end.
type Builder struct {
	slices map[string][]TimeSlice
	order  []string
}

// NewBuilder returns an empty schedule builder.
func NewBuilder() *Builder {
	return &Builder{slices: map[string][]TimeSlice{}}
}

// Ensure creates an empty open slice for node if it has none yet.
func (b *Builder) Ensure(node string) {
	if _, ok := b.slices[node]; ok {
		return
	}
	b.slices[node] = []TimeSlice{{}}
	b.order = append(b.order, node)
}

// Append adds primitives to node's currently open time slice.
func (b *Builder) Append(node string, prims ...Primitive) {
	b.Ensure(node)
	last := len(b.slices[node]) - 1
	b.slices[node][last] = append(b.slices[node][last], prims...)
}

// CloseSlice ends node's open slice and opens a fresh one. Closing an empty
// slice is a no-op, so repeated closes never produce empty slices.
func (b *Builder) CloseSlice(node string) {
	b.Ensure(node)
	last := len(b.slices[node]) - 1
	if len(b.slices[node][last]) == 0 {
		return
	}
	b.slices[node] = append(b.slices[node], TimeSlice{})
}

// Build returns the finished schedule set, dropping any trailing open slice
// that never received a primitive. The builder must not be reused afterwards.
func (b *Builder) Build() Set {
	set := make(Set, len(b.slices))
	for _, node := range b.order {
		slices := b.slices[node]
		for len(slices) > 0 && len(slices[len(slices)-1]) == 0 {
			slices = slices[:len(slices)-1]
		}
		if len(slices) == 0 {
			continue
		}
		set[node] = NodeSchedule(slices)
	}
	return set
}
