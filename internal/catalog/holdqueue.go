// internal/catalog/holdqueue.go
package catalog

import "slices"

// HoldQueue is the FIFO of patron names waiting for an item.
// The zero value is an empty queue.
type HoldQueue struct {
	names []string
}

// Enqueue appends name at the tail and returns its 1-based position.
func (q *HoldQueue) Enqueue(name string) int {
	q.names = append(q.names, name)
	return len(q.names)
}

// Remove deletes the first occurrence of name, keeping the order of the rest.
func (q *HoldQueue) Remove(name string) bool {
	i := slices.Index(q.names, name)
	if i < 0 {
		return false
	}
	q.names = slices.Delete(q.names, i, i+1)
	return true
}

// Position returns the 1-based rank of name, or -1 if it is not queued.
func (q HoldQueue) Position(name string) int {
	i := slices.Index(q.names, name)
	if i < 0 {
		return -1
	}
	return i + 1
}

// Contains reports whether name is queued.
func (q HoldQueue) Contains(name string) bool {
	return slices.Contains(q.names, name)
}

// Len returns the number of queued holds.
func (q HoldQueue) Len() int {
	return len(q.names)
}

// Names returns a copy of the queue, head first.
func (q HoldQueue) Names() []string {
	return slices.Clone(q.names)
}

// Clone returns an independent copy.
func (q HoldQueue) Clone() HoldQueue {
	return HoldQueue{names: slices.Clone(q.names)}
}
