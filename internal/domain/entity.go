package domain

// Entity is implemented by every value type the overlay resolver layers.
// EntityKey is the stable id shared by a base row and the deltas that
// overlay it; SameContent compares everything except bookkeeping fields.
type Entity[T any] interface {
	EntityKey() string
	SameContent(other T) bool
}
