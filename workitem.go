package overbroth

import (
	"image"
	"sync"
)

// Kind selects what evaluating a WorkItem does.
type Kind uint8

const (
	// KindSplit partitions the rectangle into four KindArea children.
	KindSplit Kind = iota

	// KindArea runs the escape-time evaluator over the rectangle.
	KindArea
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSplit:
		return "split"
	case KindArea:
		return "area"
	default:
		return "unknown"
	}
}

// WorkItem is one schedulable unit: a pixel rectangle plus the budget and
// priority it is evaluated at.
//
// Invariants: Rect is non-empty and inside the canvas; 1 <= Cur <= Target;
// 0 <= Priority <= MaxPriority. A WorkItem is owned by the single task that
// evaluates it and is recycled as soon as that evaluation returns. A
// refinement creates a new item for the same rectangle, never reuses one.
type WorkItem struct {
	Rect     image.Rectangle
	Cur      int
	Target   int
	Priority int
	Kind     Kind
}

// IsLeaf reports whether the item is too small to split.
func (it *WorkItem) IsLeaf() bool {
	return IsLeaf(it.Rect)
}

// itemPool recycles WorkItems; a deep render creates millions of them.
var itemPool = sync.Pool{
	New: func() any { return new(WorkItem) },
}

// newWorkItem takes an item from the pool and initializes it.
func newWorkItem(rect image.Rectangle, cur, target, priority int, kind Kind) *WorkItem {
	it := itemPool.Get().(*WorkItem)
	*it = WorkItem{
		Rect:     rect,
		Cur:      cur,
		Target:   target,
		Priority: priority,
		Kind:     kind,
	}
	return it
}

// releaseWorkItem clears it and returns it to the pool.
// If it is nil, this is a no-op.
func releaseWorkItem(it *WorkItem) {
	if it == nil {
		return
	}
	*it = WorkItem{}
	itemPool.Put(it)
}
