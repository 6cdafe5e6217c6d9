package overbroth

import "image"

// IsLeaf reports whether r is too small to split further.
func IsLeaf(r image.Rectangle) bool {
	return r.Dx() < LeafSize || r.Dy() < LeafSize
}

// SplitRect partitions r into four quadrants in the order top-left,
// top-right, bottom-left, bottom-right. On odd sizes the extra row or
// column goes to the lower-coordinate half, so the quadrants cover r
// exactly with no overlap.
func SplitRect(r image.Rectangle) [4]image.Rectangle {
	mx := r.Min.X + (r.Dx()+1)/2
	my := r.Min.Y + (r.Dy()+1)/2
	return [4]image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, mx, my),
		image.Rect(mx, r.Min.Y, r.Max.X, my),
		image.Rect(r.Min.X, my, mx, r.Max.Y),
		image.Rect(mx, my, r.Max.X, r.Max.Y),
	}
}

// evaluate performs one step for it and submits whatever work follows.
//
//   - A leaf is evaluated once at the full target budget.
//   - A split item hands its four quadrants to the scheduler as area items
//     at the same budget and priority.
//   - An area item is evaluated at its budget; if that leaves it
//     Incomplete, one split item for the same rectangle is submitted at the
//     next budget and priority from the policy.
//
// The returned error comes from the scheduler; pixels are always written.
func (r *run) evaluate(it *WorkItem) error {
	switch {
	case it.IsLeaf():
		DoArea(r.canvas, r.vp, it.Rect, it.Target, it.Target)
		return nil

	case it.Kind == KindSplit:
		quads := SplitRect(it.Rect)
		children := make([]*WorkItem, 0, len(quads))
		for _, q := range quads {
			children = append(children, newWorkItem(q, it.Cur, it.Target, it.Priority, KindArea))
		}
		return r.submit(children...)

	default:
		if DoArea(r.canvas, r.vp, it.Rect, it.Cur, it.Target) == Resolved {
			return nil
		}
		cur, priority := r.policy.Next(it.Cur, it.Target, it.Priority)
		r.refinements.Add(1)
		r.log.Debug("block unresolved", "rect", it.Rect, "budget", cur, "priority", priority)
		return r.submit(newWorkItem(it.Rect, cur, it.Target, priority, KindSplit))
	}
}
