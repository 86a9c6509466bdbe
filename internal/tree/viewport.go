package tree

// Viewport is the scroll window over a flat row list. Only rows inside
// [Offset-Overscan, Offset+Height+Overscan) are materialized by renderers.
type Viewport struct {
	Offset   int `json:"offset"`
	Height   int `json:"height"`
	Overscan int `json:"overscan"`
}

// Clamp keeps the offset inside [0, total-Height].
func (v Viewport) Clamp(total int) Viewport {
	if v.Height < 0 {
		v.Height = 0
	}
	if v.Overscan < 0 {
		v.Overscan = 0
	}
	maxOffset := total - v.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if v.Offset > maxOffset {
		v.Offset = maxOffset
	}
	if v.Offset < 0 {
		v.Offset = 0
	}
	return v
}

// Follow scrolls the minimum amount needed to keep cursor on screen.
func (v Viewport) Follow(cursor, total int) Viewport {
	if v.Height > 0 {
		if cursor < v.Offset {
			v.Offset = cursor
		} else if cursor >= v.Offset+v.Height {
			v.Offset = cursor - v.Height + 1
		}
	}
	return v.Clamp(total)
}

// Window returns the half-open index range of rows to render, including
// overscan on both sides.
func (v Viewport) Window(total int) (start, end int) {
	v = v.Clamp(total)
	start = v.Offset - v.Overscan
	if start < 0 {
		start = 0
	}
	end = v.Offset + v.Height + v.Overscan
	if end > total {
		end = total
	}
	if start > end {
		start = end
	}
	return start, end
}

// Slice applies Window to rows.
func (v Viewport) Slice(rows []FlatItem) []FlatItem {
	start, end := v.Window(len(rows))
	return rows[start:end]
}
