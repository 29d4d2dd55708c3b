// Package nav tracks which screen is showing, the stack of screens beneath
// it, and where the cursor may rest.
package nav

import "fmt"

// Screen identifies one of the interactive screens.
type Screen int

const (
	Home Screen = iota
	Review
	Restore
	Help
)

func (s Screen) String() string {
	switch s {
	case Home:
		return "HOME"
	case Review:
		return "REVIEW"
	case Restore:
		return "RESTORE"
	case Help:
		return "HELP"
	}
	return fmt.Sprintf("Screen(%d)", int(s))
}

// Frame is the state of one screen on the stack.
type Frame struct {
	Screen Screen
	Cursor int
	Scroll int
}

// Controller is a stack of frames. The bottom frame is always HOME.
type Controller struct {
	stack []Frame
}

// New starts at HOME.
func New() *Controller {
	return &Controller{stack: []Frame{{Screen: Home}}}
}

// Current returns the top frame; callers may move its cursor and scroll.
func (c *Controller) Current() *Frame { return &c.stack[len(c.stack)-1] }

// IsCurrent reports whether s is on top.
func (c *Controller) IsCurrent(s Screen) bool { return c.Current().Screen == s }

// Depth is the number of frames, 1 at HOME.
func (c *Controller) Depth() int { return len(c.stack) }

// Push enters s with cursor and scroll at 0. The frame below keeps its own
// cursor and scroll for when s is popped.
func (c *Controller) Push(s Screen) {
	c.stack = append(c.stack, Frame{Screen: s})
}

// Pop returns to the screen beneath and the cursor it had, which the caller
// resyncs its row list to. Popping HOME is refused.
func (c *Controller) Pop() (cursor int, ok bool) {
	if len(c.stack) <= 1 {
		return c.Current().Cursor, false
	}
	c.stack = c.stack[:len(c.stack)-1]
	return c.Current().Cursor, true
}

// Quit handles the quit key: it pops any screen above HOME and reports
// true only when the session should end.
func (c *Controller) Quit() bool {
	_, popped := c.Pop()
	return !popped
}

// Reset drops every frame above HOME and homes the cursor.
func (c *Controller) Reset() {
	c.stack = []Frame{{Screen: Home}}
}

// Move applies Skip to the current frame: the frame's cursor is the last
// stable position, requested the desired one.
func (c *Controller) Move(requested, n int, selectable func(int) bool) int {
	f := c.Current()
	f.Cursor = Skip(n, selectable, f.Cursor, requested)
	return f.Cursor
}

// Skip finds where the cursor should rest among n rows. Travel direction
// is forward when requested >= last, backward otherwise. The cursor steps
// over rows that are not selectable; running off either end reverses the
// direction once. The result is always within [0, n).
func Skip(n int, selectable func(int) bool, last, requested int) int {
	if n <= 0 {
		return 0
	}
	dir := 1
	if requested < last {
		dir = -1
	}
	pos := clamp(requested, n)
	reversed := false
	for !selectable(pos) {
		next := pos + dir
		if next < 0 || next >= n {
			if reversed {
				break
			}
			reversed = true
			dir = -dir
			continue
		}
		pos = next
	}
	return pos
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// ClampScroll keeps cursor visible in a viewport of height rows over n rows.
func ClampScroll(scroll, cursor, height, n int) int {
	if height <= 0 {
		return 0
	}
	if cursor < scroll {
		scroll = cursor
	}
	if cursor >= scroll+height {
		scroll = cursor - height + 1
	}
	if maxScroll := n - height; scroll > maxScroll {
		scroll = maxScroll
	}
	if scroll < 0 {
		scroll = 0
	}
	return scroll
}
