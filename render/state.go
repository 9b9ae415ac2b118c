// Package render holds the overlay's draw list shared between the command
// channel and the presentation detour.
package render

import (
	"math"
	"sync"
)

// DrawCommand is a filled rectangle in back buffer pixel coordinates. Color
// components are normalized; values outside [0,1] are passed to the graphics
// backend as is.
type DrawCommand struct {
	X, Y, W, H int32
	R, G, B, A float32
}

// Rect returns the command bounds as left, top, right, bottom. Edges past
// the int32 range are clamped.
func (c DrawCommand) Rect() (left, top, right, bottom int32) {
	return c.X, c.Y, clampAdd(c.X, c.W), clampAdd(c.Y, c.H)
}

func clampAdd(a, b int32) int32 {
	s := int64(a) + int64(b)
	switch {
	case s > math.MaxInt32:
		return math.MaxInt32
	case s < math.MinInt32:
		return math.MinInt32
	}
	return int32(s)
}

// State is an ordered list of draw commands. Insertion order is draw order.
// The zero value is ready to use.
type State struct {
	mu   sync.Mutex
	cmds []DrawCommand
}

// NewState returns an empty State.
func NewState() *State {
	return &State{}
}

// Append adds cmd to the end of the list.
func (s *State) Append(cmd DrawCommand) {
	s.mu.Lock()
	s.cmds = append(s.cmds, cmd)
	s.mu.Unlock()
}

// Each calls fn for every command in insertion order while holding the lock.
// fn must not call back into s.
func (s *State) Each(fn func(DrawCommand)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cmds {
		fn(c)
	}
}

// Len returns the number of commands.
func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cmds)
}

// Snapshot returns a copy of the current list.
func (s *State) Snapshot() []DrawCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DrawCommand, len(s.cmds))
	copy(out, s.cmds)
	return out
}
