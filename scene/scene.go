// Package scene implements the interactive modes of the keyboard as a stack
// of scenes. Key events are offered to the scenes from the top of the stack
// down until one of them handles it.
package scene

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Scene is one interactive mode.
type Scene interface {
	// Activate is called when the scene is pushed, with the push argument.
	Activate(arg any)
	// Top is called whenever the scene becomes the top of the stack.
	Top()
	Deactivate()
	// Idle is called periodically; depth is 0 for the top scene. It returns
	// how long the caller may sleep before the next call.
	Idle(nav *Nav, depth int) time.Duration
	KeyPressed(nav *Nav, key int) bool
	KeyReleased(nav *Nav, key int) bool
}

// MaxIdle bounds the sleep between two idle rounds.
const MaxIdle = time.Second

// Stack is safe for concurrent use. Scene callbacks run with the stack locked
// and must navigate through the Nav they are given.
type Stack struct {
	mu     sync.Mutex
	scenes []Scene // bottom first
	wake   chan struct{}
}

func NewStack() *Stack {
	return &Stack{wake: make(chan struct{}, 1)}
}

// Nav changes the stack from inside scene callbacks.
type Nav struct {
	s *Stack
}

func (n *Nav) Push(sc Scene, arg any)    { n.s.push(sc, arg) }
func (n *Nav) Pop()                      { n.s.pop() }
func (n *Nav) Replace(sc Scene, arg any) { n.s.replace(sc, arg) }

func (s *Stack) Push(sc Scene, arg any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.push(sc, arg)
}

func (s *Stack) Pop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pop()
}

// Replace pops the top scene and pushes sc in its place.
func (s *Stack) Replace(sc Scene, arg any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(sc, arg)
}

func (s *Stack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scenes)
}

// Top returns the top scene, or nil for an empty stack.
func (s *Stack) Top() Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.scenes) == 0 {
		return nil
	}
	return s.scenes[len(s.scenes)-1]
}

// KeyPressed reports whether any scene handled the key.
func (s *Stack) KeyPressed(key int) bool {
	defer s.notify()
	s.mu.Lock()
	defer s.mu.Unlock()
	nav := &Nav{s}
	for _, sc := range s.topDown() {
		if sc.KeyPressed(nav, key) {
			return true
		}
	}
	slog.Debug("scene: unhandled key press", "key", key)
	return false
}

func (s *Stack) KeyReleased(key int) bool {
	defer s.notify()
	s.mu.Lock()
	defer s.mu.Unlock()
	nav := &Nav{s}
	for _, sc := range s.topDown() {
		if sc.KeyReleased(nav, key) {
			return true
		}
	}
	return false
}

// Idle runs one idle round over all scenes and returns the shortest sleep
// any of them asked for, capped at limit.
func (s *Stack) Idle(limit time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	nav := &Nav{s}
	for depth, sc := range s.topDown() {
		limit = min(limit, sc.Idle(nav, depth))
	}
	return limit
}

// Run drives the idle rounds until ctx is done. Key events cut the sleep
// short.
func (s *Stack) Run(ctx context.Context) error {
	for {
		t := time.NewTimer(s.Idle(MaxIdle))
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-s.wake:
			t.Stop()
		case <-t.C:
		}
	}
}

func (s *Stack) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// topDown returns a snapshot of the stack, top first, so that callbacks can
// navigate while the caller iterates.
func (s *Stack) topDown() []Scene {
	scenes := slices.Clone(s.scenes)
	slices.Reverse(scenes)
	return scenes
}

func (s *Stack) push(sc Scene, arg any) {
	s.scenes = append(s.scenes, sc)
	sc.Activate(arg)
	sc.Top()
}

func (s *Stack) pop() {
	if n := len(s.scenes); n > 0 {
		s.scenes[n-1].Deactivate()
		s.scenes = s.scenes[:n-1]
	}
	if n := len(s.scenes); n > 0 {
		s.scenes[n-1].Top()
	}
}

func (s *Stack) replace(sc Scene, arg any) {
	if n := len(s.scenes); n > 0 {
		s.scenes[n-1].Deactivate()
		s.scenes = s.scenes[:n-1]
	}
	s.push(sc, arg)
}
