package engine

import (
	"ToonForest/internal/logger"
	"ToonForest/internal/renderer"
	"errors"
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"
)

// Controls is the part of the frame renderer input is allowed to change.
type Controls interface {
	SetActiveProgram(name string) error
	Resize(width, height int32) error
}

// State is what commands mutate between ticks.
type State struct {
	Camera   *renderer.Camera
	Controls Controls
}

// Command is one state change produced by an input callback.
type Command interface {
	Apply(s *State) error
}

// RotateCamera carries a pointer delta in pixels.
type RotateCamera struct {
	DX, DY float32
}

func (c RotateCamera) Apply(s *State) error {
	s.Camera.ProcessMouseMovement(c.DX, c.DY)
	return nil
}

// SetCameraOffset sets one axis of the camera offset sliders.
type SetCameraOffset struct {
	Axis  int
	Value float32
}

func (c SetCameraOffset) Apply(s *State) error {
	if c.Axis < 0 || c.Axis > 2 {
		return fmt.Errorf("camera offset axis %d out of range", c.Axis)
	}
	s.Camera.Offset[c.Axis] = c.Value
	return nil
}

// NudgeCameraOffset moves one axis of the camera offset by Delta.
type NudgeCameraOffset struct {
	Axis  int
	Delta float32
}

func (c NudgeCameraOffset) Apply(s *State) error {
	if c.Axis < 0 || c.Axis > 2 {
		return fmt.Errorf("camera offset axis %d out of range", c.Axis)
	}
	s.Camera.Offset[c.Axis] += c.Delta
	return nil
}

// SelectProgram switches the stylized shader.
type SelectProgram struct {
	Name string
}

func (c SelectProgram) Apply(s *State) error {
	return s.Controls.SetActiveProgram(c.Name)
}

// ToggleLock gates whether pointer movement turns the camera.
type ToggleLock struct{}

func (ToggleLock) Apply(s *State) error {
	locked := s.Camera.ToggleLock()
	logger.Log.Info("Camera lock toggled", zap.Bool("locked", locked))
	return nil
}

// Resize follows a framebuffer size change.
type Resize struct {
	Width, Height int32
}

func (c Resize) Apply(s *State) error {
	if c.Width <= 0 || c.Height <= 0 {
		return nil
	}
	if err := s.Controls.Resize(c.Width, c.Height); err != nil {
		return err
	}
	s.Camera.SetViewportSize(c.Width, c.Height)
	logger.Log.Info("Display resized", zap.Int32("width", c.Width), zap.Int32("height", c.Height))
	return nil
}

// CommandQueue buffers commands from input callbacks until the next tick.
// Callbacks and ticks both run on the render thread, so it is not locked.
type CommandQueue struct {
	pending []Command
}

func (q *CommandQueue) Push(c Command) {
	q.pending = append(q.pending, c)
}

func (q *CommandQueue) Len() int {
	return len(q.pending)
}

// Drain applies every queued command in order and empties the queue. A failing
// command does not stop the ones after it.
func (q *CommandQueue) Drain(s *State) error {
	var errs []error
	for _, c := range q.pending {
		if err := c.Apply(s); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", c, err))
		}
	}
	clear(q.pending)
	q.pending = q.pending[:0]
	return errors.Join(errs...)
}

// resetOffset sets every offset slider back to offset.
func resetOffset(offset [3]float32) []Command {
	cmds := make([]Command, 0, len(offset))
	for axis, v := range offset {
		cmds = append(cmds, SetCameraOffset{Axis: axis, Value: v})
	}
	return cmds
}

// commandForKey maps a key press to a command. Number keys pick from selector.
func commandForKey(key glfw.Key, selector []string, step float32) (Command, bool) {
	switch key {
	case glfw.KeyLeftControl, glfw.KeyRightControl:
		return ToggleLock{}, true
	case glfw.Key1, glfw.Key2, glfw.Key3, glfw.Key4, glfw.Key5, glfw.Key6, glfw.Key7, glfw.Key8, glfw.Key9:
		i := int(key - glfw.Key1)
		if i >= len(selector) {
			return nil, false
		}
		return SelectProgram{Name: selector[i]}, true
	case glfw.KeyLeft:
		return NudgeCameraOffset{Axis: 0, Delta: -step}, true
	case glfw.KeyRight:
		return NudgeCameraOffset{Axis: 0, Delta: step}, true
	case glfw.KeyPageUp:
		return NudgeCameraOffset{Axis: 1, Delta: step}, true
	case glfw.KeyPageDown:
		return NudgeCameraOffset{Axis: 1, Delta: -step}, true
	case glfw.KeyUp:
		return NudgeCameraOffset{Axis: 2, Delta: -step}, true
	case glfw.KeyDown:
		return NudgeCameraOffset{Axis: 2, Delta: step}, true
	}
	return nil, false
}
