package game

import (
	"math"
	"sort"
)

// Action is a logical player action, independent of any device
type Action uint8

const (
	ActionMove       Action = iota // Continuous horizontal axis
	ActionMoveLeft                 // Discrete left
	ActionMoveRight                // Discrete right
	ActionAccelerate               // Held for the faster paddle speed
	ActionEnergy                   // Edge-triggered energy wave
	actionCount
)

// Actions lists every action in declaration order
var Actions = [...]Action{ActionMove, ActionMoveLeft, ActionMoveRight, ActionAccelerate, ActionEnergy}

// String returns the action name used on the wire
func (a Action) String() string {
	switch a {
	case ActionMove:
		return "move"
	case ActionMoveLeft:
		return "move_left"
	case ActionMoveRight:
		return "move_right"
	case ActionAccelerate:
		return "accelerate"
	case ActionEnergy:
		return "energy"
	default:
		return "unknown"
	}
}

// Device button and axis names understood by the default map
const (
	ButtonArrowLeft    = "ArrowLeft"
	ButtonArrowRight   = "ArrowRight"
	ButtonControlLeft  = "ControlLeft"
	ButtonSpace        = "Space"
	ButtonDPadLeft     = "DPadLeft"
	ButtonDPadRight    = "DPadRight"
	ButtonRightTrigger = "RightTrigger"
	ButtonWest         = "West"
	AxisLeftStickX     = "LeftStickX"
)

// RawInput is one poll of the input devices: the held buttons and the axis values
type RawInput struct {
	Buttons []string           `json:"buttons" msgpack:"buttons"`
	Axes    map[string]float64 `json:"axes" msgpack:"axes"`
}

// Held reports whether button is in the held set
func (r RawInput) Held(button string) bool {
	for _, b := range r.Buttons {
		if b == button {
			return true
		}
	}
	return false
}

// Merge returns the union of both polls. Axis values from other win.
func (r RawInput) Merge(other RawInput) RawInput {
	out := RawInput{Axes: make(map[string]float64, len(r.Axes)+len(other.Axes))}
	seen := make(map[string]bool, len(r.Buttons)+len(other.Buttons))
	for _, list := range [][]string{r.Buttons, other.Buttons} {
		for _, b := range list {
			if !seen[b] {
				seen[b] = true
				out.Buttons = append(out.Buttons, b)
			}
		}
	}
	for k, v := range r.Axes {
		out.Axes[k] = v
	}
	for k, v := range other.Axes {
		out.Axes[k] = v
	}
	return out
}

// axisBinding binds a symmetric axis with a deadzone to an action
type axisBinding struct {
	axis     string
	deadzone float64
}

// InputMap converts device input into action state
type InputMap struct {
	buttons map[string][]Action
	axes    map[Action][]axisBinding
}

// NewInputMap creates an empty map
func NewInputMap() *InputMap {
	return &InputMap{
		buttons: make(map[string][]Action),
		axes:    make(map[Action][]axisBinding),
	}
}

// DefaultInputMap binds the keyboard arrows, left control and space, plus the
// gamepad d-pad, right trigger, west button and left stick.
func DefaultInputMap() *InputMap {
	m := NewInputMap()

	m.BindButton(ButtonArrowLeft, ActionMoveLeft)
	m.BindButton(ButtonDPadLeft, ActionMoveLeft)
	m.BindAxis(AxisLeftStickX, AxisDeadzone, ActionMove)

	m.BindButton(ButtonArrowRight, ActionMoveRight)
	m.BindButton(ButtonDPadRight, ActionMoveRight)

	m.BindButton(ButtonControlLeft, ActionAccelerate)
	m.BindButton(ButtonRightTrigger, ActionAccelerate)

	m.BindButton(ButtonSpace, ActionEnergy)
	m.BindButton(ButtonWest, ActionEnergy)

	return m
}

// BindButton adds a button binding
func (m *InputMap) BindButton(button string, action Action) {
	m.buttons[button] = append(m.buttons[button], action)
}

// BindAxis adds a symmetric axis binding. Values within deadzone of zero do not press the action.
func (m *InputMap) BindAxis(axis string, deadzone float64, action Action) {
	m.axes[action] = append(m.axes[action], axisBinding{axis: axis, deadzone: deadzone})
}

// Buttons returns every bound button name, sorted
func (m *InputMap) Buttons() []string {
	names := make([]string, 0, len(m.buttons))
	for b := range m.buttons {
		names = append(names, b)
	}
	sort.Strings(names)
	return names
}

type actionData struct {
	pressed     bool
	justPressed bool
	value       float64
}

// ActionState holds the per-tick state of every action
type ActionState struct {
	actions [actionCount]actionData
}

// NewActionState creates a state with nothing pressed
func NewActionState() *ActionState {
	return &ActionState{}
}

// Update recomputes every action from a device poll
func (s *ActionState) Update(m *InputMap, raw RawInput) {
	var pressed [actionCount]bool
	var value [actionCount]float64

	for _, b := range raw.Buttons {
		for _, a := range m.buttons[b] {
			pressed[a] = true
			value[a] = 1
		}
	}

	for a, bindings := range m.axes {
		for _, bind := range bindings {
			v, ok := raw.Axes[bind.axis]
			if !ok || math.IsNaN(v) {
				continue
			}
			v = clampUnit(v)
			if math.Abs(v) <= bind.deadzone {
				continue
			}
			if !pressed[a] || math.Abs(v) > math.Abs(value[a]) {
				value[a] = v
			}
			pressed[a] = true
		}
	}

	for _, a := range Actions {
		s.Set(a, pressed[a], value[a])
	}
}

// Set drives one action directly. A false-to-true transition marks it just pressed.
func (s *ActionState) Set(a Action, pressed bool, value float64) {
	if a >= actionCount {
		return
	}
	d := &s.actions[a]
	d.justPressed = pressed && !d.pressed
	d.pressed = pressed
	if pressed {
		d.value = clampUnit(value)
	} else {
		d.value = 0
	}
}

// Tick ends the frame: just-pressed flags only last one tick
func (s *ActionState) Tick() {
	for i := range s.actions {
		s.actions[i].justPressed = false
	}
}

// Reset releases every action
func (s *ActionState) Reset() {
	s.actions = [actionCount]actionData{}
}

// Pressed reports whether the action is held
func (s *ActionState) Pressed(a Action) bool {
	return a < actionCount && s.actions[a].pressed
}

// JustPressed reports whether the action went down this tick
func (s *ActionState) JustPressed(a Action) bool {
	return a < actionCount && s.actions[a].justPressed
}

// ClampedValue returns the action value in [-1, 1]
func (s *ActionState) ClampedValue(a Action) float64 {
	if a >= actionCount {
		return 0
	}
	return s.actions[a].value
}

// HorizontalAxis resolves the movement direction: left beats right beats the stick
func (s *ActionState) HorizontalAxis() float64 {
	switch {
	case s.Pressed(ActionMoveLeft):
		return -1
	case s.Pressed(ActionMoveRight):
		return 1
	case s.Pressed(ActionMove):
		v := s.ClampedValue(ActionMove)
		if v > GamepadAxisThreshold {
			return 1
		}
		if v < -GamepadAxisThreshold {
			return -1
		}
		return 0
	default:
		return 0
	}
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}
