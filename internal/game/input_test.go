package game

import "testing"

// TestInputMapButtons verifies each default button reaches its action
func TestInputMapButtons(t *testing.T) {
	tests := []struct {
		button string
		action Action
	}{
		{ButtonArrowLeft, ActionMoveLeft},
		{ButtonDPadLeft, ActionMoveLeft},
		{ButtonArrowRight, ActionMoveRight},
		{ButtonDPadRight, ActionMoveRight},
		{ButtonControlLeft, ActionAccelerate},
		{ButtonRightTrigger, ActionAccelerate},
		{ButtonSpace, ActionEnergy},
		{ButtonWest, ActionEnergy},
	}

	m := DefaultInputMap()
	for _, tt := range tests {
		t.Run(tt.button, func(t *testing.T) {
			s := NewActionState()
			s.Update(m, RawInput{Buttons: []string{tt.button}})
			for _, a := range Actions {
				if got := s.Pressed(a); got != (a == tt.action) {
					t.Errorf("%s pressed = %v", a, got)
				}
			}
			if s.ClampedValue(tt.action) != 1 {
				t.Errorf("button value = %v, want 1", s.ClampedValue(tt.action))
			}
		})
	}
}

// TestInputMapAxis covers the stick deadzone and clamping
func TestInputMapAxis(t *testing.T) {
	tests := []struct {
		name        string
		value       float64
		wantPressed bool
		wantValue   float64
		wantAxis    float64
	}{
		{"rest", 0, false, 0, 0},
		{"inside deadzone", 0.05, false, 0, 0},
		{"deadzone edge", 0.1, false, 0, 0},
		{"below threshold", 0.2, true, 0.2, 0},
		{"right", 0.5, true, 0.5, 1},
		{"left", -0.9, true, -0.9, -1},
		{"clamped", 3, true, 1, 1},
	}

	m := DefaultInputMap()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewActionState()
			s.Update(m, RawInput{Axes: map[string]float64{AxisLeftStickX: tt.value}})
			if got := s.Pressed(ActionMove); got != tt.wantPressed {
				t.Errorf("pressed = %v, want %v", got, tt.wantPressed)
			}
			if got := s.ClampedValue(ActionMove); got != tt.wantValue {
				t.Errorf("value = %v, want %v", got, tt.wantValue)
			}
			if got := s.HorizontalAxis(); got != tt.wantAxis {
				t.Errorf("axis = %v, want %v", got, tt.wantAxis)
			}
		})
	}
}

// TestJustPressed verifies the edge only lasts until the press is seen again or the tick ends
func TestJustPressed(t *testing.T) {
	m := DefaultInputMap()
	s := NewActionState()
	space := RawInput{Buttons: []string{ButtonSpace}}

	s.Update(m, space)
	if !s.JustPressed(ActionEnergy) {
		t.Fatal("first press should be just pressed")
	}
	s.Update(m, space)
	if s.JustPressed(ActionEnergy) || !s.Pressed(ActionEnergy) {
		t.Error("held press should be pressed but not just pressed")
	}

	s.Update(m, RawInput{})
	s.Set(ActionEnergy, true, 1)
	s.Tick()
	if s.JustPressed(ActionEnergy) {
		t.Error("Tick should clear just pressed")
	}
	if !s.Pressed(ActionEnergy) {
		t.Error("Tick must not release the action")
	}

	s.Reset()
	if s.Pressed(ActionEnergy) {
		t.Error("Reset should release everything")
	}
}

// TestRawInputMerge checks union semantics for latched presses
func TestRawInputMerge(t *testing.T) {
	a := RawInput{Buttons: []string{ButtonSpace, ButtonArrowLeft}, Axes: map[string]float64{AxisLeftStickX: 0.2}}
	b := RawInput{Buttons: []string{ButtonArrowLeft, ButtonWest}, Axes: map[string]float64{AxisLeftStickX: -0.7}}

	got := a.Merge(b)
	if len(got.Buttons) != 3 {
		t.Errorf("buttons = %v, want 3 unique", got.Buttons)
	}
	for _, want := range []string{ButtonSpace, ButtonArrowLeft, ButtonWest} {
		if !got.Held(want) {
			t.Errorf("missing %s", want)
		}
	}
	if got.Axes[AxisLeftStickX] != -0.7 {
		t.Errorf("axis = %v, later poll should win", got.Axes[AxisLeftStickX])
	}
}

// TestUnknownActionIsInert guards the array bounds
func TestUnknownActionIsInert(t *testing.T) {
	s := NewActionState()
	s.Set(Action(200), true, 1)
	if s.Pressed(Action(200)) || s.JustPressed(Action(200)) || s.ClampedValue(Action(200)) != 0 {
		t.Error("unknown action should never report state")
	}
	if Action(200).String() != "unknown" {
		t.Errorf("String = %q", Action(200).String())
	}
}
