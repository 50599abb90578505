package game

import (
	"crash-ball/internal/geom"
	"crash-ball/internal/physics"
)

// EnergyWave is an expanding ring centered on the player
type EnergyWave struct {
	Scale float64 // 1 at fire time; radius is PlayerRadius * Scale
}

// Radius returns the current effective radius
func (e EnergyWave) Radius() float64 {
	return PlayerRadius * e.Scale
}

// Expired reports whether the wave grew past the expiry scale
func (e EnergyWave) Expired() bool {
	return e.Scale > EnergyScaleThreshold+waveExpiryEpsilon
}

// SpawnPlayer creates the paddle at the bottom middle of the arena. Calling it
// again is a no-op.
func (w *World) SpawnPlayer() EntityID {
	if w.player != 0 {
		return w.player
	}
	id := w.newEntity()
	w.Bodies.Set(id, &physics.Body{
		ID:           physics.BodyID(id),
		Kind:         physics.KinematicPositionBased,
		Shape:        physics.Circle(PlayerRadius),
		Position:     w.Arena.BottomMiddle(),
		Restitution:  physics.Coefficient{Value: 1, Rule: physics.CombineMin},
		Friction:     physics.Coefficient{Value: PlayerFriction, Rule: physics.CombineMax},
		LockRotation: true,
	})
	w.player = id
	return id
}

// Player returns the paddle body, or false before SpawnPlayer
func (w *World) Player() (EntityID, *physics.Body, bool) {
	if w.player == 0 {
		return 0, nil, false
	}
	body, ok := w.Bodies.Get(w.player)
	return w.player, body, ok
}

// PlayerBounds returns the range the paddle center may occupy
func (w *World) PlayerBounds() (lo, hi float64) {
	return w.Arena.Left() + CornerRadius + PlayerRadius,
		w.Arena.Right() - CornerRadius - PlayerRadius
}

// MovePlayer applies the horizontal input to the paddle and clamps it
// between the bottom corners. The paddle never leaves the bottom edge.
func (w *World) MovePlayer() {
	_, body, ok := w.Player()
	if !ok {
		return
	}

	speed := PlayerBaseSpeed
	if w.Input.Pressed(ActionAccelerate) {
		speed = PlayerAccelerateSpeed
	}

	lo, hi := w.PlayerBounds()
	x := body.Position.X + w.Input.HorizontalAxis()*speed*w.dt
	body.Position = geom.V(geom.Clamp(x, lo, hi), w.Arena.Bottom())
}

// FireEnergy spawns a wave on the rising edge of the energy action
func (w *World) FireEnergy() EntityID {
	_, body, ok := w.Player()
	if !ok || !w.Input.JustPressed(ActionEnergy) {
		return 0
	}

	id := w.newEntity()
	w.Waves.Set(id, EnergyWave{Scale: 1})
	w.stats.WavesFired++

	if w.Hooks.OnWaveFire != nil {
		w.Hooks.OnWaveFire(id, body.Position)
	}
	return id
}

// UpdateEnergy grows every wave and removes the ones past the threshold
func (w *World) UpdateEnergy() {
	growth := w.Config.EnergyGrowthRate * w.dt
	for _, id := range w.Waves.Entities() {
		wave, _ := w.Waves.Get(id)
		wave.Scale += growth
		if wave.Expired() {
			w.Waves.Remove(id)
			w.stats.WavesExpired++
			if w.Hooks.OnWaveExpire != nil {
				w.Hooks.OnWaveExpire(id)
			}
			continue
		}
		w.Waves.Set(id, wave)
	}
}

// EnergyHitBalls energizes every ball touching a live wave and sends it
// radially away from the player at the boosted speed.
func (w *World) EnergyHitBalls() {
	_, player, ok := w.Player()
	if !ok {
		return
	}

	for _, waveID := range w.Waves.Entities() {
		wave, _ := w.Waves.Get(waveID)
		threshold := wave.Radius() + BallRadius

		for _, id := range w.Balls.Entities() {
			body, ok := w.Bodies.Get(id)
			if !ok {
				continue
			}
			offset := body.Position.Sub(player.Position)
			if offset.Length() >= threshold {
				continue
			}

			ball, _ := w.Balls.Get(id)
			first := !ball.Energized
			ball.Energized = true
			w.setBallVelocity(id, body, ball, offset)

			if first {
				w.stats.Energized++
				if w.Hooks.OnEnergize != nil {
					w.Hooks.OnEnergize(id, waveID)
				}
			}
		}
	}
}
