package scene

import (
	"log/slog"
	"math"
	"time"

	"github.com/mrdg/pluck/audio"
	"github.com/mrdg/pluck/led"
)

// Menu keys. Keys 0 to 3 toggle the instruments of the selection ring.
const (
	KeyVolumeDown = 5
	KeyVolumeUp   = 7
	KeySave       = 11
	KeyCancel     = 12

	NumToggles = 4
	VolumeStep = 0.1
)

// SettingVolume is the registry key of the persisted volume, in percent.
const SettingVolume = "volume"

const (
	menuIntro  = "+HA GAH"
	menuSave   = "H+  "
	menuCancel = "AE  "
)

// Menu edits the settings. Changes apply immediately; the save key persists
// them and the cancel key restores the saved state. Keys the menu does not
// use fall through to the scenes below.
type Menu struct {
	env *Env
}

func NewMenu(env *Env) *Menu {
	return &Menu{env: env}
}

func (m *Menu) Activate(arg any) {
	slog.Info("scene: menu activated")
}

func (m *Menu) Top() {
	slog.Info("scene: menu on top")
	m.env.Play(menuIntro, 2)
	m.show()
}

func (m *Menu) Deactivate() {
	m.env.Lights.Reset()
}

func (m *Menu) Idle(nav *Nav, depth int) time.Duration {
	return MaxIdle
}

// Frame shows the enabled instruments on the first pixels and the save and
// cancel keys in green and red.
func (m *Menu) Frame() led.Frame {
	var f led.Frame
	for i := 0; i < NumToggles; i++ {
		if m.env.Settings.Int(audio.FlagName(i), 1) != 0 {
			f[i] = led.White
		}
	}
	f[6] = led.Green
	f[7] = led.Red
	return f
}

func (m *Menu) show() {
	m.env.Lights.Set(m.Frame())
}

func (m *Menu) KeyPressed(nav *Nav, key int) bool {
	switch key {
	case 0, 1, 2, 3:
		name := audio.FlagName(key)
		v := 1
		if m.env.Settings.Int(name, 1) != 0 {
			v = 0
		}
		m.env.Settings.SetInt(name, v)
		slog.Info("scene: toggled instrument", "flag", name, "enabled", v)
		m.env.Keys.Press(key)
		m.show()
	case KeyVolumeDown:
		m.changeVolume(-VolumeStep)
		m.env.Keys.Press(key)
	case KeyVolumeUp:
		m.changeVolume(VolumeStep)
		m.env.Keys.Press(key)
	case KeySave:
		m.env.Settings.SetInt(SettingVolume, int(math.Round(m.env.Props.Float(audio.PropVolume)*100)))
		if err := m.env.Settings.Save(); err != nil {
			slog.Error("scene: save settings", "err", err)
		}
		m.env.Play(menuSave, 2)
		nav.Pop()
	case KeyCancel:
		if err := m.env.Settings.Reload(); err != nil {
			slog.Error("scene: reload settings", "err", err)
		}
		RestoreVolume(m.env.Settings, m.env.Props)
		m.env.Play(menuCancel, 2)
		nav.Pop()
	default:
		return false
	}
	return true
}

func (m *Menu) KeyReleased(nav *Nav, key int) bool {
	return false
}

func (m *Menu) changeVolume(delta float64) {
	v := m.env.Props.Float(audio.PropVolume) + delta
	v = math.Round(max(0, min(v, 1))*100) / 100
	if err := m.env.Props.Set(audio.PropVolume, v); err != nil {
		slog.Warn("scene: set volume", "err", err)
		return
	}
	slog.Info("scene: volume changed", "volume", v)
}

// RestoreVolume applies the persisted volume to the live properties.
func RestoreVolume(settings Settings, props Props) {
	pct := settings.Int(SettingVolume, 100)
	if err := props.Set(audio.PropVolume, float64(pct)/100); err != nil {
		slog.Warn("scene: restore volume", "volume", pct, "err", err)
	}
}
