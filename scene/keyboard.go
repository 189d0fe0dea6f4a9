package scene

import (
	"log/slog"
	"time"

	"github.com/mrdg/pluck/audio"
)

// Control keys beyond the notes.
const (
	KeySong0    = audio.NumNotes // 13..16 open the trainer with songs 0..3
	KeyFunction = 17
	NumKeys     = 18
)

const (
	DefaultIdleTimeout = 60 * time.Second
	DefaultIdleRepeat  = 30 * time.Second
	DefaultHoldTime    = time.Second
)

const (
	keyboardIntro = "CDEFGAH+"
	keyboardIdle  = "gGgGFC CFAAG F"
)

// Keyboard is the bottom scene: free play on the current instrument. A tap of
// the function key switches instrument, holding it opens the menu. Left alone
// for long enough it plays a tune to attract attention.
type Keyboard struct {
	env      *Env
	learning *Learning
	menu     *Menu

	IdleTimeout time.Duration
	IdleRepeat  time.Duration
	HoldTime    time.Duration

	idleSince time.Time
	fnDown    bool
	fnSince   time.Time
	fnUsed    bool // the current hold already opened the menu
}

func NewKeyboard(env *Env) *Keyboard {
	k := &Keyboard{
		env:         env,
		IdleTimeout: DefaultIdleTimeout,
		IdleRepeat:  DefaultIdleRepeat,
		HoldTime:    DefaultHoldTime,
	}
	k.learning = NewLearning(env, k)
	k.menu = NewMenu(env)
	return k
}

func (k *Keyboard) Learning() *Learning { return k.learning }
func (k *Keyboard) Menu() *Menu         { return k.menu }

func (k *Keyboard) Activate(arg any) {
	slog.Info("scene: keyboard activated")
	k.idleSince = k.env.now()
}

func (k *Keyboard) Top() {
	slog.Info("scene: keyboard on top")
	k.env.Play(keyboardIntro, 4)
	k.env.Lights.Backlight()
}

func (k *Keyboard) Deactivate() {
	k.env.Lights.Reset()
}

func (k *Keyboard) Idle(nav *Nav, depth int) time.Duration {
	now := k.env.now()

	wait := MaxIdle
	if k.fnDown && !k.fnUsed {
		held := now.Sub(k.fnSince)
		if held >= k.HoldTime {
			k.fnUsed = true
			nav.Push(k.menu, nil)
			return MaxIdle
		}
		wait = min(wait, k.HoldTime-held)
	}

	if depth > 0 {
		k.idleSince = now
		return wait
	}
	if now.Sub(k.idleSince) > k.IdleTimeout {
		k.idleSince = k.idleSince.Add(k.IdleRepeat)
		slog.Info("scene: keyboard idle, playing tune")
		k.env.Play(keyboardIdle, 2)
		k.env.Lights.Backlight()
	}
	return wait
}

func (k *Keyboard) KeyPressed(nav *Nav, key int) bool {
	k.idleSince = k.env.now()
	switch {
	case key >= 0 && key < audio.NumNotes:
		k.env.Keys.KeyPress(key)
	case key >= KeySong0 && key < KeySong0+len(Songs):
		nav.Push(k.learning, key-KeySong0)
	case key == KeyFunction:
		k.fnDown = true
		k.fnUsed = false
		k.fnSince = k.env.now()
	default:
		return false
	}
	return true
}

func (k *Keyboard) KeyReleased(nav *Nav, key int) bool {
	switch {
	case key >= 0 && key < audio.NumNotes:
		k.env.Keys.KeyRelease(key)
	case key == KeyFunction:
		if !k.fnDown {
			return true
		}
		k.fnDown = false
		if k.fnUsed {
			return true
		}
		if k.env.now().Sub(k.fnSince) >= k.HoldTime {
			nav.Push(k.menu, nil)
			return true
		}
		name := k.env.Instruments.Next()
		slog.Info("scene: switched instrument", "instrument", name)
		k.env.Keys.Press(0)
	default:
		return false
	}
	return true
}
