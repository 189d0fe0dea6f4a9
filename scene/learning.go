package scene

import (
	"log/slog"
	"time"

	"github.com/mrdg/pluck/audio"
)

// Songs are the melodies the trainer teaches.
var Songs = [4]string{
	"CECEG GGCECED DDCEGEDDE CEGEDDC",
	"GGE GGE GGAGG F FFD FFD FFGFF E",
	"CDEFG G A A G  A A G  FFFFE E D D G  FFFFE E D D C",
	"GEEEGEEEGGAGGFF FDDDFDDDFFGFFEE",
}

// songIntros announce which song was picked.
var songIntros = [len(Songs)]string{
	"CCC      ",
	"DDD      ",
	"EEE      ",
	"FFF      ",
}

// Learning plays a song and then lights its notes one by one, waiting for
// the player to hit each of them. The activation argument is the song index.
type Learning struct {
	env      *Env
	keyboard *Keyboard

	song      int
	next      int
	idleSince time.Time
}

func NewLearning(env *Env, k *Keyboard) *Learning {
	return &Learning{env: env, keyboard: k}
}

// Song returns the index of the song being taught.
func (l *Learning) Song() int { return l.song }

// Prompt returns the key the player is expected to hit next.
func (l *Learning) Prompt() int { return NoteID(Songs[l.song][l.next]) }

func (l *Learning) Activate(arg any) {
	song, ok := arg.(int)
	if !ok || song < 0 || song >= len(Songs) {
		slog.Warn("scene: no such song, using the first", "song", arg)
		song = 0
	}
	l.song = song
	slog.Info("scene: learning activated", "song", song)

	l.env.Play(songIntros[song], 2)
	l.idleSince = l.env.now()
}

func (l *Learning) Top() {
	slog.Info("scene: learning on top, playing song", "song", l.song)
	l.env.Play(Songs[l.song], 1)
	l.next = -1
	l.advance()
}

func (l *Learning) Deactivate() {
	l.env.Lights.Note(-1)
}

// advance moves the prompt to the next note of the song, wrapping around and
// skipping rests.
func (l *Learning) advance() {
	song := Songs[l.song]
	for {
		l.next = (l.next + 1) % len(song)
		if NoteID(song[l.next]) >= 0 {
			break
		}
	}
	slog.Debug("scene: prompting", "note", string(song[l.next]))
	l.env.Lights.Note(l.Prompt())
}

func (l *Learning) Idle(nav *Nav, depth int) time.Duration {
	now := l.env.now()
	if depth > 0 {
		l.idleSince = now
		return MaxIdle
	}
	if now.Sub(l.idleSince) > l.keyboard.IdleTimeout {
		l.idleSince = l.idleSince.Add(l.keyboard.IdleRepeat)
		l.env.Keys.KeyPress(l.Prompt())
	}
	return MaxIdle
}

func (l *Learning) KeyPressed(nav *Nav, key int) bool {
	l.idleSince = l.env.now()
	switch {
	case key >= 0 && key < audio.NumNotes:
		l.env.Keys.KeyPress(key)
		if key == l.Prompt() {
			l.advance()
		}
	case key >= KeySong0 && key < KeySong0+len(Songs):
		if song := key - KeySong0; song == l.song {
			nav.Pop()
		} else {
			nav.Replace(l, song)
		}
	default:
		return false
	}
	return true
}

func (l *Learning) KeyReleased(nav *Nav, key int) bool {
	if key >= 0 && key < audio.NumNotes {
		l.env.Keys.KeyRelease(key)
		return true
	}
	return false
}
