package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/mrdg/pluck/audio"
	"github.com/mrdg/pluck/led"
	"github.com/mrdg/pluck/registry"
	"github.com/mrdg/pluck/scene"
)

func newTestEnv(t *testing.T) *replEnv {
	t.Helper()
	settings, err := registry.Open(filepath.Join(t.TempDir(), "settings.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	sel := audio.NewSelector(settings,
		audio.Slot{Name: "piano1", Instrument: audio.NewTonal(audio.Low)},
		audio.Slot{Name: "harp", Instrument: audio.NewTonal(audio.Harp)},
	)
	props := audio.NewProps()
	player := audio.NewPlayer(sel, audio.NewWavSink(filepath.Join(t.TempDir(), "out.wav")), props)
	env := &scene.Env{
		Keys:        player,
		Instruments: sel,
		Settings:    settings,
		Props:       props,
		Lights:      led.NewDisplay(nil),
		Sleep:       func(time.Duration) {},
	}
	stack := scene.NewStack()
	stack.Push(scene.NewKeyboard(env), nil)
	return &replEnv{
		player:   player,
		sel:      sel,
		props:    props,
		settings: settings,
		stack:    stack,
		env:      env,
		out:      &bytes.Buffer{},
	}
}

func TestEval(t *testing.T) {
	e := newTestEnv(t)
	out := e.out.(*bytes.Buffer)

	for _, line := range []string{
		"volume 0.5",
		"select harp",
		"set instr.0 0; next",
		"tap 3; down 4; up 4",
		`tune "CDE F" 2`,
		"feedback 2 0.4",
	} {
		if err := e.evalLine(line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}
	if want, got := 0.5, e.props.Float(audio.PropVolume); want != got {
		t.Errorf("volume: want %v, got %v", want, got)
	}
	if want, got := "harp", e.sel.CurrentName(); want != got {
		t.Errorf("with piano1 disabled next should stay on harp, got %v", got)
	}
	if want, got := "harp\n", out.String(); want != got {
		t.Errorf("output: want %q, got %q", want, got)
	}

	out.Reset()
	if err := e.evalLine("volume"); err != nil {
		t.Fatal(err)
	}
	if want, got := "0.5\n", out.String(); want != got {
		t.Errorf("want %q, got %q", want, got)
	}
}

func TestEvalErrors(t *testing.T) {
	e := newTestEnv(t)
	for _, line := range []string{
		"bogus",
		"down",
		"down 40",
		"down x",
		"volume 2",
		"volume 0.1 0.2",
		"select banjo",
		"feedback 3 1.5",
		`tune "CXD" 1`,
		`tune "CD" 0`,
	} {
		if err := e.evalLine(line); err == nil {
			t.Errorf("expected error for %q", line)
		}
	}
}

func TestSuggest(t *testing.T) {
	names := []string{"volume", "select", "save", "help"}
	for _, tc := range []struct {
		input string
		want  string
	}{
		{"volme", "volume"},
		{"selct", "select"},
		{"zzz", ""},
	} {
		if got := suggest(tc.input, names); got != tc.want {
			t.Errorf("%s: want %q, got %q", tc.input, tc.want, got)
		}
	}

	e := newTestEnv(t)
	err := e.evalLine("select harpp")
	if err == nil || !strings.Contains(err.Error(), "did you mean harp?") {
		t.Errorf("want a suggestion for harpp, got %v", err)
	}
}

func TestStartsOnPiano2(t *testing.T) {
	settings, err := registry.Open("")
	if err != nil {
		t.Fatal(err)
	}
	sampler := audio.NewSampler(audio.SoundEffectPaths(t.TempDir()))
	defer sampler.Close()

	sel := newSelector(settings, sampler)
	if want, got := "piano2", sel.CurrentName(); want != got {
		t.Errorf("start instrument: want %v, got %v", want, got)
	}
	if want, got := "extras", sel.Next(); want != got {
		t.Errorf("next: want %v, got %v", want, got)
	}
	if want, got := []string{"piano1", "piano2", "extras", "harp"}, sel.Names(); !reflect.DeepEqual(want, got) {
		t.Errorf("ring: want %v, got %v", want, got)
	}
}

func TestWaitStopsOnCancel(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	e.ctx = ctx

	if err := e.evalLine("wait 0.01"); err != nil {
		t.Fatalf("short wait: %v", err)
	}

	cancel()
	start := time.Now()
	err := e.evalLine("wait 60")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("want a canceled wait, got %v", err)
	}
	if d := time.Since(start); d > 5*time.Second {
		t.Errorf("wait ignored the cancellation for %v", d)
	}
}

func TestSetVolume(t *testing.T) {
	e := newTestEnv(t)
	if err := e.evalLine("set volume 25; save"); err != nil {
		t.Fatal(err)
	}
	if want, got := 0.25, e.props.Float(audio.PropVolume); want != got {
		t.Errorf("want %v, got %v", want, got)
	}
	out := e.out.(*bytes.Buffer)
	if err := e.evalLine("get volume"); err != nil {
		t.Fatal(err)
	}
	if want, got := "25\n", out.String(); want != got {
		t.Errorf("want %q, got %q", want, got)
	}
}

func TestHelpListsAllCommands(t *testing.T) {
	e := newTestEnv(t)
	if err := e.evalLine("help"); err != nil {
		t.Fatal(err)
	}
	help := e.out.(*bytes.Buffer).String()
	for _, cmd := range commands {
		if !strings.Contains(help, cmd.name) {
			t.Errorf("help is missing %s", cmd.name)
		}
	}
}

func TestReadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script")
	data := "# warm up\nselect harp\n\n  tune \"CDE\" 1  \n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	lines, err := readScript(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"select harp", `tune "CDE" 1`}; !reflect.DeepEqual(want, lines) {
		t.Errorf("want %q, got %q", want, lines)
	}
	if lines, err := readScript(""); err != nil || lines != nil {
		t.Errorf("no script: got %v, %v", lines, err)
	}
}

func TestLiveKey(t *testing.T) {
	tests := map[byte]int{
		'a': 0, 'w': 1, 's': 2, 'j': 11, 'k': 12,
		'1': scene.KeySong0, '4': scene.KeySong0 + 3,
		' ': scene.KeyFunction,
	}
	for b, want := range tests {
		got, ok := liveKey(b)
		if !ok || want != got {
			t.Errorf("%q: want %v, got %v (%v)", b, want, got, ok)
		}
	}
	if _, ok := liveKey('z'); ok {
		t.Errorf("z should not be mapped")
	}
}

func TestKeyForPitch(t *testing.T) {
	for pitch, want := range map[int]int{60: 0, 69: 9, 72: 12, 77: 17} {
		got, ok := keyForPitch(pitch)
		if !ok || want != got {
			t.Errorf("pitch %d: want key %v, got %v (%v)", pitch, want, got, ok)
		}
	}
	for _, pitch := range []int{59, 78, 127} {
		if _, ok := keyForPitch(pitch); ok {
			t.Errorf("pitch %d should not map to a key", pitch)
		}
	}
}
