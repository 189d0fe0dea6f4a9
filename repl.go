package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/chzyer/readline"
	"github.com/mrdg/pluck/audio"
	"github.com/mrdg/pluck/dub"
	"github.com/mrdg/pluck/registry"
	"github.com/mrdg/pluck/scene"
)

type replEnv struct {
	ctx      context.Context // cancels waits
	player   *audio.Player
	sel      *audio.Selector
	props    *audio.Props
	settings *registry.Registry
	stack    *scene.Stack
	env      *scene.Env
	out      io.Writer
}

func (e *replEnv) evalLine(input string) error {
	cmds, err := dub.ParseLine(input)
	if err != nil {
		return err
	}
	for _, cmd := range cmds {
		result, err := e.eval(cmd)
		if err != nil {
			return err
		}
		if result != "" {
			fmt.Fprintln(e.out, result)
		}
	}
	return nil
}

func (e *replEnv) eval(command dub.Command) (string, error) {
	name := string(command.Name)
	for _, cmd := range commands {
		if name != cmd.name {
			continue
		}
		if cmd.arity < 0 {
			arity := -cmd.arity - 1
			if len(command.Args) > arity {
				return "", fmt.Errorf("%s: wrong number of arguments: want at most %v, got %v",
					cmd.name, arity, len(command.Args))
			}
		} else if len(command.Args) != cmd.arity {
			return "", fmt.Errorf("%s: wrong number of arguments: want %v, got %v",
				cmd.name, cmd.arity, len(command.Args))
		}
		result, err := cmd.run(e, command.Args)
		if err != nil {
			return result, fmt.Errorf("%s error: %w", cmd.name, err)
		}
		return result, nil
	}
	names := make([]string, len(commands))
	for i, cmd := range commands {
		names[i] = cmd.name
	}
	if guess := suggest(name, names); guess != "" {
		return "", fmt.Errorf("unknown command: %s, did you mean %s?", name, guess)
	}
	return "", fmt.Errorf("unknown command: %s", name)
}

// suggest returns the candidate closest to name, or "" if none is close.
func suggest(name string, candidates []string) string {
	const minScore = 0.8
	best, bestScore := "", 0.0
	for _, c := range candidates {
		if score := matchr.JaroWinkler(name, c, false); score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore < minScore {
		return ""
	}
	return best
}

func repl(ctx context.Context, e *replEnv) error {
	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer rl.Close()
	e.out = rl.Stdout()

	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	for {
		line, err := rl.Readline()
		if ctx.Err() != nil {
			return io.EOF
		}
		if err == io.EOF || errors.Is(err, readline.ErrInterrupt) {
			return io.EOF
		}
		if err != nil {
			fmt.Fprintln(e.out, err)
			continue
		}
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		if err := e.evalLine(line); err != nil {
			fmt.Fprintln(e.out, err)
		}
	}
}

type command struct {
	name  string
	run   func(*replEnv, []dub.Node) (string, error)
	arity int // -n means at most n-1 arguments
	help  string
}

var commands []command

func init() {
	commands = []command{
		{"down", downCommand, 1, "down KEY: press a key"},
		{"up", upCommand, 1, "up KEY: release a key"},
		{"tap", tapCommand, 1, "tap KEY: press and release a key"},
		{"next", nextCommand, 0, "next: switch to the next enabled instrument"},
		{"select", selectCommand, 1, "select NAME: switch to an instrument"},
		{"instruments", instrumentsCommand, 0, "instruments: list the instruments"},
		{"volume", volumeCommand, -2, "volume [V]: show or set the volume, 0 to 1"},
		{"feedback", feedbackCommand, 2, "feedback NOTE V: set the brightness of a string"},
		{"tune", tuneCommand, 2, `tune "NOTES" TEMPO: play a tune such as "CDE FG"`},
		{"set", setCommand, 2, "set NAME V: change a setting"},
		{"get", getCommand, 1, "get NAME: show a setting"},
		{"save", saveCommand, 0, "save: store the settings"},
		{"wait", waitCommand, 1, "wait SECONDS: pause a script"},
		{"help", helpCommand, 0, "help: list commands"},
	}
}

func downCommand(env *replEnv, args []dub.Node) (string, error) {
	var key int
	if err := readArgs(args, &key); err != nil {
		return "", err
	}
	if !env.stack.KeyPressed(key) {
		return "", fmt.Errorf("key %d is not used", key)
	}
	return "", nil
}

func upCommand(env *replEnv, args []dub.Node) (string, error) {
	var key int
	if err := readArgs(args, &key); err != nil {
		return "", err
	}
	env.stack.KeyReleased(key)
	return "", nil
}

func tapCommand(env *replEnv, args []dub.Node) (string, error) {
	if _, err := downCommand(env, args); err != nil {
		return "", err
	}
	return upCommand(env, args)
}

func nextCommand(env *replEnv, args []dub.Node) (string, error) {
	return env.sel.Next(), nil
}

func selectCommand(env *replEnv, args []dub.Node) (string, error) {
	var name string
	if err := readArgs(args, &name); err != nil {
		return "", err
	}
	err := env.sel.Select(name)
	if errors.Is(err, audio.ErrUnknownInstrument) {
		if guess := suggest(name, env.sel.Names()); guess != "" {
			return "", fmt.Errorf("%w, did you mean %s?", err, guess)
		}
	}
	return "", err
}

func instrumentsCommand(env *replEnv, args []dub.Node) (string, error) {
	var lines []string
	current := env.sel.CurrentName()
	for i, name := range env.sel.Names() {
		mark := " "
		if name == current {
			mark = "*"
		}
		state := "on"
		if env.settings.Int(audio.FlagName(i), 1) == 0 {
			state = "off"
		}
		lines = append(lines, fmt.Sprintf("%s %d %-8s %s", mark, i, name, state))
	}
	return strings.Join(lines, "\n"), nil
}

func volumeCommand(env *replEnv, args []dub.Node) (string, error) {
	if len(args) == 0 {
		return fmt.Sprint(env.props.Float(audio.PropVolume)), nil
	}
	var v float64
	if err := readArgs(args, &v); err != nil {
		return "", err
	}
	return "", env.props.Set(audio.PropVolume, v)
}

func feedbackCommand(env *replEnv, args []dub.Node) (string, error) {
	var note int
	var v float64
	if err := readArgs(args, &note, &v); err != nil {
		return "", err
	}
	if v < 0 || v > 1 {
		return "", fmt.Errorf("feedback is not in valid range 0 - 1: %v", v)
	}
	env.player.SetFeedback(note, v)
	return "", nil
}

func tuneCommand(env *replEnv, args []dub.Node) (string, error) {
	var (
		notes string
		tempo float64
	)
	if err := readArgs(args, &notes, &tempo); err != nil {
		return "", err
	}
	if tempo <= 0 {
		return "", fmt.Errorf("tempo must be positive: %v", tempo)
	}
	for i := 0; i < len(notes); i++ {
		if notes[i] != ' ' && scene.NoteID(notes[i]) < 0 {
			return "", fmt.Errorf("unknown note %q, use one of %q", notes[i], scene.NoteTable)
		}
	}
	env.env.Play(notes, tempo)
	return "", nil
}

func setCommand(env *replEnv, args []dub.Node) (string, error) {
	var name string
	var v int
	if err := readArgs(args, &name, &v); err != nil {
		return "", err
	}
	env.settings.SetInt(name, v)
	if name == scene.SettingVolume {
		scene.RestoreVolume(env.settings, env.props)
	}
	return "", nil
}

func getCommand(env *replEnv, args []dub.Node) (string, error) {
	var name string
	if err := readArgs(args, &name); err != nil {
		return "", err
	}
	return fmt.Sprint(env.settings.Int(name, 0)), nil
}

func saveCommand(env *replEnv, args []dub.Node) (string, error) {
	return "", env.settings.Save()
}

func waitCommand(env *replEnv, args []dub.Node) (string, error) {
	var secs float64
	if err := readArgs(args, &secs); err != nil {
		return "", err
	}
	ctx := env.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	t := time.NewTimer(time.Duration(secs * float64(time.Second)))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-t.C:
		return "", nil
	}
}

func helpCommand(env *replEnv, args []dub.Node) (string, error) {
	var lines []string
	for _, cmd := range commands {
		lines = append(lines, cmd.help)
	}
	return strings.Join(lines, "\n"), nil
}

func readArgs(args []dub.Node, slots ...interface{}) error {
	if len(args) != len(slots) {
		return errors.New("not enough arguments")
	}
	for n, arg := range args {
		dest := slots[n]
		switch p := dest.(type) {
		case *string:
			switch s := arg.(type) {
			case dub.String:
				*p = string(s)
			case dub.Identifier:
				*p = string(s)
			default:
				return fmt.Errorf("argument error: expected a string or identifier")
			}
		case *float64:
			switch v := arg.(type) {
			case dub.Float:
				*p = float64(v)
			case dub.Int:
				*p = float64(v)
			default:
				return fmt.Errorf("argument error: expected a number")
			}
		case *int:
			n, ok := arg.(dub.Int)
			if !ok {
				return fmt.Errorf("argument error: expected an integer")
			}
			*p = int(n)
		default:
			panic("readArgs: unhandled destination type: " + fmt.Sprint(p))
		}
	}
	return nil
}
