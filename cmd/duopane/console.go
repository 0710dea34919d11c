package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/justyntemme/duopane/internal/engine"
	"github.com/justyntemme/duopane/internal/fs"
	"github.com/justyntemme/duopane/internal/panel"
)

// console multiplexes one input stream between the command loop and access
// prompts. A line read while a prompt is waiting answers the prompt.
type console struct {
	out   io.Writer
	mu    sync.Mutex
	lines chan string
	asks  chan chan string
}

func newConsole(in io.Reader, out io.Writer) *console {
	c := &console{
		out:   out,
		lines: make(chan string, 16),
		asks:  make(chan chan string),
	}
	go c.readLoop(in)
	return c
}

func (c *console) readLoop(in io.Reader) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := sc.Text()
		select {
		case reply := <-c.asks:
			reply <- line
		default:
			c.lines <- line
		}
	}
	close(c.lines)
}

// Lines delivers command input. It is closed at end of input.
func (c *console) Lines() <-chan string {
	return c.lines
}

func (c *console) Printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Write lets printing helpers share the console lock.
func (c *console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Write(p)
}

// Ask prints question and waits for the next input line.
func (c *console) Ask(ctx context.Context, question string) (string, error) {
	c.Printf("%s", question)
	reply := make(chan string, 1)
	select {
	case c.asks <- reply:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case line := <-reply:
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

var errQuit = errors.New("quit")

const helpText = `commands (side is l or r, default the focused panel):
  cd [side] <path>      change directory; "-" is the latest recent directory
  back [side]           previous directory
  fwd [side]            next directory
  up [side]             parent directory
  hist [side]           back (-n) and forward (+n) history
  jump [side] <n>       go to history entry n as listed by hist
  refresh [side]        rescan now
  state [side]          print a panel
  focus [l|r]           print or set the focused panel
  swap                  focus the other panel
  sort <key> [asc|desc] name, date, size, type, permissions, owner
  hidden on|off         show or hide dotfiles
  recent [clear]        recently visited directories
  quit
`

// histListMax bounds each direction printed by hist.
const histListMax = 20

// preferences persists display choices made at the console.
type preferences interface {
	SetShowHidden(show bool) error
	SetDefaultSort(key string, ascending bool) error
}

// session executes console commands against an engine.
type session struct {
	eng   *engine.Engine
	out   io.Writer
	prefs preferences
	focus panel.Side
}

// exec runs one command line. It returns errQuit for "quit".
func (s *session) exec(line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(args[0]), args[1:]

	switch cmd {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		fmt.Fprint(s.out, helpText)
		return nil
	case "recent":
		if len(args) == 1 && args[0] == "clear" {
			s.eng.Selections().Clear()
			return nil
		}
		for i, p := range s.eng.Selections().Recent() {
			fmt.Fprintf(s.out, "%2d  %s\n", i+1, p)
		}
		return nil
	case "focus":
		if len(args) == 0 {
			fmt.Fprintln(s.out, s.focus)
			return nil
		}
		side, err := panel.ParseSide(args[0])
		if err != nil {
			return err
		}
		s.focus = side
		return nil
	case "swap", "tab":
		s.focus = s.focus.Other()
		fmt.Fprintln(s.out, s.focus)
		return nil
	case "hidden":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return errors.New("usage: hidden on|off")
		}
		show := args[0] == "on"
		s.eng.SetShowHidden(show)
		if s.prefs != nil {
			if err := s.prefs.SetShowHidden(show); err != nil {
				return fmt.Errorf("save preference: %w", err)
			}
		}
		return nil
	case "sort":
		if len(args) < 1 || len(args) > 2 {
			return errors.New("usage: sort <key> [asc|desc]")
		}
		key, err := fs.ParseSortKey(args[0])
		if err != nil {
			return err
		}
		ascending := true
		if len(args) == 2 {
			switch strings.ToLower(args[1]) {
			case "asc":
			case "desc":
				ascending = false
			default:
				return fmt.Errorf("unknown direction %q", args[1])
			}
		}
		s.eng.SetSort(key, ascending)
		if s.prefs != nil {
			if err := s.prefs.SetDefaultSort(key.String(), ascending); err != nil {
				return fmt.Errorf("save preference: %w", err)
			}
		}
		return nil
	}

	side, args := s.sideArgs(args)
	rest := strings.TrimSpace(strings.Join(args, " "))

	var err error
	switch cmd {
	case "cd":
		switch rest {
		case "":
			return errors.New("usage: cd [side] <path>")
		case "-":
			recent, ok := s.eng.Selections().Front()
			if !ok {
				return errors.New("no recent directory")
			}
			rest = recent
		}
		_, err = s.eng.Navigate(side, rest)
	case "back":
		_, err = s.eng.GoBack(side)
	case "fwd", "forward":
		_, err = s.eng.GoForward(side)
	case "up":
		_, err = s.eng.GoUp(side)
	case "hist":
		s.printHistory(side)
	case "jump":
		err = s.jump(side, rest)
	case "refresh":
		err = s.eng.Refresh(side)
	case "state":
		var st panel.State
		if st, err = s.eng.State(side); err == nil {
			printState(s.out, st)
		}
	default:
		return fmt.Errorf("unknown command %q; try help", cmd)
	}
	return err
}

// sideArgs takes a leading side argument, falling back to the focused panel.
func (s *session) sideArgs(args []string) (panel.Side, []string) {
	if len(args) > 0 {
		if side, err := panel.ParseSide(args[0]); err == nil {
			return side, args[1:]
		}
	}
	return s.focus, args
}

func (s *session) printHistory(side panel.Side) {
	fmt.Fprintf(s.out, "[%s] back:\n", side)
	for i, p := range s.eng.BackList(side, histListMax) {
		fmt.Fprintf(s.out, "  %3d  %s\n", -(i + 1), p)
	}
	fmt.Fprintf(s.out, "[%s] forward:\n", side)
	for i, p := range s.eng.ForwardList(side, histListMax) {
		fmt.Fprintf(s.out, "  %+3d  %s\n", i+1, p)
	}
}

// jump resolves a hist index, negative for back and positive for forward.
func (s *session) jump(side panel.Side, arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil || n == 0 {
		return errors.New("usage: jump [side] <n>, n as listed by hist")
	}
	list := s.eng.ForwardList(side, n)
	idx := n - 1
	if n < 0 {
		list = s.eng.BackList(side, -n)
		idx = -n - 1
	}
	if idx >= len(list) {
		return fmt.Errorf("%w: no entry %d", engine.ErrNoHistory, n)
	}
	_, err = s.eng.JumpTo(side, list[idx])
	return err
}
