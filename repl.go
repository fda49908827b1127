// Completion: 100% - Interactive lowering complete
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/xyproto/env/v2"
)

const (
	newprompt    = "\033[32m>\033[0m "
	resultprompt = "\033[31m=\033[0m "
)

// replSession keeps one unit alive across input lines
type replSession struct {
	ctx     *CommandContext
	unit    *Unit
	out     io.Writer
	emitted int // instructions already shown
}

func newREPLSession(ctx *CommandContext, out io.Writer) *replSession {
	s := &replSession{ctx: ctx, out: out}
	s.reset()
	return s
}

func (s *replSession) reset() {
	var trace io.Writer
	if s.ctx.Verbose {
		trace = s.ctx.Stderr
	}
	s.unit = NewUnit("<repl>", s.ctx.Features, trace)
	s.emitted = 0
}

// pending returns the instructions appended since the last call
func (s *replSession) pending() []string {
	var lines []string
	n := 0
	for _, blk := range s.unit.Builder.Blocks() {
		for _, i := range blk.Instrs {
			if n >= s.emitted {
				lines = append(lines, blk.Label+": "+i.String())
			}
			n++
		}
	}
	s.emitted = n
	return lines
}

// handle runs one input line and reports whether the session should end
func (s *replSession) handle(line string) bool {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return false
	case ":quit", ":q", "exit":
		return true
	case ":dump":
		fmt.Fprint(s.out, s.unit.Builder.Dump())
		return false
	case ":reset":
		s.reset()
		fmt.Fprintln(s.out, "unit cleared")
		return false
	case ":ops":
		listOperations(s.out)
		return false
	case ":target":
		fmt.Fprintln(s.out, s.ctx.Features)
		return false
	case ":help":
		fmt.Fprintln(s.out, ":dump :reset :ops :target :quit, or one textual IR operation")
		return false
	}

	ok := s.unit.Exec(line)
	errs := s.unit.Errors()
	if report := errs.Report(s.ctx.Color); report != "" {
		fmt.Fprint(s.out, report)
	}
	if errs.HasFatalError() {
		s.reset()
		fmt.Fprintln(s.out, "unit aborted, starting over")
		return false
	}
	errs.Clear()
	if ok {
		for _, text := range s.pending() {
			fmt.Fprint(s.out, resultprompt)
			fmt.Fprintln(s.out, text)
		}
	}
	return false
}

func historyFile() string {
	if name := env.Str("LIRGEN_HISTORY"); name != "" {
		return name
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".lirgen_history")
}

// cmdREPL reads textual IR from the terminal, lowering each line into one
// growing unit
func cmdREPL(ctx *CommandContext) error {
	names := OperationNames()
	items := make([]readline.PrefixCompleterInterface, 0, len(names)+6)
	for _, name := range names {
		items = append(items, readline.PcItem(name))
	}
	for _, cmd := range []string{":dump", ":reset", ":ops", ":target", ":help", ":quit"} {
		items = append(items, readline.PcItem(cmd))
	}

	l, err := readline.NewEx(&readline.Config{
		Prompt:            newprompt,
		HistoryFile:       historyFile(),
		AutoComplete:      readline.NewPrefixCompleter(items...),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to start the line editor: %w", err)
	}
	defer l.Close()

	fmt.Fprintf(ctx.Stdout, "%s (%s), :help for commands\n", versionString, ctx.Features)
	s := newREPLSession(ctx, ctx.Stdout)
	for {
		line, err := l.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		} else if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}
		if s.handle(line) {
			return nil
		}
	}
}
