// Completion: 100% - Command line interface complete
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/xyproto/lirgen/internal/engine"
)

// cli.go - subcommands of lirgen
//
// - lirgen lower <file.lir>... (print the lowered blocks)
// - lirgen repl (lower one line at a time)
// - lirgen ops (list the textual IR operations)
// - lirgen <file.lir> (shorthand for lower)

// CommandContext holds the execution context for a CLI command
type CommandContext struct {
	Features engine.Features
	Verbose  bool
	Watch    bool
	Color    bool
	Stdout   io.Writer
	Stderr   io.Writer
}

// RunCLI dispatches on the first argument
func RunCLI(ctx *CommandContext, args []string) error {
	if len(args) == 0 {
		return cmdHelp(ctx)
	}

	subcmd := args[0]
	switch subcmd {
	case "lower":
		if len(args) < 2 {
			return fmt.Errorf("usage: lirgen lower <file.lir>...")
		}
		return cmdLower(ctx, args[1:])

	case "repl":
		return cmdREPL(ctx)

	case "ops":
		listOperations(ctx.Stdout)
		return nil

	case "help", "--help", "-h":
		return cmdHelp(ctx)

	case "version", "--version", "-V":
		fmt.Fprintln(ctx.Stdout, versionString)
		return nil

	default:
		if strings.HasSuffix(subcmd, ".lir") {
			return cmdLower(ctx, args)
		}
		return fmt.Errorf("unknown command: %s\n\nRun 'lirgen help' for usage information", subcmd)
	}
}

// errLowering is returned when diagnostics were already printed
var errLowering = errors.New("lowering failed")

// cmdLower lowers every file and, in watch mode, keeps lowering the first
// one whenever it changes
func cmdLower(ctx *CommandContext, files []string) error {
	if ctx.Watch {
		if len(files) != 1 {
			return fmt.Errorf("watch mode takes exactly one file")
		}
		return watchAndLower(ctx, files[0])
	}
	failed := 0
	for _, file := range files {
		if err := lowerFile(ctx, file); err != nil {
			if !errors.Is(err, errLowering) {
				return err
			}
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed to lower", failed, len(files))
	}
	return nil
}

// lowerFile lowers one file, printing the blocks to stdout and the
// diagnostics to stderr
func lowerFile(ctx *CommandContext, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var trace io.Writer
	if ctx.Verbose {
		trace = ctx.Stderr
	}
	u, err := LowerSource(path, string(src), ctx.Features, trace)
	if report := u.Errors().Report(ctx.Color); report != "" {
		fmt.Fprint(ctx.Stderr, report)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", errLowering, err)
	}

	if len(u.Builder.Blocks()) > 1 || len(u.Builder.Blocks()) == 1 && len(u.Builder.Blocks()[0].Instrs) > 0 {
		fmt.Fprintf(ctx.Stdout, "; %s (%s)\n", path, ctx.Features)
		fmt.Fprint(ctx.Stdout, u.Builder.Dump())
	}
	return nil
}

// watchAndLower lowers path, then again on every change until interrupted
func watchAndLower(ctx *CommandContext, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	run := func() {
		if err := lowerFile(ctx, absPath); err != nil && !errors.Is(err, errLowering) {
			fmt.Fprintf(ctx.Stderr, "Error: %v\n", err)
		}
	}
	run()

	watcher, err := NewFileWatcher(func(string) {
		fmt.Fprintf(ctx.Stderr, "\n%s changed, lowering again\n", filepath.Base(absPath))
		run()
	})
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.AddFile(absPath); err != nil {
		return fmt.Errorf("failed to watch file: %w", err)
	}
	fmt.Fprintf(ctx.Stderr, "watching %s (Ctrl+C to stop)\n", absPath)

	sigctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err = watcher.Watch(sigctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func cmdHelp(ctx *CommandContext) error {
	fmt.Fprintf(ctx.Stdout, `%s - AMD64 arithmetic instruction selection

USAGE:
    lirgen [flags] <command> [arguments]

COMMANDS:
    lower <file.lir>...   Lower textual IR and print the LIR blocks
    repl                  Lower textual IR one line at a time
    ops                   List the textual IR operations
    help                  Show this help message
    version               Show version information

SHORTHAND:
    lirgen <file.lir>     Same as 'lirgen lower <file.lir>'

FLAGS (must come before the command):
    -avx                   Allow AVX three-operand forms
    -level <1-4>           x86-64 level: 2 adds POPCNT and SSE4.1, 3 adds AVX and BMI1
    -host                  Use the instruction set extensions of this CPU
    -pic                   Generate position independent code
    -inline-objects        Allow object references in code (default: true)
    -arch <arch>           Target architecture (default: amd64)
    -v, -verbose           Trace every emitted instruction on stderr
    -V, -version           Print version information and exit
    -watch                 Lower again whenever the file changes
    -no-color              Do not color diagnostics

ENVIRONMENT:
    LIRGEN_VERBOSE         Same as -v
    LIRGEN_LEVEL           Same as -level
    LIRGEN_AVX             Force AVX on or off
    LIRGEN_PIC             Force position independent code on or off
    LIRGEN_INLINE_OBJECTS  Force object embedding on or off
    LIRGEN_HISTORY         REPL history file (default: ~/.lirgen_history)

EXAMPLE:
    x = param.i32
    p = param.obj
    y = add x, 1
    q, r = divrem y, 7
    store.i32 [p+8], q

`, versionString)
	return nil
}
