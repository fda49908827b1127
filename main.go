// Completion: 100% - Driver entry point complete
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/xyproto/env/v2"
	"github.com/xyproto/lirgen/internal/engine"
)

const versionString = "lirgen 0.3.0"

// VerboseMode enables the per-instruction trace on stderr
var VerboseMode bool

// targetOptions are the target switches given on the command line
type targetOptions struct {
	host          bool
	level         int
	avx           bool
	pic           bool
	inlineObjects bool
	arch          string
}

// buildFeatures turns the command line switches into a target description.
// LIRGEN_LEVEL, LIRGEN_AVX, LIRGEN_PIC and LIRGEN_INLINE_OBJECTS override the
// flags when they are set.
func buildFeatures(opts targetOptions) (engine.Features, error) {
	arch, err := engine.ParseArch(opts.arch)
	if err != nil {
		return engine.Features{}, err
	}
	if !arch.CanLower() {
		return engine.Features{}, fmt.Errorf("no instruction selection for %s (only x86_64 is supported)", arch)
	}

	level := env.Int("LIRGEN_LEVEL", opts.level)
	if level == 0 {
		level = 1
	}
	f, err := engine.Level(level)
	if err != nil {
		return engine.Features{}, err
	}
	if opts.host {
		f = engine.DetectHost()
	}
	if opts.avx {
		f.AVX = true
	}
	f.PIC = opts.pic
	f.EmbedObjects = opts.inlineObjects

	if env.Str("LIRGEN_AVX") != "" {
		f.AVX = env.Bool("LIRGEN_AVX")
	}
	if env.Str("LIRGEN_PIC") != "" {
		f.PIC = env.Bool("LIRGEN_PIC")
	}
	if env.Str("LIRGEN_INLINE_OBJECTS") != "" {
		f.EmbedObjects = env.Bool("LIRGEN_INLINE_OBJECTS")
	}
	return f, nil
}

func main() {
	// flags must come before the subcommand: lirgen -avx lower prog.lir
	var archFlag = flag.String("arch", "amd64", "target architecture")
	var hostFlag = flag.Bool("host", false, "use the instruction set extensions of this CPU")
	var levelFlag = flag.Int("level", 1, "x86-64 microarchitecture level (1 to 4)")
	var avxFlag = flag.Bool("avx", false, "allow AVX three-operand forms")
	var picFlag = flag.Bool("pic", false, "generate position independent code")
	var inlineFlag = flag.Bool("inline-objects", true, "allow object references to be embedded in code")
	var verbose = flag.Bool("v", false, "verbose mode (trace every emitted instruction)")
	var verboseLong = flag.Bool("verbose", false, "verbose mode (trace every emitted instruction)")
	var versionShort = flag.Bool("V", false, "print version information and exit")
	var version = flag.Bool("version", false, "print version information and exit")
	var watchFlag = flag.Bool("watch", false, "watch mode: lower again when the file changes")
	var noColor = flag.Bool("no-color", false, "do not color diagnostics")
	flag.Parse()

	if *version || *versionShort {
		fmt.Println(versionString)
		os.Exit(0)
	}

	VerboseMode = *verbose || *verboseLong || env.Bool("LIRGEN_VERBOSE")

	features, err := buildFeatures(targetOptions{
		host:          *hostFlag,
		level:         *levelFlag,
		avx:           *avxFlag,
		pic:           *picFlag,
		inlineObjects: *inlineFlag,
		arch:          *archFlag,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "target: %s\n", features)
	}

	ctx := &CommandContext{
		Features: features,
		Verbose:  VerboseMode,
		Watch:    *watchFlag,
		Color:    !*noColor && env.Str("NO_COLOR") == "",
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}
	if err := RunCLI(ctx, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
