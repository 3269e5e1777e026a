// Command bfi compiles and runs tape-machine programs.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/bfi/compiler"
	"github.com/chazu/bfi/image"
	"github.com/chazu/bfi/manifest"
	"github.com/chazu/bfi/pkg/bytecode"
	"github.com/chazu/bfi/server"
	"github.com/chazu/bfi/store"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// options is the merged result of bfi.toml and the command line.
type options struct {
	cfg         *manifest.Manifest
	compileOut  string
	disassemble bool
	lsp         bool
	cache       bool
	cachePath   string
	file        string
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("bfi", flag.ContinueOnError)
	fs.SetOutput(stderr)

	optimize := fs.Bool("O", false, "Optimize: fold runs and precompute loop targets")
	compileOut := fs.String("c", "", "Write a compiled image to `file` instead of running")
	disassemble := fs.Bool("d", false, "Print a disassembly instead of running")
	trace := fs.Bool("trace", false, "Log every executed instruction (needs -v 2)")
	stats := fs.Bool("stats", false, "Print execution statistics to stderr")
	cachePath := fs.String("cache", "", "Use the compile cache at `db`")
	configDir := fs.String("config", "", "Search for bfi.toml from `dir` instead of the working directory")
	verbosity := fs.Int("v", 0, "Log verbosity (-4 silent, 0 notices, 1 info, 2 debug)")
	lsp := fs.Bool("lsp", false, "Serve the language server protocol on stdio")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: bfi [options] <file>\n\n")
		fmt.Fprintf(stderr, "Runs a program from source, or from a compiled %s image.\n\n", image.Ext)
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  bfi -O hello.b              # Run with the optimizer\n")
		fmt.Fprintf(stderr, "  bfi -O -c hello.bfc hello.b # Compile to an image\n")
		fmt.Fprintf(stderr, "  bfi hello.bfc               # Run an image\n")
		fmt.Fprintf(stderr, "  bfi -d -O hello.b           # Show folded instructions\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	dir := *configDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = wd
	}
	cfg, err := manifest.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = manifest.Default()
	}
	cfg.ApplyEnv()

	opts := &options{
		cfg:         cfg,
		compileOut:  *compileOut,
		disassemble: *disassemble,
		lsp:         *lsp,
		cache:       cfg.Cache.Enabled,
		cachePath:   cfg.CachePath(),
	}

	// Flags given explicitly win over bfi.toml.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "O":
			cfg.Run.Optimize = *optimize
		case "trace":
			cfg.Run.Trace = *trace
		case "stats":
			cfg.Run.Stats = *stats
		case "v":
			cfg.Log.Verbosity = *verbosity
		case "cache":
			opts.cache = true
			opts.cachePath = *cachePath
		}
	})

	if !opts.lsp {
		if fs.NArg() != 1 {
			fs.Usage()
			return nil, errors.New("expected exactly one program file")
		}
		opts.file = fs.Arg(0)
	}
	return opts, nil
}

func configureLogging(cfg *manifest.Manifest) {
	if file := cfg.LogFile(); file != "" {
		commonlog.Configure(cfg.Log.Verbosity, &file)
		return
	}
	commonlog.Configure(cfg.Log.Verbosity, nil)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "bfi: %v\n", err)
		return 2
	}
	configureLogging(opts.cfg)

	if opts.lsp {
		if err := server.NewLSP().Run(); err != nil {
			fmt.Fprintf(stderr, "Server error: %v\n", err)
			return 1
		}
		return 0
	}

	prog, img, err := load(opts, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "bfi: %v\n", err)
		return 1
	}

	if opts.compileOut != "" {
		if err := image.WriteFile(opts.compileOut, img); err != nil {
			fmt.Fprintf(stderr, "bfi: %v\n", err)
			return 1
		}
		return 0
	}

	if opts.disassemble {
		fmt.Fprint(stdout, prog.Disassemble())
		return 0
	}

	out := bufio.NewWriter(stdout)
	err = prog.Execute(bufio.NewReader(stdin), out)
	// Keep whatever was printed before a failure.
	if ferr := out.Flush(); err == nil {
		err = ferr
	}
	fmt.Fprintln(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "bfi: %v\n", err)
		return 1
	}

	if opts.cfg.Run.Stats {
		printStats(stderr, prog)
	}
	return 0
}

// load builds the program named on the command line. img is non-nil when
// the program came from, or went through, an image, which is always the
// case when an image is to be written.
func load(opts *options, stderr io.Writer) (bytecode.Executable, *image.Image, error) {
	cfg := opts.cfg
	progOpts := []bytecode.Option{
		bytecode.WithTrace(cfg.Run.Trace),
		bytecode.WithReserve(cfg.Tape.Reserve),
	}

	if strings.EqualFold(filepath.Ext(opts.file), image.Ext) {
		img, err := image.ReadFile(opts.file)
		if err != nil {
			return nil, nil, err
		}
		prog, err := img.Program(progOpts...)
		return prog, img, err
	}

	f, err := os.Open(opts.file)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	tokens, err := compiler.Parse(f)
	if err != nil {
		return nil, nil, err
	}
	if diags := compiler.Check(tokens); len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprintf(stderr, "%s:%s: %s\n", opts.file, d.Pos, d.Message)
		}
		return nil, nil, &compiler.SyntaxError{Pos: diags[0].Pos, Err: diags[0].Err}
	}

	if !opts.cache && opts.compileOut == "" {
		prog, err := compiler.CompileTokens(tokens, compiler.Options{
			Optimize: cfg.Run.Optimize,
			Trace:    cfg.Run.Trace,
			Reserve:  cfg.Tape.Reserve,
		})
		return prog, nil, err
	}

	var img *image.Image
	if opts.cache {
		img, err = cached(opts, compiler.Commands(tokens))
	} else {
		img, err = image.FromSource(compiler.Commands(tokens), cfg.Run.Optimize)
	}
	if err != nil {
		return nil, nil, err
	}
	prog, err := img.Program(progOpts...)
	return prog, img, err
}

// cached returns the image for cmds from the compile cache, compiling and
// storing it on a miss.
func cached(opts *options, cmds []bytecode.Command) (*image.Image, error) {
	log := commonlog.GetLogger("bfi")

	st, err := store.Open(opts.cachePath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	hash := image.HashString(cmds)
	img, err := st.Get(hash, opts.cfg.Run.Optimize)
	if err == nil {
		log.Infof("cache hit %s", hash)
		return img, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		// A damaged entry is recompiled and overwritten.
		log.Warningf("cache entry %s unusable: %v", hash, err)
	}

	img, err = image.FromSource(cmds, opts.cfg.Run.Optimize)
	if err != nil {
		return nil, err
	}
	if err := st.Put(img); err != nil {
		return nil, err
	}
	log.Infof("cache miss %s", hash)
	return img, nil
}

func printStats(w io.Writer, prog bytecode.Executable) {
	st := prog.Stats()
	fmt.Fprintf(w, "instructions: %d\n", prog.Len())
	fmt.Fprintf(w, "steps:        %d\n", st.Steps)
	fmt.Fprintf(w, "output bytes: %d\n", st.Outputs)
	fmt.Fprintf(w, "input bytes:  %d\n", st.Inputs)
	fmt.Fprintf(w, "cells:        %d\n", st.Cells)
	fmt.Fprintf(w, "growths:      %d\n", st.Growths)
}
