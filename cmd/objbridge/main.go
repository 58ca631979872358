// objbridge CLI - runs scripts against the demo native classes
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/objbridge/bridge"
	"github.com/chazu/objbridge/config"
	"github.com/chazu/objbridge/demo"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "gen" {
		handleGenCommand(os.Args[2:])
		return
	}

	verbose := flag.Int("v", 0, "Log verbosity (0 = errors only, 2 = info, 4 = debug)")
	configDir := flag.String("config", ".", "Directory searched upwards for objbridge.toml")
	expr := flag.String("e", "", "Evaluate an expression and print the result")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: objbridge [options] [scripts...]\n")
		fmt.Fprintf(os.Stderr, "       objbridge gen <package> [-o file]\n\n")
		fmt.Fprintf(os.Stderr, "Runs scripts in the main module with the demo classes published.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  objbridge app.lua                        # Run a script\n")
		fmt.Fprintf(os.Stderr, "  objbridge -e 'native.Widget():area()'    # Evaluate an expression\n")
		fmt.Fprintf(os.Stderr, "  objbridge gen ./demo -o demo/meta_gen.go # Regenerate metaobjects\n")
	}
	flag.Parse()

	cfg, err := config.FindAndLoad(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg == nil {
		cfg = config.Default()
	}

	verbosity := cfg.Log.Verbosity
	if *verbose > 0 {
		verbosity = *verbose
	}
	var logPath *string
	if cfg.Log.File != "" {
		logPath = &cfg.Log.File
	}
	commonlog.Configure(verbosity, logPath)

	if err := bridge.Init(cfg,
		bridge.WithClasses(demo.Classes()...),
		bridge.WithWrapperFactory(bridge.WrapperFactoryFunc(demo.PointFactory)),
		bridge.WithErrorSink(bridge.ErrorSinkFunc(func(err error) {
			fmt.Fprintf(os.Stderr, "Script error: %v\n", err)
		})),
	); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer bridge.Cleanup()
	b := bridge.Self()

	if len(cfg.Modules.Path) > 0 {
		b.SetModulePath(b.MainModule(), cfg.Modules.Path)
	}

	status := 0
	for _, path := range flag.Args() {
		if err := runFile(b, path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			status = 1
			break
		}
	}

	if status == 0 && *expr != "" {
		v, err := b.Evaluate(b.MainModule(), *expr, bridge.ModeExpression)
		if err != nil {
			status = 1
		} else {
			fmt.Println(v)
		}
	}

	if status != 0 {
		bridge.Cleanup()
		os.Exit(status)
	}
}

func runFile(b *bridge.Bridge, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	code, err := b.Compile(string(src), path)
	if err != nil {
		return err
	}
	_, err = b.EvaluateCode(b.MainModule(), code)
	return err
}
