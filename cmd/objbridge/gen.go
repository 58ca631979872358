package main

import (
	"fmt"
	"os"

	"github.com/chazu/objbridge/metagen"
)

// handleGenCommand processes the `objbridge gen` subcommand.
// Usage:
//
//	objbridge gen ./demo                    # print to stdout
//	objbridge gen ./demo -o demo/meta_gen.go
func handleGenCommand(args []string) {
	var output string
	var patterns []string

	for i := 0; i < len(args); i++ {
		if args[i] == "--output" || args[i] == "-o" {
			if i+1 < len(args) {
				output = args[i+1]
				i++
			} else {
				fmt.Fprintln(os.Stderr, "Error: --output requires a file path")
				os.Exit(1)
			}
		} else {
			patterns = append(patterns, args[i])
		}
	}

	if len(patterns) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: objbridge gen <package> [-o file]")
		os.Exit(1)
	}

	model, err := metagen.IntrospectPackage(patterns[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for _, s := range model.Skipped {
		fmt.Fprintf(os.Stderr, "  skipped %s\n", s)
	}

	code, err := metagen.Generate(model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if output == "" {
		fmt.Print(code)
		return
	}
	if err := os.WriteFile(output, []byte(code), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", output, err)
		os.Exit(1)
	}
	fmt.Printf("Generated %d classes into %s\n", len(model.Classes), output)
}
