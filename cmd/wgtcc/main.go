package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/echopoint/wgtcc/pkg/ast"
	"github.com/echopoint/wgtcc/pkg/diag"
	"github.com/echopoint/wgtcc/pkg/lexer"
	"github.com/echopoint/wgtcc/pkg/parser"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var version = "0.1.0"

var (
	dParse     bool   // dump the parsed, lowered AST
	diagFormat string // text or yaml
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	// Normalize single-dash flags like -dparse to double-dash for pflag
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// debugFlagNames lists flags that accept single-dash style
var debugFlagNames = []string{"dparse"}

// normalizeFlags converts single-dash flags like -dparse to --dparse
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		for _, flagName := range debugFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
		if result[i] == "" {
			result[i] = arg
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wgtcc [file]",
		Short: "wgtcc is a C front end: parsing with integrated semantic analysis",
		Long: `wgtcc parses one C translation unit into a typed AST, checking
types, scopes and linkage as it goes. Loops and switches are lowered
to label and jump sequences during parsing.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			filename := args[0]

			if dParse {
				return doParse(filename, out, errOut)
			}

			// Default: parse and report diagnostics only.
			_, errs, err := parseFile(filename)
			if err != nil {
				fmt.Fprintf(errOut, "wgtcc: %v\n", err)
				return err
			}
			if errs.HasErrors() {
				reportDiagnostics(errs, errOut)
				return fmt.Errorf("parsing failed with %d errors", len(errs.Diags))
			}
			return nil
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().BoolVar(&dParse, "dparse", false, "Dump the lowered AST after parsing")
	rootCmd.Flags().StringVar(&diagFormat, "diag-format", "text", "Diagnostic output format (text or yaml)")

	return rootCmd
}

// parseFile parses a C file and returns the AST and the diagnostics.
func parseFile(filename string) (*ast.TranslationUnit, *diag.List, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, err
	}

	errs := &diag.List{}
	l := lexer.NewFile(filename, string(content))
	p := parser.New(l, errs)
	unit := p.ParseTranslationUnit()
	return unit, errs, nil
}

// reportDiagnostics writes the collected diagnostics as plain text or as
// a YAML document.
func reportDiagnostics(errs *diag.List, w io.Writer) {
	if diagFormat == "yaml" {
		data, err := yaml.Marshal(errs.Diags)
		if err == nil {
			w.Write(data)
		}
		return
	}
	errs.Write(w)
}

// doParse parses the file and writes the lowered AST to a .parsed.c file
func doParse(filename string, out, errOut io.Writer) error {
	unit, errs, err := parseFile(filename)
	if err != nil {
		fmt.Fprintf(errOut, "wgtcc: %v\n", err)
		return err
	}
	if errs.HasErrors() {
		reportDiagnostics(errs, errOut)
		return fmt.Errorf("parsing failed with %d errors", len(errs.Diags))
	}

	// Compute output filename: input.c -> input.parsed.c
	outputFilename := parsedOutputFilename(filename)

	outFile, err := os.Create(outputFilename)
	if err != nil {
		fmt.Fprintf(errOut, "wgtcc: error creating %s: %v\n", outputFilename, err)
		return err
	}
	defer outFile.Close()

	printer := ast.NewPrinter(outFile)
	printer.PrintUnit(unit)

	// Also print to stdout for convenience
	printer = ast.NewPrinter(out)
	printer.PrintUnit(unit)

	return nil
}

// parsedOutputFilename returns the output filename for -dparse
// input.c -> input.parsed.c
func parsedOutputFilename(filename string) string {
	ext := ".c"
	if strings.HasSuffix(filename, ext) {
		return filename[:len(filename)-len(ext)] + ".parsed.c"
	}
	return filename + ".parsed.c"
}
