// uxf - UXF format CLI tool
//
// Usage:
//
//	uxf fmt [--indent N] [--wrap N] [--realdp N] [--true-false] in [out]
//	uxf lint [file...]                 Report diagnostics without rewriting
//	uxf compress in [out.gz]           Rewrite as gzip-compressed UXF
//	uxf uncompress in.gz [out]         Rewrite as plain UXF
//	uxf inline in [out]                Expand imports into ttype definitions
//
// A filename of - means stdin (or stdout for outputs).
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/Neumenon/uxf/uxf"
)

const (
	exitUsage = 1
	exitParse = 2
	exitIO    = 3
)

func main() {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	app := &cli.App{
		Name:  "uxf",
		Usage: "pretty-print, lint, compress, and inline UXF files",
		Commands: []*cli.Command{
			fmtCommand(),
			lintCommand(),
			compressCommand(),
			uncompressCommand(),
			inlineCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		var exit cli.ExitCoder
		if errors.As(err, &exit) {
			cli.HandleExitCoder(err)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}
}

func formatFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "indent", Value: 2,
			Usage: "spaces per indent level (0 for compact output)"},
		&cli.IntFlag{Name: "wrap", Value: 96,
			Usage: "soft line-wrap target in columns"},
		&cli.IntFlag{Name: "realdp", Value: -1,
			Usage: "decimal digits for reals (-1 for minimal round-trip)"},
		&cli.IntFlag{Name: "maxshort", Value: 32,
			Usage: "longest collection render kept on one line"},
		&cli.BoolFlag{Name: "true-false",
			Usage: "write booleans as true/false instead of yes/no"},
	}
}

func formatFromFlags(c *cli.Context) uxf.Format {
	f := uxf.DefaultFormat()
	f.Indent = strings.Repeat(" ", c.Int("indent"))
	f.WrapWidth = c.Int("wrap")
	f.RealDP = c.Int("realdp")
	f.MaxShortLen = c.Int("maxshort")
	f.UseTrueFalse = c.Bool("true-false")
	return f
}

func fmtCommand() *cli.Command {
	return &cli.Command{
		Name:      "fmt",
		Usage:     "pretty-print a UXF file canonically",
		ArgsUsage: "in [out]",
		Flags:     formatFlags(),
		Action: func(c *cli.Context) error {
			return rewrite(c, formatFromFlags(c), false)
		},
	}
}

func compressCommand() *cli.Command {
	return &cli.Command{
		Name:      "compress",
		Usage:     "rewrite a UXF file gzip-compressed and minimized",
		ArgsUsage: "in [out.gz]",
		Action: func(c *cli.Context) error {
			return rewrite(c, uxf.CompactFormat(), true)
		},
	}
}

func uncompressCommand() *cli.Command {
	return &cli.Command{
		Name:      "uncompress",
		Usage:     "rewrite a gzip-compressed UXF file as plain text",
		ArgsUsage: "in.gz [out]",
		Action: func(c *cli.Context) error {
			return rewrite(c, uxf.DefaultFormat(), false)
		},
	}
}

func inlineCommand() *cli.Command {
	return &cli.Command{
		Name:      "inline",
		Usage:     "expand import directives into ttype definitions",
		ArgsUsage: "in [out]",
		Flags:     formatFlags(),
		Action: func(c *cli.Context) error {
			f := formatFromFlags(c)
			f.ReplaceImports = true
			return rewrite(c, f, false)
		},
	}
}

func lintCommand() *cli.Command {
	return &cli.Command{
		Name:      "lint",
		Usage:     "report diagnostics for one or more UXF files",
		ArgsUsage: "[file...]",
		Action: func(c *cli.Context) error {
			files := c.Args().Slice()
			if len(files) == 0 {
				files = []string{"-"}
			}
			failed := false
			for _, filename := range files {
				text, err := readInput(filename)
				if err != nil {
					return cli.Exit(err.Error(), exitIO)
				}
				for _, diag := range uxf.Lint(text, filename) {
					fmt.Fprintln(os.Stderr, diag)
					if !diag.IsWarning() {
						failed = true
					}
				}
			}
			if failed {
				return cli.Exit("", exitParse)
			}
			return nil
		},
	}
}

// rewrite implements the load-then-dump commands.
func rewrite(c *cli.Context, f uxf.Format, compress bool) error {
	if c.NArg() < 1 || c.NArg() > 2 {
		return cli.Exit("expected an input file and an optional output file",
			exitUsage)
	}
	infile := c.Args().Get(0)
	outfile := c.Args().Get(1)

	doc, err := load(infile)
	if err != nil {
		return cli.Exit(err.Error(), classify(err))
	}

	if outfile == "" || outfile == "-" {
		if compress {
			err = uxf.WriteCompressed(os.Stdout, doc, f)
		} else {
			err = uxf.Write(os.Stdout, doc, f)
		}
	} else if compress && !strings.HasSuffix(outfile, ".gz") {
		err = writeCompressedFile(outfile, doc, f)
	} else {
		err = uxf.DumpFileWithFormat(outfile, doc, f)
	}
	if err != nil {
		return cli.Exit(err.Error(), exitIO)
	}
	return nil
}

func load(filename string) (*uxf.Uxf, error) {
	if filename == "-" {
		return uxf.Load(os.Stdin)
	}
	return uxf.LoadFile(filename)
}

func readInput(filename string) (string, error) {
	if filename == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(filename)
	return string(data), err
}

func writeCompressedFile(filename string, doc *uxf.Uxf, f uxf.Format) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	err = uxf.WriteCompressed(file, doc, f)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}

// classify maps a load failure to the parse or I/O exit code.
func classify(err error) int {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return exitIO
	}
	return exitParse
}
