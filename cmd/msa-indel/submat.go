package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/inodb/msa-indel/internal/submat"
)

func newSubmatCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submat <MATRIX_FILE>",
		Short: "Convert a substitution matrix table to a Go map literal",
		Long: `Read a substitution matrix (such as BLOSUM62) in compact text form and
print it as a Go variable of type map[byte]map[byte]int. The first
non-blank line lists the symbols; each following line holds the scores of
one symbol against the symbols before it (or all of them).

MATRIX_FILE may be '-' for stdin.`,
		Example: `  msa-indel submat blosum62.txt > blosum62.go
  msa-indel submat --name BLOSUM80 --package scoring blosum80.txt`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			skip, _ := cmd.Flags().GetString("skip")
			pkg, _ := cmd.Flags().GetString("package")
			return a.runSubmat(args[0], submat.RenderOptions{Package: pkg, Name: name, Skip: skip})
		},
	}

	f := cmd.Flags()
	f.String("name", "BLOSUM62", "Go variable name")
	f.String("skip", submat.DefaultSkip, "Symbols to leave out")
	f.String("package", "", "Emit a complete Go file in this package")

	return cmd
}

func (a *app) runSubmat(path string, opts submat.RenderOptions) error {
	var r io.Reader = a.stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open matrix: %w", err)
		}
		defer f.Close()
		r = f
	}

	m, err := submat.Parse(r)
	if err != nil {
		return fmt.Errorf("parse matrix: %w", err)
	}
	return submat.Render(a.stdout, m, opts)
}
