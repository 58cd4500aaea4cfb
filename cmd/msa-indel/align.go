package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/msa-indel/internal/aligner"
	"github.com/inodb/msa-indel/internal/indel"
	"github.com/inodb/msa-indel/internal/output"
)

func newAlignCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "align <PROFILE> <GENES>",
		Short: "Align nucleotide sequences with nucamino",
		Long: `Run the nucamino codon-aware aligner on a FASTA file of nucleotide
sequences and print its JSON report. GENES is a comma-separated list of
gene names defined by PROFILE.

With --indels, the report is reduced to insertion and deletion positions
carried by at least --min-count aligned sequences, per gene.`,
		Example: `  msa-indel align hiv1b POL -i sequences.fa
  cat sequences.fa | msa-indel align hiv1b GAG,POL --timeout 5m
  msa-indel align --indels --min-count 3 -f tab hiv1b POL -i sequences.fa`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var genes []string
			for _, g := range strings.Split(args[1], ",") {
				if g = strings.TrimSpace(g); g != "" {
					genes = append(genes, g)
				}
			}
			if len(genes) == 0 {
				return newUsageError(cmd, "GENES must name at least one gene")
			}
			return a.runAlign(cmd, args[0], genes)
		},
	}

	f := cmd.Flags()
	f.StringP("input", "i", "-", "Input FASTA file ('-' for stdin)")
	f.String("binary", aligner.DefaultBinary, "Aligner executable")
	f.Duration("timeout", aligner.DefaultTimeout, "Kill the aligner after this long")
	f.Bool("indels", false, "Report indel positions instead of the JSON report")
	f.Int("min-count", 1, "Minimum number of sequences for an indel position (with --indels)")
	f.StringP("format", "f", "text", "Indel output format: text, tab, json (with --indels)")
	bindFlags(cmd, "align", "binary", "timeout")

	return cmd
}

func (a *app) runAlign(cmd *cobra.Command, profile string, genes []string) error {
	input, _ := cmd.Flags().GetString("input")
	indels, _ := cmd.Flags().GetBool("indels")
	minCount, _ := cmd.Flags().GetInt("min-count")
	format, _ := cmd.Flags().GetString("format")

	if minCount < 0 {
		return newUsageError(cmd, "--min-count must be non-negative, got %d", minCount)
	}
	if indels {
		if _, err := output.New(format, io.Discard); err != nil {
			return newUsageError(cmd, "%v", err)
		}
	}

	var in io.Reader = a.stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	runner := aligner.New(viper.GetString("align.binary"), viper.GetDuration("align.timeout"))
	runner.SetLogger(a.logger)

	report, err := runner.Align(ctx, profile, genes, in)
	if err != nil {
		return fmt.Errorf("align: %w", err)
	}

	if !indels {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		out = append(out, '\n')
		_, err = a.stdout.Write(out)
		return err
	}

	for _, gene := range genes {
		a.logger.Info("gene aligned",
			zap.String("gene", gene),
			zap.Int("sequences", len(report[gene])),
			zap.Int("aligned", report.Aligned(gene)))

		if format != "json" {
			fmt.Fprintf(a.stdout, "# %s: %d/%d sequences aligned\n", gene, report.Aligned(gene), len(report[gene]))
		}
		w, err := output.New(format, a.stdout)
		if err != nil {
			return err
		}
		if err := w.WriteHeader(); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		if err := indel.WriteEvents(report.Events(gene, minCount), w); err != nil {
			return err
		}
	}
	return nil
}
