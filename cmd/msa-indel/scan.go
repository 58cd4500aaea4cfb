package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/msa-indel/internal/duckdb"
	"github.com/inodb/msa-indel/internal/fasta"
	"github.com/inodb/msa-indel/internal/indel"
	"github.com/inodb/msa-indel/internal/msa"
	"github.com/inodb/msa-indel/internal/output"
)

func newScanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <MIN_NUM_INDELS> <REF_HEADER> <FASTA>",
		Short: "Report high-frequency insertion and deletion positions",
		Long: `Scan an amino acid multiple sequence alignment column by column and report
positions where at least MIN_NUM_INDELS sequences carry an insertion or a
deletion relative to the reference sequence named REF_HEADER.

Positions are 1-based reference coordinates. An insertion reported at P sits
between reference positions P and P+1. FASTA may be '-' for stdin and may be
gzipped.

Exit status is 0 on success, 1 on a read or parse failure, 2 on a usage
error (wrong argument count, bad MIN_NUM_INDELS, unknown flag or format) and
3 when REF_HEADER matches no record. Scripts written for the older
hfindels.py tool, which exited 1 on usage errors and 2 on a missing
reference, need to map 2 and 3 accordingly.`,
		Example: `  msa-indel scan 5 HXB2 pol_aligned.fa
  msa-indel scan --format tab 10 "B.FR.83.HXB2" pol_aligned.fa.gz
  msa-indel scan --cache ~/.msa-indel/scans.duckdb 5 HXB2 pol_aligned.fa
  msa-indel scan --cache ~/.msa-indel/scans.duckdb --clear-cache 5 HXB2 pol_aligned.fa`,
		Args: exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			minCount, err := strconv.Atoi(args[0])
			if err != nil || minCount < 0 {
				return newUsageError(cmd, "MIN_NUM_INDELS must be a non-negative integer, got %q", args[0])
			}
			return a.runScan(cmd, minCount, args[1], args[2])
		},
	}

	f := cmd.Flags()
	f.StringP("format", "f", "text", "Output format: text, tab, json")
	f.Bool("keep-empty", false, "Keep records that have a header but no sequence")
	f.StringSlice("comment", []string{fasta.DefaultCommentPrefix}, "Comment line prefix (repeatable)")
	f.String("cache", "", "DuckDB file for caching scan results")
	f.Bool("clear-cache", false, "Remove all cached scans before scanning (with --cache)")
	f.Bool("summary", false, "Print event counts to stderr")
	bindFlags(cmd, "scan", "format", "keep-empty", "comment", "cache", "clear-cache", "summary")

	return cmd
}

func (a *app) runScan(cmd *cobra.Command, minCount int, refID, path string) error {
	writer, err := output.New(viper.GetString("scan.format"), a.stdout)
	if err != nil {
		return newUsageError(cmd, "%v", err)
	}

	var events []indel.Event
	var sum indel.Summary

	cachePath := viper.GetString("scan.cache")
	if cachePath != "" && path == "-" {
		a.logger.Warn("result cache is not used for stdin input")
		cachePath = ""
	}

	if cachePath != "" {
		events, err = a.cachedScan(cachePath, minCount, refID, path)
		if err != nil {
			return err
		}
		if err := writer.WriteHeader(); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		if err := indel.WriteEvents(events, writer); err != nil {
			return err
		}
		sum = indel.Summarize(events)
	} else {
		scanner, err := a.newScanner(minCount, refID, path)
		if err != nil {
			return err
		}
		if err := writer.WriteHeader(); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		if sum, err = scanner.WriteAll(writer); err != nil {
			return err
		}
	}

	if viper.GetBool("scan.summary") {
		fmt.Fprintf(a.stderr, "%d insertions, %d deletions\n", sum.Insertions, sum.Deletions)
	}
	return nil
}

// newScanner loads the alignment at path and resolves the reference.
func (a *app) newScanner(minCount int, refID, path string) (*indel.Scanner, error) {
	opts := []fasta.Option{
		fasta.WithKeepEmpty(viper.GetBool("scan.keep-empty")),
		fasta.WithCommentPrefixes(viper.GetStringSlice("scan.comment")...),
		fasta.WithLogger(a.logger),
	}

	var aln *msa.Alignment
	var err error
	if path == "-" {
		aln, err = msa.Read(fasta.NewReader(a.stdin, opts...))
	} else {
		aln, err = msa.Load(path, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("read alignment: %w", err)
	}
	a.logger.Info("loaded alignment",
		zap.String("path", path),
		zap.Int("sequences", aln.Len()),
		zap.Int("columns", aln.Width()))

	scanner, err := indel.NewScanner(aln, refID, minCount)
	if err != nil {
		return nil, err
	}
	scanner.SetLogger(a.logger)
	return scanner, nil
}

// cachedScan returns cached events for the file at path, scanning and
// caching them on a miss.
func (a *app) cachedScan(cachePath string, minCount int, refID, path string) ([]indel.Event, error) {
	fp, err := duckdb.StatFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alignment: %w", err)
	}

	store, err := duckdb.Open(cachePath)
	if err != nil {
		return nil, fmt.Errorf("open scan cache: %w", err)
	}
	defer store.Close()

	if viper.GetBool("scan.clear-cache") {
		if err := store.ClearScans(); err != nil {
			return nil, fmt.Errorf("clear scan cache: %w", err)
		}
		a.logger.Info("cleared scan cache", zap.String("cache", cachePath))
	}

	key := duckdb.ScanKey{
		Source:          fp,
		ReferenceID:     refID,
		MinCount:        minCount,
		CommentPrefixes: viper.GetStringSlice("scan.comment"),
		KeepEmpty:       viper.GetBool("scan.keep-empty"),
	}
	events, ok, err := store.LookupScan(key)
	if err != nil {
		return nil, fmt.Errorf("lookup cached scan: %w", err)
	}
	if ok {
		a.logger.Info("using cached scan",
			zap.String("cache", cachePath),
			zap.Int("events", len(events)))
		return events, nil
	}

	scanner, err := a.newScanner(minCount, refID, path)
	if err != nil {
		return nil, err
	}
	events = scanner.All()

	if err := store.WriteScan(key, events); err != nil {
		a.logger.Warn("could not cache scan results", zap.Error(err))
	}
	return events, nil
}
