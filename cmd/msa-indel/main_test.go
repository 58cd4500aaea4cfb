package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/msa-indel/internal/duckdb"
)

const smallAlignment = `>REF
AC-GT
>S1
A--GT
>S2
ACCGT
`

// runCLI runs the command line with a fresh viper instance and an empty HOME.
func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("HOME", t.TempDir())

	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestScan(t *testing.T) {
	path := writeFile(t, "small.fa", smallAlignment)

	code, stdout, stderr := runCLI(t, "", "scan", "1", "REF", path)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "Deletion at 2: 1/3\nInsertion at 2: 1/3\n", stdout)
	assert.Empty(t, stderr)
}

func TestScan_Threshold(t *testing.T) {
	path := writeFile(t, "small.fa", smallAlignment)

	code, stdout, _ := runCLI(t, "", "scan", "2", "REF", path)
	require.Equal(t, ExitSuccess, code)
	assert.Empty(t, stdout)
}

func TestScan_Stdin(t *testing.T) {
	code, stdout, _ := runCLI(t, smallAlignment, "scan", "1", "REF", "-")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "Deletion at 2: 1/3\nInsertion at 2: 1/3\n", stdout)
}

func TestScan_TabFormat(t *testing.T) {
	path := writeFile(t, "small.fa", smallAlignment)

	code, stdout, _ := runCLI(t, "", "scan", "--format", "tab", "1", "REF", path)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "#Type\tPosition\tCount\tTotal\tFrequency\tColumn\tLength\n"+
		"Deletion\t2\t1\t3\t0.3333\t2\t1\n"+
		"Insertion\t2\t1\t3\t0.3333\t3\t1\n", stdout)
}

func TestScan_JSONFormat(t *testing.T) {
	path := writeFile(t, "small.fa", smallAlignment)

	code, stdout, _ := runCLI(t, "", "scan", "-f", "json", "1", "REF", path)
	require.Equal(t, ExitSuccess, code)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "Deletion", first["type"])
	assert.Equal(t, float64(2), first["position"])
}

func TestScan_Summary(t *testing.T) {
	path := writeFile(t, "small.fa", smallAlignment)

	code, _, stderr := runCLI(t, "", "scan", "--summary", "1", "REF", path)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stderr, "1 insertions, 1 deletions")
}

func TestScan_ConfigFile(t *testing.T) {
	path := writeFile(t, "small.fa", smallAlignment)
	cfg := writeFile(t, "config.yaml", "scan:\n  format: tab\n")

	code, stdout, stderr := runCLI(t, "", "--config", cfg, "scan", "1", "REF", path)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.True(t, strings.HasPrefix(stdout, "#Type\t"), stdout)
}

func TestScan_Verbose(t *testing.T) {
	path := writeFile(t, "small.fa", smallAlignment)

	code, stdout, stderr := runCLI(t, "", "-v", "scan", "1", "REF", path)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "Deletion at 2: 1/3\nInsertion at 2: 1/3\n", stdout)
	assert.Contains(t, stderr, "loaded alignment")
	assert.Contains(t, stderr, "insertion run opened")
}

func TestScan_ReferenceNotFound(t *testing.T) {
	path := writeFile(t, "small.fa", smallAlignment)

	code, stdout, stderr := runCLI(t, "", "scan", "1", "NOPE", path)
	assert.Equal(t, ExitNoReference, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, `can not locate reference "NOPE"`)
}

func TestScan_UsageErrors(t *testing.T) {
	path := writeFile(t, "small.fa", smallAlignment)

	tests := []struct {
		name string
		args []string
	}{
		{"too few arguments", []string{"scan", "1", "REF"}},
		{"too many arguments", []string{"scan", "1", "REF", path, "extra"}},
		{"non-numeric count", []string{"scan", "many", "REF", path}},
		{"negative count", []string{"scan", "--", "-1", "REF", path}},
		{"unknown flag", []string{"scan", "--bogus", "1", "REF", path}},
		{"unknown format", []string{"scan", "--format", "xml", "1", "REF", path}},
		{"no command", nil},
		{"unknown command", []string{"frobnicate"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(t, "", tt.args...)
			assert.Equal(t, ExitUsage, code, stderr)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, "Usage:")
		})
	}
}

func TestScan_MissingFile(t *testing.T) {
	code, stdout, stderr := runCLI(t, "", "scan", "1", "REF", filepath.Join(t.TempDir(), "missing.fa"))
	assert.Equal(t, ExitError, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Hint: Check that the file path is correct")
}

func TestScan_RaggedAlignment(t *testing.T) {
	path := writeFile(t, "ragged.fa", ">REF\nACGT\n>S1\nAC\n")

	code, stdout, stderr := runCLI(t, "", "scan", "1", "REF", path)
	assert.Equal(t, ExitError, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "S1")
}

func TestScan_Cache(t *testing.T) {
	path := writeFile(t, "small.fa", smallAlignment)
	cache := filepath.Join(t.TempDir(), "scans.duckdb")

	for i := 0; i < 2; i++ {
		code, stdout, stderr := runCLI(t, "", "scan", "--cache", cache, "1", "REF", path)
		require.Equal(t, ExitSuccess, code, stderr)
		assert.Equal(t, "Deletion at 2: 1/3\nInsertion at 2: 1/3\n", stdout, "run %d", i)
	}

	store, err := duckdb.Open(cache)
	require.NoError(t, err)
	defer store.Close()
	n, err := store.ScanCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// Each record carries a ';' line that is a comment only with --comment ';'.
const semicolonAlignment = `>REF
AC-GT
;A
>S1
A--GT
;-
>S2
ACCGT
;-
`

func TestScan_CacheKeyedByReaderOptions(t *testing.T) {
	path := writeFile(t, "semicolon.fa", semicolonAlignment)
	cache := filepath.Join(t.TempDir(), "scans.duckdb")

	withComment := "Deletion at 2: 1/3\nInsertion at 2: 1/3\n"
	withoutComment := withComment + "Deletion at 6: 2/3\n"

	code, stdout, stderr := runCLI(t, "", "scan", "--cache", cache, "--comment", ";", "1", "REF", path)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, withComment, stdout)

	code, stdout, stderr = runCLI(t, "", "scan", "--cache", cache, "1", "REF", path)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, withoutComment, stdout)

	code, stdout, _ = runCLI(t, "", "scan", "1", "REF", path)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, withoutComment, stdout)

	code, stdout, _ = runCLI(t, "", "scan", "--cache", cache, "--comment", ";", "1", "REF", path)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, withComment, stdout)

	store, err := duckdb.Open(cache)
	require.NoError(t, err)
	defer store.Close()
	n, err := store.ScanCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestScan_ClearCache(t *testing.T) {
	path := writeFile(t, "semicolon.fa", semicolonAlignment)
	cache := filepath.Join(t.TempDir(), "scans.duckdb")

	code, _, stderr := runCLI(t, "", "scan", "--cache", cache, "--comment", ";", "1", "REF", path)
	require.Equal(t, ExitSuccess, code, stderr)

	code, stdout, stderr := runCLI(t, "", "scan", "--cache", cache, "--clear-cache", "1", "REF", path)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "Deletion at 2: 1/3\nInsertion at 2: 1/3\nDeletion at 6: 2/3\n", stdout)

	store, err := duckdb.Open(cache)
	require.NoError(t, err)
	defer store.Close()
	n, err := store.ScanCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestScan_HeaderlessSequenceIsNotAReference(t *testing.T) {
	path := writeFile(t, "headerless.fa", "AC-GT\n>REF\nA--GT\n")

	code, stdout, stderr := runCLI(t, "", "scan", "1", "", path)
	assert.Equal(t, ExitNoReference, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, `can not locate reference ""`)
}

func TestScan_HelpDocumentsExitCodes(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "scan", "--help")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "2 on a usage")
	assert.Contains(t, stdout, "3 when REF_HEADER matches no record")
}

func TestInvalidLogLevel(t *testing.T) {
	path := writeFile(t, "small.fa", smallAlignment)

	code, _, stderr := runCLI(t, "", "--log-level", "loud", "scan", "1", "REF", path)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "invalid log level")
}

func TestSubmat(t *testing.T) {
	path := writeFile(t, "tiny.txt", "ARX\n4\n-1 5\n0 -1 -1\n")

	code, stdout, stderr := runCLI(t, "", "submat", "--name", "Tiny", path)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, `var Tiny = map[byte]map[byte]int{
	'A': {
		'A': 4,
		'R': -1,
	},
	'R': {
		'A': -1,
		'R': 5,
	},
}
`, stdout)
}

func TestSubmat_Stdin(t *testing.T) {
	code, stdout, _ := runCLI(t, "AR\n4\n-1 5\n", "submat", "--package", "scoring", "-")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "package scoring")
	assert.Contains(t, stdout, "var BLOSUM62 = map[byte]map[byte]int{")
}

func TestAlign(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script aligner stub requires a POSIX shell")
	}
	report := `{"POL": [
  {"Name": "s1", "Report": {"FirstAA": 1, "LastAA": 10, "Mutations": [{"Position": 4, "IsDeletion": true}]}, "Error": ""},
  {"Name": "s2", "Report": {"FirstAA": 1, "LastAA": 10, "Mutations": [{"Position": 4, "IsDeletion": true}]}, "Error": ""}
]}`
	bin := writeFile(t, "nucamino", "#!/bin/sh\ncat > /dev/null\ncat <<'EOF'\n"+report+"\nEOF\n")
	require.NoError(t, os.Chmod(bin, 0755))
	input := writeFile(t, "seqs.fa", ">s1\nATG\n>s2\nATG\n")

	code, stdout, stderr := runCLI(t, "", "align", "--binary", bin, "-i", input, "hiv1b", "POL")
	require.Equal(t, ExitSuccess, code, stderr)
	var decoded map[string][]map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))
	assert.Len(t, decoded["POL"], 2)

	code, stdout, stderr = runCLI(t, "", "align", "--binary", bin, "-i", input, "--indels", "--min-count", "2", "hiv1b", "POL")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "# POL: 2/2 sequences aligned\nDeletion at 4: 2/2\n", stdout)
}

func TestAlign_MissingBinary(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "no-such-aligner")

	code, stdout, stderr := runCLI(t, ">s\nATG\n", "align", "--binary", bin, "hiv1b", "POL")
	assert.Equal(t, ExitError, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "locate aligner")
}

func TestAlign_UsageErrors(t *testing.T) {
	code, _, _ := runCLI(t, "", "align", "hiv1b")
	assert.Equal(t, ExitUsage, code)

	code, _, _ = runCLI(t, "", "align", "hiv1b", " , ")
	assert.Equal(t, ExitUsage, code)

	code, _, _ = runCLI(t, "", "align", "--indels", "--format", "xml", "hiv1b", "POL")
	assert.Equal(t, ExitUsage, code)
}

func TestConfigSetGet(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("scan:\n  format: text\n"), 0644))

	code, stdout, stderr := runCLI(t, "", "--config", cfg, "config", "set", "align.binary", "/opt/nucamino")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "Set align.binary = /opt/nucamino")

	code, stdout, _ = runCLI(t, "", "--config", cfg, "config", "get", "align.binary")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "/opt/nucamino\n", stdout)

	code, _, stderr = runCLI(t, "", "--config", cfg, "config", "get", "no.such.key")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, `key "no.such.key" is not set`)
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "version")
	require.Equal(t, ExitSuccess, code)
	assert.True(t, strings.HasPrefix(stdout, "msa-indel version "))
}
