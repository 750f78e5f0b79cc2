package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/dataprep-cli/internal/pipeline"
	"github.com/KaramelBytes/dataprep-cli/internal/runlog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// resetFlags restores every flag to its default so invocations don't leak
// Changed state or appended slice values into each other.
func resetFlags(c *cobra.Command) {
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(fl *pflag.Flag) {
			if sv, ok := fl.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			} else {
				_ = fl.Value.Set(fl.DefValue)
			}
			fl.Changed = false
		})
	}
	reset(c.Flags())
	reset(c.PersistentFlags())
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(args ...string) (string, error) {
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd executes the root command with args and fails the test on error.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return out
}

// writeCards writes a 30-row fixture: five positives, one missing V1 and
// one Amount far above the rest.
func writeCards(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Time,V1,Amount,Class\n")
	for i := 0; i < 30; i++ {
		v1 := fmt.Sprintf("%.1f", float64(i%7)+0.5)
		if i == 3 {
			v1 = "NaN"
		}
		amount := 10 + i
		if i == 4 {
			amount = 5000
		}
		class := 0
		if i%6 == 0 {
			class = 1
		}
		fmt.Fprintf(&b, "%d,%s,%d,%d\n", i, v1, amount, class)
	}
	path := filepath.Join(dir, "cards.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func isolatedHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestCLI_PrepareWritesOutputsAndRecordsRun(t *testing.T) {
	home := isolatedHome(t)
	data := writeCards(t, home)
	outCSV := filepath.Join(home, "out", "matrix.csv")
	trainOut := filepath.Join(home, "out", "train.jsonl")
	manifest := filepath.Join(home, "out", "manifest.yaml")

	runCmd(t, "prepare", data, "--drop", "Time", "--winsorize", "Amount",
		"-o", outCSV, "--train-out", trainOut, "--manifest", manifest, "--quiet")

	b, err := os.ReadFile(outCSV)
	if err != nil {
		t.Fatalf("read matrix: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if lines[0] != "V1,Amount,Class" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if len(lines) != 11 {
		t.Fatalf("expected 10 balanced rows, got %d", len(lines)-1)
	}

	tb, err := os.ReadFile(trainOut)
	if err != nil {
		t.Fatalf("read train split: %v", err)
	}
	if n := strings.Count(string(tb), "\n"); n != 6 {
		t.Fatalf("expected 6 training rows, got %d", n)
	}

	mb, err := os.ReadFile(manifest)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var sum pipeline.Summary
	if err := yaml.Unmarshal(mb, &sum); err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	if sum.BalancedRows != 10 || sum.Inputs != 2 || sum.Outputs != 1 {
		t.Fatalf("unexpected manifest: %+v", sum)
	}
	if sum.TrainRows != 6 || sum.TestRows != 4 {
		t.Fatalf("unexpected split %d/%d", sum.TrainRows, sum.TestRows)
	}
	if len(sum.Dropped) != 1 || sum.Dropped[0] != "Time" {
		t.Fatalf("expected Time dropped, got %v", sum.Dropped)
	}
	if len(sum.Outliers) != 1 || sum.Outliers[0].Changed == 0 {
		t.Fatalf("expected Amount winsorized, got %+v", sum.Outliers)
	}

	runs, err := runlog.List(filepath.Join(home, ".dataprep", "runs"))
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one recorded run, got %d (%v)", len(runs), err)
	}
	r := runs[0]
	if r.Error != "" || len(r.Outputs) != 3 {
		t.Fatalf("unexpected run record: %+v", r)
	}

	out := runCmd(t, "runs", "list")
	if !strings.Contains(out, r.ID[:8]) || !strings.Contains(out, "prepare") {
		t.Fatalf("runs list missing run: %s", out)
	}
	out = runCmd(t, "runs", "show", r.ID[:8])
	if !strings.Contains(out, "[CLASS BALANCE]") || !strings.Contains(out, "balanced sample: 10 rows") {
		t.Fatalf("runs show missing summary: %s", out)
	}
}

func TestCLI_PrepareSameSeedIsReproducible(t *testing.T) {
	home := isolatedHome(t)
	data := writeCards(t, home)
	a := filepath.Join(home, "a.csv")
	b := filepath.Join(home, "b.csv")

	runCmd(t, "prepare", data, "--seed", "7", "-o", a, "--quiet", "--no-record")
	runCmd(t, "prepare", data, "--seed", "7", "-o", b, "--quiet", "--no-record")

	ab, _ := os.ReadFile(a)
	bb, _ := os.ReadFile(b)
	if len(ab) == 0 || !bytes.Equal(ab, bb) {
		t.Fatalf("same seed produced different output")
	}
	if _, err := os.Stat(filepath.Join(home, ".dataprep", "runs")); !os.IsNotExist(err) {
		t.Fatalf("--no-record still wrote runs dir")
	}
}

func TestCLI_PrepareFailureIsRecorded(t *testing.T) {
	home := isolatedHome(t)
	data := writeCards(t, home)

	if _, err := execute("prepare", data, "--label", "Fraud", "--quiet"); err == nil {
		t.Fatalf("expected error for missing label column")
	}
	runs, err := runlog.List(filepath.Join(home, ".dataprep", "runs"))
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one recorded run, got %d (%v)", len(runs), err)
	}
	if !strings.Contains(runs[0].Error, "Fraud") {
		t.Fatalf("expected label error recorded, got %q", runs[0].Error)
	}
	if runs[0].Summary == nil || runs[0].Summary.Stage != "imputed" {
		t.Fatalf("expected partial summary, got %+v", runs[0].Summary)
	}
}

func TestCLI_ScanReportsMissingAndBalance(t *testing.T) {
	home := isolatedHome(t)
	data := writeCards(t, home)

	out := runCmd(t, "scan", data, "--quiet")
	for _, want := range []string{"[MISSING VALUES]", "V1", "[CLASS BALANCE]", "positive: 5"} {
		if !strings.Contains(out, want) {
			t.Fatalf("scan output missing %q:\n%s", want, out)
		}
	}

	dir := filepath.Join(home, "summaries")
	runCmd(t, "scan", filepath.Join(home, "*.csv"), "-o", dir, "--quiet")
	if _, err := os.Stat(filepath.Join(dir, "cards.summary.md")); err != nil {
		t.Fatalf("summary not written: %v", err)
	}

	if _, err := execute("scan", filepath.Join(home, "*.nope")); err == nil {
		t.Fatalf("expected error when no inputs match")
	}
}

func TestCLI_OutliersReportAndWinsorize(t *testing.T) {
	home := isolatedHome(t)
	data := writeCards(t, home)

	out := runCmd(t, "outliers", data, "--columns", "Amount")
	if !strings.Contains(out, "Amount") || !strings.Contains(out, "5000") {
		t.Fatalf("outliers output missing flagged value:\n%s", out)
	}

	if _, err := execute("outliers", data, "--winsorize"); err == nil {
		t.Fatalf("expected --winsorize without --output to fail")
	}

	runCmd(t, "config", "set", "winsorize_columns", "Amount")
	out = runCmd(t, "outliers", data)
	if !strings.Contains(out, "- Amount:") || strings.Contains(out, "- V1:") || strings.Contains(out, "- Time:") {
		t.Fatalf("outliers should default to winsorize_columns:\n%s", out)
	}

	dest := filepath.Join(home, "capped.csv")
	runCmd(t, "outliers", data, "--columns", "Amount", "--winsorize", "-o", dest)
	b, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read winsorized: %v", err)
	}
	if strings.Contains(string(b), "5000") {
		t.Fatalf("5000 should have been capped:\n%s", b)
	}
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	isolatedHome(t)

	runCmd(t, "config", "set", "seed", "9")
	runCmd(t, "config", "set", "drop_columns", "Time")
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "seed: 9") || !strings.Contains(out, "- Time") {
		t.Fatalf("config show missing saved values:\n%s", out)
	}

	if _, err := execute("config", "set", "ks_alpha", "2"); err == nil {
		t.Fatalf("expected out-of-range ks_alpha to fail")
	}
	if _, err := execute("config", "set", "bogus", "1"); err == nil {
		t.Fatalf("expected unknown key to fail")
	}
}

func TestCLI_RunsListIgnoresMalformedRecords(t *testing.T) {
	home := isolatedHome(t)
	bad := filepath.Join(home, ".dataprep", "runs", "broken")
	if err := os.MkdirAll(bad, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(bad, "run.json"), []byte(`{"id":"x","command":"prepare"}`), 0o644); err != nil {
		t.Fatalf("write run: %v", err)
	}
	out := runCmd(t, "runs", "list")
	if !strings.Contains(out, "(no runs)") {
		t.Fatalf("expected malformed record to be skipped:\n%s", out)
	}
	if got := shortID("x"); got != "x" {
		t.Fatalf("shortID(%q) = %q", "x", got)
	}
}
