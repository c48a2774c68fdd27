package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const (
	mplogCSV = "usage_date,brs,state,count\nJan-21,1,1,5\nJan-22,1,1,4\n"
	brsCSV   = "id,process_code,group\n1,BRS-NO-101,Leverandorskifte\n"
	stateCSV = "id,status_kode\n1,Completed\n"
	solarCSV = "id,postal_code,mtr_pt_installed_capacity,valid_from,valid_to,mtr_grid_area_id\n" +
		"m1,0150,10.5,2021-01-15T10:00:00Z,,G1\n"
	postalCSV = "Postnummer;Poststed;Latitude;Longitude\n0150;OSLO;59.91;10.75\n"
	gridCSV   = "udc_id,name\nG1,NO1\n"
)

// exportFixtures writes the input files and a config pointing at them. The
// installation fact file is left out when withSolar is false.
func exportFixtures(t *testing.T, withSolar bool) (configPath, outDir string) {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	solarPath := filepath.Join(dir, "solar.csv")
	if withSolar {
		write("solar.csv", solarCSV)
	}
	outDir = filepath.Join(dir, "out")
	yaml := fmt.Sprintf(`db_path: ""
output_dir: %q
market:
  fact_path: %q
  brs_path: %q
  state_path: %q
installation:
  fact_path: %q
  postal_path: %q
  grid_path: %q
`, outDir, write("mplog.csv", mplogCSV), write("dim_brs.csv", brsCSV), write("dim_mpstate.csv", stateCSV),
		solarPath, write("postal.csv", postalCSV), write("dim_mga.csv", gridCSV))
	return write("dashboard.yaml", yaml), outDir
}

func execute(args ...string) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd.Execute()
}

func exported(t *testing.T, outDir, pattern string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(outDir, "*", pattern))
	require.NoError(t, err)
	return files
}

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"config", "out", "format", "strict", "count-dropped"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"market", "installations", "runs"}, names)
}

func TestUnknownFormat(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"market", "--format", "pdf"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.ErrorContains(t, cmd.Execute(), `unknown format "pdf"`)
}

func TestRunsNeedsDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dashboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_path: \"\"\n"), 0o644))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"runs", "--config", path})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.ErrorContains(t, cmd.Execute(), "no db_path configured")
}

func TestMarketExportWritesBOMCSV(t *testing.T) {
	// the installation inputs are missing; the market export must not need them
	configPath, outDir := exportFixtures(t, false)
	require.NoError(t, execute("market", "--config", configPath))

	files := exported(t, outDir, "elhub-markedsprosesser-*.csv")
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\ufeff"))
	assert.Contains(t, string(data), "BRS-NO-101")
	assert.Empty(t, exported(t, outDir, "elhub-plusskunder-*"))
}

func TestInstallationsExportWritesXLSX(t *testing.T) {
	configPath, outDir := exportFixtures(t, true)
	require.NoError(t, execute("installations", "--config", configPath, "--format", "xlsx"))

	files := exported(t, outDir, "elhub-plusskunder-*.xlsx")
	require.Len(t, files, 1)
	f, err := excelize.OpenFile(files[0])
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"antall", "effekt", "per-maaned"}, f.GetSheetList())

	rows, err := f.GetRows("antall")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"period", "opened", "closed", "sum", "cumulative"}, rows[0])
	assert.Empty(t, exported(t, outDir, "elhub-markedsprosesser-*"))
}

func TestExportAllReportsBrokenPage(t *testing.T) {
	configPath, outDir := exportFixtures(t, false)
	err := execute("--config", configPath)
	assert.ErrorContains(t, err, "1 of 2 exports failed")
	assert.Len(t, exported(t, outDir, "elhub-markedsprosesser-*.csv"), 1)
}
