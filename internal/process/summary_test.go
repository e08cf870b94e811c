package process

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFolder(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "combo000.csv", "Time,Counts\n1,10\n2,30\n")
	writeCSV(t, dir, "my_label.csv", "Time,Counts\n1,--\n")
	writeCSV(t, dir, "zzz.csv", "Counts\n2\n3\n")

	records, err := Folder(dir, "Counts")
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, SummaryRecord{File: "combo000.csv", Mean: 20, Rows: 2}, records[0])
	assert.Equal(t, SummaryRecord{File: "my_label.csv", NoData: true}, records[1])
	assert.Equal(t, SummaryRecord{File: "zzz.csv", Mean: 2.5, Rows: 2}, records[2])

	out, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "total_averages", out)
}

func TestFolder_SkipsColumnlessFiles(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "combo000.csv", "Time,Counts\n1,10\n")
	writeCSV(t, dir, "stray.csv", "Unrelated,Header\n1,2\n")

	records, err := Folder(dir, "Counts")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "combo000.csv", records[0].File)
}

func TestFolder_ExcludesSummaryAndReportFiles(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "combo000.csv", "Counts\n10\n")
	writeCSV(t, dir, "position_report.csv", "Counts\n999\n")
	writeCSV(t, dir, SummaryFile, "filename,avg_Counts\nstale.csv,1\n")

	records, err := Folder(dir, "Counts")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "combo000.csv", records[0].File)
}

func TestFolder_AppendsAcrossPasses(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "combo000.csv", "Counts\n10\n")

	_, err := Folder(dir, "Counts")
	require.NoError(t, err)
	_, err = Folder(dir, "Counts")
	require.NoError(t, err)

	out, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	require.NoError(t, err)
	// Header written once; each pass appends its rows.
	assert.Equal(t, "filename,avg_Counts\ncombo000.csv,10\ncombo000.csv,10\n", string(out))
}

func TestFolder_EmptyDir(t *testing.T) {
	_, err := Folder(t.TempDir(), "Counts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no acquisition CSV files")
}

func TestLatestRunDir(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{
		"2026-08-30-090000_hh",
		"2026-08-31-120000_hh",
		"2026-08-31-120000_other",
	} {
		require.NoError(t, os.Mkdir(filepath.Join(root, name), 0o755))
	}

	dir, err := LatestRunDir(root, "hh")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "2026-08-31-120000_hh"), dir)

	_, err = LatestRunDir(root, "absent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no output folder")
}
