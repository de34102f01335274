package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/amirphl/harga-pangan/app/dto"
	businessflow "github.com/amirphl/harga-pangan/business_flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := runCLI(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "usage: hargactl")

	code, _, stderr = runCLI(t, "export")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "export"`)
}

func TestScrapeTest_Mock(t *testing.T) {
	dir := t.TempDir()
	code, stdout, _ := runCLI(t, "scrape-test", "--mock", "--start", "2024-01", "--end", "2024-02", "--save", dir)
	require.Equal(t, businessflow.ScrapeOK, code)

	var report businessflow.ScrapeReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.True(t, report.OK)
	assert.Equal(t, 4, report.Records)
	assert.Equal(t, "Rp./Kg", report.Unit)

	_, err := os.Stat(filepath.Join(dir, "payload-2024-02.json"))
	assert.NoError(t, err)
}

func TestScrapeTest_NoRecords(t *testing.T) {
	code, stdout, _ := runCLI(t, "scrape-test", "--mock", "--start", "2030-01")
	assert.Equal(t, businessflow.ScrapeNoRecords, code)
	assert.Contains(t, stdout, "2030-01")
}

func TestScrapeTest_BadFlags(t *testing.T) {
	code, _, _ := runCLI(t, "scrape-test", "--mock", "--start", "2024-13")
	assert.Equal(t, 2, code)

	code, _, stderr := runCLI(t, "scrape-test", "--mock", "--start", "2024-05", "--end", "2024-01")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "--end must not be before --start")
}

func TestIngest_DryRunMock(t *testing.T) {
	code, stdout, stderr := runCLI(t, "ingest", "--mock", "--dry-run", "--start", "2024-01", "--end", "2024-03")
	require.Equal(t, 0, code, stderr)

	var result dto.IngestRangeResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.True(t, result.DryRun)
	assert.Equal(t, 3, result.Months)
	assert.Equal(t, 6, result.NormalizedRows)
	assert.Zero(t, result.Summary.Persisted())
}

func TestIngest_Validation(t *testing.T) {
	code, _, stderr := runCLI(t, "ingest", "--mock", "--dry-run", "--start", "2024-01")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "--start and --end are required")

	code, _, _ = runCLI(t, "ingest", "--mock", "--dry-run", "--start", "2024-03", "--end", "2024-01")
	assert.Equal(t, 2, code)

	code, _, _ = runCLI(t, "ingest", "--mock", "--dry-run", "--start", "2024-01", "--end", "2024-01", "--level", "7")
	assert.Equal(t, 2, code)
}

func TestIngest_DryRunEmptyMonth(t *testing.T) {
	code, stdout, _ := runCLI(t, "ingest", "--mock", "--dry-run", "--start", "2030-01", "--end", "2030-01")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, `"normalized_rows": 0`)
}
