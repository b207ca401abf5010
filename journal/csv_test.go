package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ops.csv")
	j, err := NewCSV(path)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	rows := readCSV(t, path)
	require.Len(t, rows, 1)
	assert.Equal(t, csvHeader, rows[0])
}

func TestCSVRecord(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ops.csv")
	j, err := NewCSV(path)
	require.NoError(t, err)

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, j.Record(Entry{
		OpID:        "OP1",
		Time:        at,
		Kind:        KindWithdraw,
		Account:     "alice",
		Requested:   100,
		Amount:      100,
		Shares:      100,
		TotalShares: 90,
		Status:      StatusOK,
	}))
	require.NoError(t, j.Close())

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"OP1", "2024-01-02T03:04:05Z", "withdraw", "alice", "100", "100", "100", "90", "ok", ""}, rows[1])
}

func TestCSVCreateFails(t *testing.T) {
	t.Parallel()

	_, err := NewCSV(filepath.Join(t.TempDir(), "missing", "ops.csv"))
	assert.Error(t, err)
}
