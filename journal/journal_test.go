package journal

import (
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() SimRecord {
	return SimRecord{
		ID:         "01HZXY5T9GQ4R8WJ2K3M6N7P8Q",
		Symbol:     "BTCUSDT",
		Mode:       ModeHistorical,
		Outcome:    "target-reached",
		Quantity:   decimal.RequireFromString("0.025"),
		BuyPrice:   decimal.RequireFromString("40000"),
		SellPrice:  decimal.RequireFromString("42000"),
		BuyTime:    time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		SellTime:   time.Date(2022, 1, 1, 3, 0, 0, 0, time.UTC),
		Notional:   decimal.RequireFromString("1000"),
		FinalValue: decimal.RequireFromString("1050"),
	}
}

func TestSQLiteJournalRecordSim(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	require.NoError(t, j.RecordSim(sampleRecord()))

	rt := sampleRecord()
	rt.ID = "01HZXY5T9GQ4R8WJ2K3M6N7P8R"
	rt.Mode = ModeRealTime
	require.NoError(t, j.RecordSim(rt))
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM simulations`).Scan(&count))
	assert.Equal(t, 2, count)

	var symbol, mode, quantity, finalValue string
	row := db.QueryRow(`SELECT symbol, mode, quantity, final_value FROM simulations WHERE id = ?`, sampleRecord().ID)
	require.NoError(t, row.Scan(&symbol, &mode, &quantity, &finalValue))
	assert.Equal(t, "BTCUSDT", symbol)
	assert.Equal(t, "historical", mode)
	assert.Equal(t, "0.025", quantity)
	assert.Equal(t, "1050", finalValue)
}

func TestSQLiteJournalDuplicateIDRejected(t *testing.T) {
	t.Parallel()

	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.RecordSim(sampleRecord()))
	assert.Error(t, j.RecordSim(sampleRecord()))
}

func TestCSVJournalRecordSim(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.csv")

	j, err := NewCSV(path)
	require.NoError(t, err)
	require.NoError(t, j.RecordSim(sampleRecord()))
	require.NoError(t, j.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "id", rows[0][0])
	assert.Equal(t, "BTCUSDT", rows[1][1])
	assert.Equal(t, "historical", rows[1][2])
	assert.Equal(t, "0.025", rows[1][4])
	assert.Equal(t, "2022-01-01T00:00:00Z", rows[1][7])
}

func TestNopJournal(t *testing.T) {
	t.Parallel()

	var j Journal = Nop{}
	assert.NoError(t, j.RecordSim(sampleRecord()))
	assert.NoError(t, j.Close())
}
