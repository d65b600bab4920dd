package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rustyeddy/coinsim/market"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "klines.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFirstBarFromCSV(t *testing.T) {
	t.Parallel()

	// 1502928000000 = 2017-08-17T00:00:00Z
	path := writeTempCSV(t,
		"1502928000000,4261.48,4485.39,3850.00,4285.08,795.15,1503014399999,3454770.05,3427,616.24,2678216.40,0\n"+
			"1503014400000,4285.08,4371.52,3938.77,4108.37,1199.88,1503100799999,5086958.30,5233,972.86,4129123.31,0\n")

	bar, err := firstBarFromCSV(path)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2017, 8, 17, 0, 0, 0, 0, time.UTC), bar.Time)
	assert.Equal(t, "4261.48", bar.Open.String())
	assert.Equal(t, "4285.08", bar.Close.String())
}

func TestFirstBarFromCSVSkipsHeader(t *testing.T) {
	t.Parallel()

	path := writeTempCSV(t,
		"open_time,open,high,low,close,volume,close_time,quote_volume,count,taker_buy_volume,taker_buy_quote_volume,ignore\n"+
			"1502928000000,4261.48,4485.39,3850.00,4285.08,795.15,1503014399999,3454770.05,3427,616.24,2678216.40,0\n")

	bar, err := firstBarFromCSV(path)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2017, 8, 17, 0, 0, 0, 0, time.UTC), bar.Time)
}

func TestFirstBarFromCSVMicrosecondTimestamps(t *testing.T) {
	t.Parallel()

	// Dumps from 2025 onwards use microseconds.
	path := writeTempCSV(t,
		"1502928000000000,4261.48,4485.39,3850.00,4285.08,795.15,1503014399999999,3454770.05,3427,616.24,2678216.40,0\n")

	bar, err := firstBarFromCSV(path)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2017, 8, 17, 0, 0, 0, 0, time.UTC), bar.Time)
}

func TestFirstBarFromCSVBadRow(t *testing.T) {
	t.Parallel()

	_, err := firstBarFromCSV(writeTempCSV(t, "1502928000000,oops\n"))
	assert.Error(t, err)
}

// dumpZip builds an in-memory monthly kline archive the way the public
// data host lays them out: one CSV named after the archive.
func dumpZip(t *testing.T, name, csvContent string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create(name + ".csv")
	require.NoError(t, err)
	_, err = f.Write([]byte(csvContent))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestImporterImport(t *testing.T) {
	t.Parallel()

	month := time.Date(2017, 8, 1, 0, 0, 0, 0, time.UTC)
	archive := dumpZip(t, "BTCUSDT-1d-2017-08",
		"1502928000000,4261.48,4485.39,3850.00,4285.08,795.15,1503014399999,3454770.05,3427,616.24,2678216.40,0\n")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data/spot/monthly/klines/BTCUSDT/1d/BTCUSDT-1d-2017-08.zip":
			w.Write(archive)
		default:
			// Instruments with no dump for the month get a 404.
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	store := newTestStore(t)
	imp := NewImporter(server.URL, t.TempDir(), store, zap.NewNop(), 1)

	err := imp.Import(context.Background(), []market.Instrument{btc(), eth()}, month)
	require.NoError(t, err)

	assert.Equal(t, []string{"BTCUSDT"}, store.Fetched())
	assert.False(t, store.Contains("ETHUSDT"), "404 must not mark the symbol")
}
