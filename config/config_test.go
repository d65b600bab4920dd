package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "none", cfg.Journal.Type)
	assert.Equal(t, "USDT", cfg.Screen.QuoteAsset)
}

func TestParseStartTime(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
		want  time.Time
		bad   bool
	}{
		{name: "date", input: "2022-01-01", want: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "rfc3339", input: "2022-01-01T12:30:00Z", want: time.Date(2022, 1, 1, 12, 30, 0, 0, time.UTC)},
		{name: "epoch millis", input: "1640995200000", want: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "empty", input: "", bad: true},
		{name: "garbage", input: "next tuesday", bad: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			cfg.Simulation.StartTime = tc.input

			got, err := cfg.ParseStartTime()
			if tc.bad {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMonitorMax(t *testing.T) {
	t.Parallel()

	cfg := Default()
	d, err := cfg.MonitorMax()
	require.NoError(t, err)
	assert.Zero(t, d, "unset means unbounded")

	cfg.Simulation.MonitorMaxDuration = "72h"
	d, err = cfg.MonitorMax()
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, d)

	cfg.Simulation.MonitorMaxDuration = "three days"
	_, err = cfg.MonitorMax()
	assert.Error(t, err)
}

func TestLoadFromFileYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
simulation:
  start_time: "2021-06-15"
  budget_usd: 2500
  target_price: 3000
  num_symbols: 5
journal:
  type: sqlite
  path: ./journal.db
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 2500.0, cfg.Simulation.BudgetUSD)
	assert.Equal(t, 5, cfg.Simulation.NumSymbols)
	assert.Equal(t, "sqlite", cfg.Journal.Type)

	// Untouched sections keep their defaults.
	assert.Equal(t, "./fetched_symbols.json", cfg.Cache.FetchedSymbolsPath)
}

func TestLoadFromFileJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"simulation": {"start_time": "2021-06-15", "budget_usd": 500, "target_price": 600, "num_symbols": 2}
	}`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 500.0, cfg.Simulation.BudgetUSD)
}

func TestLoadFromFileRejectsInvalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
simulation:
  budget_usd: -5
`), 0o644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoadFromFileMissing(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SIM_BUDGET_USD", "4242")
	t.Setenv("JOURNAL_TYPE", "csv")
	t.Setenv("JOURNAL_PATH", "/tmp/journal.csv")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, 4242.0, cfg.Simulation.BudgetUSD)
	assert.Equal(t, "csv", cfg.Journal.Type)
}

func TestValidateJournal(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Journal.Type = "sqlite"
	assert.Error(t, cfg.Validate(), "path required for sqlite")

	cfg.Journal.Path = "./journal.db"
	assert.NoError(t, cfg.Validate())

	cfg.Journal.Type = "postgres"
	assert.Error(t, cfg.Validate())
}
