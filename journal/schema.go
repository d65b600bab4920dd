package journal

const Schema = `
CREATE TABLE IF NOT EXISTS simulations (
	id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	mode TEXT NOT NULL,
	outcome TEXT NOT NULL,
	quantity TEXT NOT NULL,
	buy_price TEXT NOT NULL,
	sell_price TEXT NOT NULL,
	buy_time DATETIME NOT NULL,
	sell_time DATETIME NOT NULL,
	notional TEXT NOT NULL,
	final_value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_simulations_symbol ON simulations(symbol);
`
