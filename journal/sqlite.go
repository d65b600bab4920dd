package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordSim(r SimRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO simulations
		(id, symbol, mode, outcome, quantity, buy_price, sell_price, buy_time, sell_time, notional, final_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Symbol, string(r.Mode), r.Outcome,
		r.Quantity.String(), r.BuyPrice.String(), r.SellPrice.String(),
		r.BuyTime, r.SellTime, r.Notional.String(), r.FinalValue.String(),
	)
	return err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
