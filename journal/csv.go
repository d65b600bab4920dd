package journal

import (
	"encoding/csv"
	"os"
	"time"
)

type CSVJournal struct {
	w *csv.Writer
	f *os.File
}

func NewCSV(path string) (*CSVJournal, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "symbol", "mode", "outcome", "quantity", "buy_price", "sell_price", "buy_time", "sell_time", "notional", "final_value"}); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{w: w, f: f}, nil
}

func (j *CSVJournal) RecordSim(r SimRecord) error {
	err := j.w.Write([]string{
		r.ID,
		r.Symbol,
		string(r.Mode),
		r.Outcome,
		r.Quantity.String(),
		r.BuyPrice.String(),
		r.SellPrice.String(),
		r.BuyTime.Format(time.RFC3339),
		r.SellTime.Format(time.RFC3339),
		r.Notional.String(),
		r.FinalValue.String(),
	})
	if err != nil {
		return err
	}

	j.w.Flush()
	return j.w.Error()
}

func (j *CSVJournal) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		return err
	}
	return j.f.Close()
}
