package journal

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/autotrader/id"
)

// CSVJournal appends trade events to a single CSV file. Unlike the SQLite
// backend it never rewrites rows: entries and exits are separate events.
type CSVJournal struct {
	path string
	w    *csv.Writer
	f    *os.File
}

var csvHeader = []string{
	"event", "trade_id", "symbol", "side", "qty", "price",
	"realized_pnl", "realized_pnl_pct", "time", "reason",
}

func NewCSV(path string) (*CSVJournal, error) {
	info, err := os.Stat(path)
	fresh := err != nil || info.Size() == 0

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(csvHeader); err != nil {
			f.Close()
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, err
		}
	}

	return &CSVJournal{path: path, w: w, f: f}, nil
}

func (j *CSVJournal) RecordEntry(e Entry) error {
	if e.TradeID == "" {
		e.TradeID = id.New()
	}
	return j.write([]string{
		"entry", e.TradeID, e.Symbol, string(e.Side),
		f(e.Qty), f(e.EntryPrice), "0", "0",
		e.OpenTime.Format(time.RFC3339), "",
	})
}

func (j *CSVJournal) RecordExit(x Exit) error {
	return j.write([]string{
		"exit", id.New(), x.Symbol, "",
		f(x.Qty), f(x.ExitPrice), f(x.RealizedPnL), f(x.RealizedPnLPct),
		x.CloseTime.Format(time.RFC3339), x.Reason,
	})
}

func (j *CSVJournal) write(row []string) error {
	if err := j.w.Write(row); err != nil {
		return err
	}
	j.w.Flush()
	return j.w.Error()
}

// TrailingPnL reads the file back and sums exit events since the given
// time. The file stays small enough in practice that a linear scan per tune
// window is fine.
func (j *CSVJournal) TrailingPnL(since time.Time) (float64, int, error) {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		return 0, 0, err
	}

	rf, err := os.Open(j.path)
	if err != nil {
		return 0, 0, err
	}
	defer rf.Close()

	r := csv.NewReader(rf)
	r.FieldsPerRecord = len(csvHeader)

	var pnl float64
	var n int
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, 0, err
		}
		if row[0] != "exit" {
			continue
		}
		t, err := time.Parse(time.RFC3339, row[8])
		if err != nil || t.Before(since) {
			continue
		}
		v, err := strconv.ParseFloat(row[6], 64)
		if err != nil {
			continue
		}
		pnl += v
		n++
	}
	return pnl, n, nil
}

func (j *CSVJournal) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		return err
	}
	return j.f.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
