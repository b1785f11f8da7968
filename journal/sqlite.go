package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/autotrader/id"
	"github.com/rustyeddy/autotrader/market"
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

func (j *SQLiteJournal) RecordEntry(e Entry) error {
	if e.TradeID == "" {
		e.TradeID = id.New()
	}
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, symbol, side, qty, entry_price, status, open_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.TradeID, e.Symbol, string(e.Side), e.Qty, e.EntryPrice, StatusOpen, e.OpenTime,
	)
	return err
}

// RecordExit closes the most recent open trade for the symbol. A partial
// exit (smaller quantity than the open trade) leaves the remainder as
// partially_closed and journals the closed slice as its own row. An exit
// with no matching open trade is journaled standalone so the ledger never
// drops a fill.
func (j *SQLiteJournal) RecordExit(x Exit) error {
	var (
		tradeID  string
		side     string
		openQty  float64
		entry    float64
		openTime time.Time
	)
	row := j.db.QueryRow(`
		SELECT trade_id, side, qty, entry_price, open_time
		FROM trades
		WHERE symbol = ? AND status = ?
		ORDER BY open_time DESC
		LIMIT 1`, x.Symbol, StatusOpen)

	err := row.Scan(&tradeID, &side, &openQty, &entry, &openTime)
	if err == sql.ErrNoRows {
		_, err = j.db.Exec(`
			INSERT INTO trades
			(trade_id, symbol, side, qty, entry_price, exit_price, realized_pnl, realized_pnl_pct, status, open_time, close_time, reason)
			VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?)`,
			id.New(), x.Symbol, "", x.Qty, x.ExitPrice, x.RealizedPnL, x.RealizedPnLPct,
			StatusClosed, x.CloseTime, x.CloseTime, x.Reason,
		)
		return err
	}
	if err != nil {
		return err
	}

	if x.Qty > 0 && x.Qty < openQty {
		// Shrink the open trade and record the closed slice separately.
		if _, err := j.db.Exec(`
			UPDATE trades SET qty = ?, status = ? WHERE trade_id = ?`,
			openQty-x.Qty, StatusPartiallyClosed, tradeID); err != nil {
			return err
		}
		_, err = j.db.Exec(`
			INSERT INTO trades
			(trade_id, symbol, side, qty, entry_price, exit_price, realized_pnl, realized_pnl_pct, status, open_time, close_time, reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id.New(), x.Symbol, side, x.Qty, entry, x.ExitPrice, x.RealizedPnL, x.RealizedPnLPct,
			StatusClosed, openTime, x.CloseTime, x.Reason,
		)
		return err
	}

	_, err = j.db.Exec(`
		UPDATE trades
		SET exit_price = ?, realized_pnl = ?, realized_pnl_pct = ?, status = ?, close_time = ?, reason = ?
		WHERE trade_id = ?`,
		x.ExitPrice, x.RealizedPnL, x.RealizedPnLPct, StatusClosed, x.CloseTime, x.Reason, tradeID,
	)
	return err
}

// TrailingPnL sums realized P&L of trades closed since the given time.
func (j *SQLiteJournal) TrailingPnL(since time.Time) (float64, int, error) {
	row := j.db.QueryRow(`
		SELECT COALESCE(SUM(realized_pnl), 0), COUNT(*)
		FROM trades
		WHERE status = ? AND close_time >= ?`, StatusClosed, since)

	var pnl float64
	var n int
	if err := row.Scan(&pnl, &n); err != nil {
		return 0, 0, err
	}
	return pnl, n, nil
}

// GetTrade returns a single trade record by ID.
func (j *SQLiteJournal) GetTrade(tradeID string) (TradeRecord, error) {
	row := j.db.QueryRow(`
		SELECT trade_id, symbol, side, qty, entry_price, exit_price, realized_pnl, realized_pnl_pct, status, open_time, COALESCE(close_time, open_time), reason
		FROM trades
		WHERE trade_id = ?`, tradeID)

	rec, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
	}
	return rec, err
}

// ListTradesClosedBetween returns trades whose close_time is within [start, end).
func (j *SQLiteJournal) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, symbol, side, qty, entry_price, exit_price, realized_pnl, realized_pnl_pct, status, open_time, COALESCE(close_time, open_time), reason
		FROM trades
		WHERE status = ? AND close_time >= ? AND close_time < ?
		ORDER BY close_time ASC`, StatusClosed, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var rec TradeRecord
	var side string
	err := s.Scan(
		&rec.TradeID,
		&rec.Symbol,
		&side,
		&rec.Qty,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.RealizedPnL,
		&rec.RealizedPnLPct,
		&rec.Status,
		&rec.OpenTime,
		&rec.CloseTime,
		&rec.Reason,
	)
	rec.Side = market.Side(side)
	return rec, err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
