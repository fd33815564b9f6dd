package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/txn"
	"github.com/nikmy/sqlrelay/pkg/wire"
)

type printer struct {
	enc *json.Encoder
}

func newPrinter(w io.Writer) *printer {
	return &printer{enc: json.NewEncoder(w)}
}

type summary struct {
	SQL          string `json:"sql"`
	Rows         int64  `json:"rows,omitempty"`
	RowsAffected int64  `json:"rowsAffected,omitempty"`
	LastInsertID int64  `json:"lastInsertId,omitempty"`
	Duration     string `json:"duration,omitempty"`
}

// run streams one statement: a column line, one line per row, then a summary.
func (p *printer) run(ctx context.Context, s *txn.Session, sql string) error {
	it, err := s.Iterate(ctx, txn.Stmt(sql))
	if err != nil {
		return err
	}
	defer it.Close()

	cols, err := it.Columns(ctx)
	if err != nil {
		return err
	}
	if len(cols) > 0 {
		if err := p.enc.Encode(wire.ColumnNames(cols)); err != nil {
			return errors.WrapFail(err, "print columns")
		}
	}

	for {
		row, err := it.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		if err := p.enc.Encode(row); err != nil {
			return errors.WrapFail(err, "print row")
		}
	}

	stats := it.Stats()
	return errors.WrapFail(p.enc.Encode(summary{
		SQL:          sql,
		Rows:         stats.RowsRead,
		RowsAffected: stats.RowsAffected,
		LastInsertID: stats.LastInsertID,
		Duration:     stats.Duration.String(),
	}), "print summary")
}
