package results

import (
	"context"
	"io"
	"math/big"

	"github.com/nikmy/sqlrelay/pkg/codec"
	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/frames"
	"github.com/nikmy/sqlrelay/pkg/wire"
)

const DefaultBatchSize = 500

type Kind int

const (
	// RowSet results come from streams that carried a header or rows.
	RowSet Kind = iota + 1
	// DML results only carry statistics.
	DML
)

func (k Kind) String() string {
	switch k {
	case RowSet:
		return "rows"
	case DML:
		return "dml"
	default:
		return "unknown"
	}
}

// Result is a fully buffered statement result.
type Result struct {
	Kind    Kind
	Columns []wire.Column
	Rows    [][]any
	Stats   wire.Stats

	// RowsAffected and LastInsertID hold *big.Int or int64, depending on
	// the codec policy.
	RowsAffected any
	LastInsertID any
}

func (r *Result) ColumnNames() []string {
	return wire.ColumnNames(r.Columns)
}

// Buffer drains the stream and decodes every row. The decoder is closed on
// return; any error frame fails the whole call.
func Buffer(ctx context.Context, dec *frames.Decoder, c *codec.Codec) (*Result, error) {
	defer dec.Close()

	var rows [][]any
	for {
		batch, err := dec.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		for _, row := range batch {
			rows = append(rows, c.DecodeRow(row, dec.Columns()))
		}
	}

	res := &Result{
		Columns:      dec.Columns(),
		Rows:         rows,
		Stats:        dec.Stats(),
		RowsAffected: c.Integer(dec.Stats().RowsAffected),
		LastInsertID: c.Integer(dec.Stats().LastInsertID),
	}

	res.Kind = DML
	if dec.HasHeader() || len(rows) > 0 {
		res.Kind = RowSet
	}
	if res.Rows == nil {
		res.Rows = [][]any{}
	}

	return res, nil
}

// AsInt64 converts a value produced under either integer policy.
func AsInt64(v any) (int64, error) {
	switch v := v.(type) {
	case int64:
		return v, nil
	case *big.Int:
		if v == nil || !v.IsInt64() {
			return 0, errors.Errorf("integer %s overflows int64", v)
		}
		return v.Int64(), nil
	default:
		return 0, errors.Errorf("%T is not an integer", v)
	}
}
