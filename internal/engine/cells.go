package engine

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/nikmy/sqlrelay/pkg/wire"
)

// sqliteTime is the layout timestamps are sent in. The sqlite driver
// converts values of DATE, DATETIME and TIMESTAMP columns to time.Time;
// they go back on the wire as text the client can parse.
const sqliteTime = "2006-01-02 15:04:05.999999999-07:00"

func toCell(v any) wire.Cell {
	switch v := v.(type) {
	case nil:
		return wire.Null()
	case int64:
		return wire.Integer(v)
	case float64:
		return wire.Real(v)
	case string:
		return wire.Text(v)
	case []byte:
		return wire.Blob(v)
	case bool:
		if v {
			return wire.Integer(1)
		}
		return wire.Integer(0)
	case time.Time:
		return wire.Text(v.Format(sqliteTime))
	default:
		return wire.Text(fmt.Sprint(v))
	}
}

func toRow(values []any) wire.Row {
	row := make(wire.Row, len(values))
	for i, v := range values {
		row[i] = toCell(v)
	}
	return row
}

func toArgs(p wire.Parameters) []any {
	args := make([]any, 0, p.Len())
	for _, cell := range p.Positional {
		args = append(args, cell.Native())
	}
	for name, cell := range p.Named {
		args = append(args, sql.Named(name, cell.Native()))
	}
	return args
}
