package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/nikmy/sqlrelay/pkg/wire"
)

// MaxSafeInteger is the largest integer a float64 holds exactly (2^53-1).
// With BigInt disabled, JSON numbers are decoded as float64 and integers
// past this bound lose precision.
const MaxSafeInteger = 1<<53 - 1

func IsSafeInteger(v int64) bool {
	return v >= -MaxSafeInteger && v <= MaxSafeInteger
}

// Codec converts wire cells to Go values according to a Policy.
// It is immutable and safe for concurrent use.
type Codec struct {
	policy Policy
}

func New(p Policy) *Codec {
	return &Codec{policy: p.normalized()}
}

func Default() *Codec {
	return New(DefaultPolicy())
}

func (c *Codec) Policy() Policy {
	return c.policy
}

// Integer converts a wire integer per the BigInt setting.
func (c *Codec) Integer(v int64) any {
	if c.policy.BigInt {
		return big.NewInt(v)
	}
	return v
}

// DecodeRow decodes a row against its header. Cells beyond the header are
// decoded without column metadata.
func (c *Codec) DecodeRow(row wire.Row, cols []wire.Column) []any {
	out := make([]any, len(row))
	for i, cell := range row {
		var col wire.Column
		if i < len(cols) {
			col = cols[i]
		}
		out[i] = c.Decode(cell, col)
	}
	return out
}

// Decode converts one cell. The first matching rule wins:
// null, temporal column, JSON column, boolean column, integer, blob, native.
func (c *Codec) Decode(cell wire.Cell, col wire.Column) any {
	if cell.IsNull() {
		return nil
	}

	if col.Declared.IsTemporal() {
		if t, ok := toTime(cell); ok {
			return c.renderTime(t)
		}
		return c.native(cell)
	}

	if col.Declared == wire.TypeJSON && c.policy.JSON && isTextual(cell) {
		if v, ok := c.parseJSON(cell); ok {
			return v
		}
		return cell.Native()
	}

	if col.Declared == wire.TypeBoolean {
		if v, ok := cell.Int64(); ok {
			return v != 0
		}
	}

	return c.native(cell)
}

func isTextual(cell wire.Cell) bool {
	return cell.Kind() == wire.KindText || cell.Kind() == wire.KindBlob
}

func (c *Codec) native(cell wire.Cell) any {
	switch cell.Kind() {
	case wire.KindInteger:
		v, _ := cell.Int64()
		return c.Integer(v)
	case wire.KindBlob:
		b, _ := cell.Bytes()
		return c.renderBlob(b)
	default:
		return cell.Native()
	}
}

func (c *Codec) renderBlob(b []byte) any {
	switch c.policy.Blob {
	case BlobBase64:
		return base64.StdEncoding.EncodeToString(b)
	case BlobHex:
		return hex.EncodeToString(b)
	default:
		return b
	}
}

func (c *Codec) renderTime(t time.Time) any {
	switch c.policy.Date {
	case DateString:
		return t.Format(time.RFC3339Nano)
	case DateNumber:
		return t.UnixMilli()
	default:
		return t
	}
}

var timestampFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

func toTime(cell wire.Cell) (time.Time, bool) {
	switch cell.Kind() {
	case wire.KindText:
		s, _ := cell.Text()
		s = strings.TrimSuffix(strings.TrimSpace(s), "Z")
		for _, format := range timestampFormats {
			if t, err := time.ParseInLocation(format, s, time.UTC); err == nil {
				return t.UTC(), true
			}
		}
		return time.Time{}, false
	case wire.KindInteger:
		v, _ := cell.Int64()
		// 13 digits are too many for seconds: treat as milliseconds.
		if v > 1e12 || v < -1e12 {
			return time.UnixMilli(v).UTC(), true
		}
		return time.Unix(v, 0).UTC(), true
	case wire.KindReal:
		f, _ := cell.Float64()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return time.Time{}, false
		}
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
	default:
		return time.Time{}, false
	}
}

func (c *Codec) parseJSON(cell wire.Cell) (any, bool) {
	var data []byte
	switch cell.Kind() {
	case wire.KindText:
		s, _ := cell.Text()
		data = []byte(s)
	case wire.KindBlob:
		data, _ = cell.Bytes()
	default:
		return nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if c.policy.BigInt {
		dec.UseNumber()
	}

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}

	if c.policy.BigInt {
		v = bigNumbers(v)
	}
	return v, true
}

// bigNumbers replaces json.Number leaves: integers become *big.Int, the rest float64.
func bigNumbers(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, ok := new(big.Int).SetString(v.String(), 10); ok {
			return i
		}
		f, err := v.Float64()
		if err != nil {
			return v.String()
		}
		return f
	case map[string]any:
		for k, item := range v {
			v[k] = bigNumbers(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = bigNumbers(item)
		}
		return v
	default:
		return v
	}
}
