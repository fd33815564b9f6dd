package wire

import (
	"bytes"
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nikmy/sqlrelay/pkg/errors"
)

type CellKind uint8

const (
	KindNull CellKind = iota
	KindInteger
	KindReal
	KindText
	KindBlob
)

func (k CellKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Cell is one value of a row as it travels on the wire. The zero Cell is null.
type Cell struct {
	kind CellKind
	i    int64
	f    float64
	s    string
	b    []byte
}

type Row []Cell

func Null() Cell           { return Cell{} }
func Integer(v int64) Cell { return Cell{kind: KindInteger, i: v} }
func Real(v float64) Cell  { return Cell{kind: KindReal, f: v} }
func Text(v string) Cell   { return Cell{kind: KindText, s: v} }
func Blob(v []byte) Cell {
	if v == nil {
		v = []byte{}
	}
	return Cell{kind: KindBlob, b: v}
}

func (c Cell) Kind() CellKind { return c.kind }
func (c Cell) IsNull() bool   { return c.kind == KindNull }

func (c Cell) Int64() (int64, bool)     { return c.i, c.kind == KindInteger }
func (c Cell) Float64() (float64, bool) { return c.f, c.kind == KindReal }
func (c Cell) Text() (string, bool)     { return c.s, c.kind == KindText }
func (c Cell) Bytes() ([]byte, bool)    { return c.b, c.kind == KindBlob }

// Native returns the cell as a plain Go value with no type coercion.
func (c Cell) Native() any {
	switch c.kind {
	case KindInteger:
		return c.i
	case KindReal:
		return c.f
	case KindText:
		return c.s
	case KindBlob:
		return c.b
	default:
		return nil
	}
}

func (c Cell) Equal(o Cell) bool {
	if c.kind != o.kind {
		return false
	}
	switch c.kind {
	case KindInteger:
		return c.i == o.i
	case KindReal:
		return c.f == o.f
	case KindText:
		return c.s == o.s
	case KindBlob:
		return bytes.Equal(c.b, o.b)
	default:
		return true
	}
}

func (c Cell) String() string {
	switch c.kind {
	case KindInteger:
		return strconv.FormatInt(c.i, 10)
	case KindReal:
		return strconv.FormatFloat(c.f, 'g', -1, 64)
	case KindText:
		return strconv.Quote(c.s)
	case KindBlob:
		return fmt.Sprintf("x'%x'", c.b)
	default:
		return "NULL"
	}
}

func (c Cell) MarshalBSONValue() (bsontype.Type, []byte, error) {
	switch c.kind {
	case KindNull:
		return bsontype.Null, nil, nil
	case KindInteger:
		return bson.MarshalValue(c.i)
	case KindReal:
		return bson.MarshalValue(c.f)
	case KindText:
		return bson.MarshalValue(c.s)
	case KindBlob:
		return bson.MarshalValue(primitive.Binary{Data: c.b})
	default:
		return 0, nil, errors.Errorf("unknown cell kind %s", c.kind)
	}
}

func (c *Cell) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}

	switch t {
	case bsontype.Null, bsontype.Undefined:
		*c = Null()
	case bsontype.Int64:
		*c = Integer(rv.Int64())
	case bsontype.Int32:
		*c = Integer(int64(rv.Int32()))
	case bsontype.Boolean:
		if rv.Boolean() {
			*c = Integer(1)
		} else {
			*c = Integer(0)
		}
	case bsontype.Double:
		*c = Real(rv.Double())
	case bsontype.String:
		*c = Text(rv.StringValue())
	case bsontype.Binary:
		_, b := rv.Binary()
		*c = Blob(bytes.Clone(b))
	default:
		return errors.Errorf("unsupported bson type %s for cell", t)
	}

	return nil
}
