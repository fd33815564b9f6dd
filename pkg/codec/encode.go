package codec

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"time"

	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/wire"
)

type UnsupportedTypeError struct {
	Type reflect.Type
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported parameter type %s", e.Type)
}

// Encode converts a statement parameter to a wire cell.
//
// Booleans become 0/1, times become RFC 3339 text in UTC, big integers that do
// not fit int64 become decimal text, and maps, slices and structs are sent as
// JSON text.
func Encode(v any) (wire.Cell, error) {
	switch v := v.(type) {
	case nil:
		return wire.Null(), nil
	case wire.Cell:
		return v, nil
	case int:
		return wire.Integer(int64(v)), nil
	case int8:
		return wire.Integer(int64(v)), nil
	case int16:
		return wire.Integer(int64(v)), nil
	case int32:
		return wire.Integer(int64(v)), nil
	case int64:
		return wire.Integer(v), nil
	case uint:
		return encodeUint(uint64(v))
	case uint8:
		return wire.Integer(int64(v)), nil
	case uint16:
		return wire.Integer(int64(v)), nil
	case uint32:
		return wire.Integer(int64(v)), nil
	case uint64:
		return encodeUint(v)
	case float32:
		return wire.Real(float64(v)), nil
	case float64:
		return wire.Real(v), nil
	case bool:
		if v {
			return wire.Integer(1), nil
		}
		return wire.Integer(0), nil
	case string:
		return wire.Text(v), nil
	case []byte:
		if v == nil {
			return wire.Null(), nil
		}
		return wire.Blob(v), nil
	case json.RawMessage:
		return wire.Text(string(v)), nil
	case time.Time:
		return wire.Text(v.UTC().Format(time.RFC3339Nano)), nil
	case *big.Int:
		if v == nil {
			return wire.Null(), nil
		}
		if v.IsInt64() {
			return wire.Integer(v.Int64()), nil
		}
		return wire.Text(v.String()), nil
	case driver.Valuer:
		return encodeValuer(v)
	}

	return encodeReflect(reflect.ValueOf(v))
}

func encodeUint(v uint64) (wire.Cell, error) {
	if v > math.MaxInt64 {
		return wire.Cell{}, errors.Errorf("unsigned parameter %d overflows int64", v)
	}
	return wire.Integer(int64(v)), nil
}

func encodeValuer(v driver.Valuer) (wire.Cell, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return wire.Null(), nil
	}

	dv, err := v.Value()
	if err != nil {
		return wire.Cell{}, errors.WrapFail(err, "get driver value")
	}
	if _, again := dv.(driver.Valuer); again {
		return wire.Cell{}, errors.Errorf("driver value of %T is a valuer itself", v)
	}
	return Encode(dv)
}

func encodeReflect(rv reflect.Value) (wire.Cell, error) {
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return wire.Null(), nil
		}
		return Encode(rv.Elem().Interface())
	case reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return wire.Null(), nil
		}
		return encodeJSON(rv.Interface())
	case reflect.Struct, reflect.Array:
		return encodeJSON(rv.Interface())
	case reflect.String:
		return wire.Text(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return wire.Integer(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return encodeUint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return wire.Real(rv.Float()), nil
	case reflect.Bool:
		return Encode(rv.Bool())
	default:
		return wire.Cell{}, &UnsupportedTypeError{Type: rv.Type()}
	}
}

func encodeJSON(v any) (wire.Cell, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return wire.Cell{}, errors.WrapFailf(err, "encode %T parameter as json", v)
	}
	return wire.Text(string(data)), nil
}
