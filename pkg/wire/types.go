package wire

import "strings"

// Affinity is the SQLite storage class a column prefers.
type Affinity int32

const (
	AffinityUnspecified Affinity = iota
	AffinityInteger
	AffinityText
	AffinityBlob
	AffinityReal
	AffinityNumeric
)

func (a Affinity) String() string {
	switch a {
	case AffinityInteger:
		return "INTEGER"
	case AffinityText:
		return "TEXT"
	case AffinityBlob:
		return "BLOB"
	case AffinityReal:
		return "REAL"
	case AffinityNumeric:
		return "NUMERIC"
	default:
		return ""
	}
}

// AffinityOf applies the SQLite column affinity rules to a declared type.
// An empty declaration (expressions, computed columns) stays unspecified.
func AffinityOf(raw string) Affinity {
	t := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case t == "":
		return AffinityUnspecified
	case strings.Contains(t, "INT"):
		return AffinityInteger
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return AffinityText
	case strings.Contains(t, "BLOB"):
		return AffinityBlob
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return AffinityReal
	default:
		return AffinityNumeric
	}
}

// DeclaredType is the nominal SQL type of a column as written in the schema.
type DeclaredType int32

const (
	TypeUnspecified DeclaredType = iota
	TypeInteger
	TypeBigInt
	TypeSmallInt
	TypeTinyInt
	TypeReal
	TypeDouble
	TypeFloat
	TypeNumeric
	TypeDecimal
	TypeBoolean
	TypeText
	TypeVarchar
	TypeChar
	TypeClob
	TypeBlob
	TypeJSON
	TypeDate
	TypeDateTime
	TypeTimestamp
)

var declaredNames = map[string]DeclaredType{
	"INTEGER":           TypeInteger,
	"INT":               TypeInteger,
	"MEDIUMINT":         TypeInteger,
	"BIGINT":            TypeBigInt,
	"UNSIGNED BIG INT":  TypeBigInt,
	"INT8":              TypeBigInt,
	"SMALLINT":          TypeSmallInt,
	"INT2":              TypeSmallInt,
	"TINYINT":           TypeTinyInt,
	"REAL":              TypeReal,
	"DOUBLE":            TypeDouble,
	"DOUBLE PRECISION":  TypeDouble,
	"FLOAT":             TypeFloat,
	"NUMERIC":           TypeNumeric,
	"DECIMAL":           TypeDecimal,
	"BOOLEAN":           TypeBoolean,
	"BOOL":              TypeBoolean,
	"TEXT":              TypeText,
	"VARCHAR":           TypeVarchar,
	"NVARCHAR":          TypeVarchar,
	"VARYING CHARACTER": TypeVarchar,
	"CHAR":              TypeChar,
	"CHARACTER":         TypeChar,
	"NCHAR":             TypeChar,
	"CLOB":              TypeClob,
	"BLOB":              TypeBlob,
	"JSON":              TypeJSON,
	"JSONB":             TypeJSON,
	"DATE":              TypeDate,
	"DATETIME":          TypeDateTime,
	"TIMESTAMP":         TypeTimestamp,
}

// ParseDeclaredType maps raw schema text such as "varchar(255)" or
// "DOUBLE PRECISION" to a DeclaredType. Unknown names are unspecified.
func ParseDeclaredType(raw string) DeclaredType {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	t = strings.Join(strings.Fields(t), " ")
	return declaredNames[t]
}

func (d DeclaredType) String() string {
	switch d {
	case TypeInteger:
		return "INTEGER"
	case TypeBigInt:
		return "BIGINT"
	case TypeSmallInt:
		return "SMALLINT"
	case TypeTinyInt:
		return "TINYINT"
	case TypeReal:
		return "REAL"
	case TypeDouble:
		return "DOUBLE"
	case TypeFloat:
		return "FLOAT"
	case TypeNumeric:
		return "NUMERIC"
	case TypeDecimal:
		return "DECIMAL"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeText:
		return "TEXT"
	case TypeVarchar:
		return "VARCHAR"
	case TypeChar:
		return "CHAR"
	case TypeClob:
		return "CLOB"
	case TypeBlob:
		return "BLOB"
	case TypeJSON:
		return "JSON"
	case TypeDate:
		return "DATE"
	case TypeDateTime:
		return "DATETIME"
	case TypeTimestamp:
		return "TIMESTAMP"
	default:
		return ""
	}
}

// IsTemporal reports whether values of the type are rendered as dates.
func (d DeclaredType) IsTemporal() bool {
	return d == TypeDate || d == TypeDateTime || d == TypeTimestamp
}

// Column is the metadata of one result column.
type Column struct {
	Name     string       `bson:"name"`
	Affinity Affinity     `bson:"affinity"`
	Declared DeclaredType `bson:"declared"`
	Raw      string       `bson:"raw,omitempty"`
}

// ColumnOf builds column metadata from a name and the raw declared type.
func ColumnOf(name, raw string) Column {
	return Column{
		Name:     name,
		Affinity: AffinityOf(raw),
		Declared: ParseDeclaredType(raw),
		Raw:      raw,
	}
}

func ColumnNames(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
