package models

import "strings"

// TypeCategory is the small set of type families the quality engine reasons about.
type TypeCategory string

const (
	TypeCategoryNumeric  TypeCategory = "numeric"
	TypeCategoryText     TypeCategory = "text"
	TypeCategoryTemporal TypeCategory = "temporal"
	TypeCategoryBoolean  TypeCategory = "boolean"
	TypeCategoryOther    TypeCategory = "other"
)

// knownTypes maps normalized dialect type names (PostgreSQL, SQL Server,
// MySQL, SQLite) to their category. Names absent here fall back to
// SQLite-style affinity matching in CategorizeType.
var knownTypes = map[string]TypeCategory{
	// Integers
	"int": TypeCategoryNumeric, "integer": TypeCategoryNumeric, "bigint": TypeCategoryNumeric,
	"smallint": TypeCategoryNumeric, "tinyint": TypeCategoryNumeric, "mediumint": TypeCategoryNumeric,
	"int2": TypeCategoryNumeric, "int4": TypeCategoryNumeric, "int8": TypeCategoryNumeric,
	"serial": TypeCategoryNumeric, "bigserial": TypeCategoryNumeric, "smallserial": TypeCategoryNumeric,

	// Decimals and floats
	"numeric": TypeCategoryNumeric, "decimal": TypeCategoryNumeric, "number": TypeCategoryNumeric,
	"real": TypeCategoryNumeric, "float": TypeCategoryNumeric, "float4": TypeCategoryNumeric,
	"float8": TypeCategoryNumeric, "double": TypeCategoryNumeric, "double precision": TypeCategoryNumeric,
	"money": TypeCategoryNumeric, "smallmoney": TypeCategoryNumeric,

	// Text
	"text": TypeCategoryText, "varchar": TypeCategoryText, "character varying": TypeCategoryText,
	"char": TypeCategoryText, "character": TypeCategoryText, "bpchar": TypeCategoryText,
	"nchar": TypeCategoryText, "nvarchar": TypeCategoryText, "ntext": TypeCategoryText,
	"citext": TypeCategoryText, "name": TypeCategoryText, "string": TypeCategoryText,
	"tinytext": TypeCategoryText, "mediumtext": TypeCategoryText, "longtext": TypeCategoryText,
	"clob": TypeCategoryText, "enum": TypeCategoryText,

	// Date and time
	"date": TypeCategoryTemporal, "time": TypeCategoryTemporal, "timetz": TypeCategoryTemporal,
	"timestamp": TypeCategoryTemporal, "timestamptz": TypeCategoryTemporal,
	"timestamp without time zone": TypeCategoryTemporal, "timestamp with time zone": TypeCategoryTemporal,
	"time without time zone": TypeCategoryTemporal, "time with time zone": TypeCategoryTemporal,
	"datetime": TypeCategoryTemporal, "datetime2": TypeCategoryTemporal,
	"smalldatetime": TypeCategoryTemporal, "datetimeoffset": TypeCategoryTemporal,

	// Boolean
	"bool": TypeCategoryBoolean, "boolean": TypeCategoryBoolean, "bit": TypeCategoryBoolean,

	// Types whose names would otherwise trip the affinity fallback
	"interval": TypeCategoryOther, "point": TypeCategoryOther, "uuid": TypeCategoryOther,
	"uniqueidentifier": TypeCategoryOther, "json": TypeCategoryOther, "jsonb": TypeCategoryOther,
	"xml": TypeCategoryOther, "bytea": TypeCategoryOther, "blob": TypeCategoryOther,
}

// nonComparableTypes cannot be used with COUNT(DISTINCT ...) on at least one
// supported dialect.
var nonComparableTypes = map[string]bool{
	"json": true, "jsonb": true, "xml": true,
	"bytea": true, "blob": true, "tinyblob": true, "mediumblob": true, "longblob": true,
	"image": true, "geometry": true, "geography": true, "hierarchyid": true, "sql_variant": true,
	"ntext": true,
	"point": true, "polygon": true, "line": true, "lseg": true, "box": true, "path": true, "circle": true,
}

// NormalizeTypeName lowercases a declared type and strips precision and array suffixes.
func NormalizeTypeName(dataType string) string {
	t := strings.ToLower(strings.TrimSpace(dataType))
	if idx := strings.Index(t, "("); idx > 0 {
		rest := ""
		if end := strings.Index(t[idx:], ")"); end >= 0 {
			rest = t[idx+end+1:]
		}
		t = strings.TrimSpace(t[:idx] + rest)
	}
	t = strings.TrimSuffix(t, "[]")
	t = strings.TrimSuffix(t, " unsigned")
	return strings.Join(strings.Fields(t), " ")
}

// CategorizeType maps a declared column type to a TypeCategory.
func CategorizeType(dataType string) TypeCategory {
	t := NormalizeTypeName(dataType)
	if strings.HasSuffix(strings.ToLower(strings.TrimSpace(dataType)), "[]") {
		return TypeCategoryOther
	}
	if cat, ok := knownTypes[t]; ok {
		return cat
	}

	// SQLite-style affinity for free-form declared types.
	switch {
	case strings.Contains(t, "char"), strings.Contains(t, "text"), strings.Contains(t, "clob"):
		return TypeCategoryText
	case strings.Contains(t, "date"), strings.Contains(t, "time"):
		return TypeCategoryTemporal
	case strings.Contains(t, "bool"):
		return TypeCategoryBoolean
	case strings.Contains(t, "int"), strings.Contains(t, "dec"), strings.Contains(t, "num"),
		strings.Contains(t, "float"), strings.Contains(t, "double"), strings.Contains(t, "real"):
		return TypeCategoryNumeric
	}
	return TypeCategoryOther
}

// IsDistinctComparable reports whether COUNT(DISTINCT col) is valid for the type.
func IsDistinctComparable(dataType string) bool {
	return !nonComparableTypes[NormalizeTypeName(dataType)]
}

var timeOfDayTypes = map[string]bool{
	"time": true, "timetz": true, "time with time zone": true, "time without time zone": true,
}

// HasDateComponent reports whether values of a temporal type carry a calendar
// date, which freshness needs. Time-of-day types do not.
func HasDateComponent(dataType string) bool {
	return CategorizeType(dataType) == TypeCategoryTemporal && !timeOfDayTypes[NormalizeTypeName(dataType)]
}
