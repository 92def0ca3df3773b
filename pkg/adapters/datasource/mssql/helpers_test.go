package mssql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/ekaya-quality/pkg/models"
)

func TestQuoteName(t *testing.T) {
	assert.Equal(t, "[users]", quoteName("users"))
	assert.Equal(t, "[odd]]name]", quoteName("odd]name"))
	assert.Equal(t, "[with space]", quoteName("with space"))
}

func TestMapSQLServerType(t *testing.T) {
	tests := map[string]string{
		"int":              "INTEGER",
		"nvarchar":         "VARCHAR",
		"datetime2":        "TIMESTAMP",
		"datetimeoffset":   "TIMESTAMP WITH TIME ZONE",
		"bit":              "BOOLEAN",
		"uniqueidentifier": "UUID",
		"ntext":            "NTEXT",
		"text":             "NTEXT",
		"image":            "BLOB",
		"date":             "DATE",
		"time":             "TIME",
	}
	for in, want := range tests {
		assert.Equal(t, want, mapSQLServerType(in), in)
	}
}

func TestMapSQLServerType_Categories(t *testing.T) {
	assert.Equal(t, models.TypeCategoryTemporal, models.CategorizeType(mapSQLServerType("datetime2")))
	assert.True(t, models.HasDateComponent(mapSQLServerType("datetime")))
	assert.False(t, models.HasDateComponent(mapSQLServerType("time")))
	assert.False(t, models.IsDistinctComparable(mapSQLServerType("ntext")))
	assert.True(t, models.IsDistinctComparable(mapSQLServerType("nvarchar")))
}

func TestIsStringType(t *testing.T) {
	assert.True(t, isStringType("NVARCHAR"))
	assert.True(t, isStringType("char"))
	assert.False(t, isStringType("INT"))
	assert.False(t, isStringType("VARBINARY"))
}
