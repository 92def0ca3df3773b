package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/ekaya-quality/pkg/services"
)

func TestValidateAnalyzeRequest(t *testing.T) {
	tests := []struct {
		name     string
		req      services.AnalyzeRequest
		wantCode string
		wantMsg  string
	}{
		{
			name: "valid",
			req:  services.AnalyzeRequest{DatasourceType: "postgres", Tables: []string{"orders"}},
		},
		{
			name:     "missing type wins over other problems",
			req:      services.AnalyzeRequest{Tables: []string{""}},
			wantCode: "missing_datasource_type",
			wantMsg:  "datasource_type is required",
		},
		{
			name:     "blank table",
			req:      services.AnalyzeRequest{DatasourceType: "mysql", Tables: []string{"a", ""}},
			wantCode: "invalid_request",
			wantMsg:  "tables[1] is required",
		},
		{
			name:     "long table name",
			req:      services.AnalyzeRequest{DatasourceType: "mysql", Tables: []string{strings.Repeat("t", 257)}},
			wantCode: "invalid_request",
			wantMsg:  "tables[0] must be at most 256 characters",
		},
		{
			name:     "too many tables",
			req:      services.AnalyzeRequest{DatasourceType: "mysql", Tables: make1001Tables()},
			wantCode: "invalid_request",
			wantMsg:  "tables must have at most 1000 entries",
		},
		{
			name: "blank optional pattern",
			req: services.AnalyzeRequest{
				DatasourceType: "sqlite",
				Options:        &services.QualityOptions{OptionalFieldPatterns: []string{"*_note", ""}},
			},
			wantCode: "invalid_request",
			wantMsg:  "optional_field_patterns[1] is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := validateAnalyzeRequest(&tt.req)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func make1001Tables() []string {
	tables := make([]string, 1001)
	for i := range tables {
		tables[i] = "t"
	}
	return tables
}
