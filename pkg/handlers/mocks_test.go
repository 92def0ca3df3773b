package handlers

import (
	"context"

	"github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-quality/pkg/services"
)

// mockQualityService records the last request and returns canned results.
type mockQualityService struct {
	result   *services.AnalysisResult
	err      error
	adapters []datasource.DatasourceAdapterInfo

	calls   int
	lastReq services.AnalyzeRequest
}

func (m *mockQualityService) AnalyzeDatasource(ctx context.Context, req services.AnalyzeRequest) (*services.AnalysisResult, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockQualityService) ListAdapters() []datasource.DatasourceAdapterInfo {
	return m.adapters
}

var _ services.QualityService = (*mockQualityService)(nil)
