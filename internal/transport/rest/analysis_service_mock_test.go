package rest

import (
	"context"
	"sync"

	"github.com/heartmarshall/ngram-analysis-backend/internal/domain"
	"github.com/heartmarshall/ngram-analysis-backend/internal/service/analysis"
)

var _ analysisService = &analysisServiceMock{}

type analysisServiceMock struct {
	AnalyzeFunc func(ctx context.Context, input analysis.AnalyzeInput) (*domain.AnalysisResult, error)

	calls struct {
		Analyze []struct {
			Ctx   context.Context
			Input analysis.AnalyzeInput
		}
	}
	lockAnalyze sync.RWMutex
}

func (mock *analysisServiceMock) Analyze(ctx context.Context, input analysis.AnalyzeInput) (*domain.AnalysisResult, error) {
	if mock.AnalyzeFunc == nil {
		panic("analysisServiceMock.AnalyzeFunc: method is nil but analysisService.Analyze was just called")
	}
	callInfo := struct {
		Ctx   context.Context
		Input analysis.AnalyzeInput
	}{
		Ctx:   ctx,
		Input: input,
	}
	mock.lockAnalyze.Lock()
	mock.calls.Analyze = append(mock.calls.Analyze, callInfo)
	mock.lockAnalyze.Unlock()
	return mock.AnalyzeFunc(ctx, input)
}

func (mock *analysisServiceMock) AnalyzeCalls() []struct {
	Ctx   context.Context
	Input analysis.AnalyzeInput
} {
	var calls []struct {
		Ctx   context.Context
		Input analysis.AnalyzeInput
	}
	mock.lockAnalyze.RLock()
	calls = mock.calls.Analyze
	mock.lockAnalyze.RUnlock()
	return calls
}
