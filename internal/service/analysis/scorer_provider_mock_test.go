package analysis

import (
	"sync"

	"github.com/heartmarshall/ngram-analysis-backend/internal/lm"
)

var _ scorerProvider = &scorerProviderMock{}

type scorerProviderMock struct {
	ScorerFunc func() (lm.Scorer, error)

	calls struct {
		Scorer []struct{}
	}
	lockScorer sync.RWMutex
}

func (mock *scorerProviderMock) Scorer() (lm.Scorer, error) {
	if mock.ScorerFunc == nil {
		panic("scorerProviderMock.ScorerFunc: method is nil but scorerProvider.Scorer was just called")
	}
	mock.lockScorer.Lock()
	mock.calls.Scorer = append(mock.calls.Scorer, struct{}{})
	mock.lockScorer.Unlock()
	return mock.ScorerFunc()
}

func (mock *scorerProviderMock) ScorerCalls() []struct{} {
	mock.lockScorer.RLock()
	calls := mock.calls.Scorer
	mock.lockScorer.RUnlock()
	return calls
}
