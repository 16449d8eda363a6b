package analysis

import (
	"sync"

	"github.com/heartmarshall/ngram-analysis-backend/internal/lm"
)

var _ lm.Scorer = &scorerMock{}

type scorerMock struct {
	MaxOrderFunc      func() int
	ScoreSequenceFunc func(tokens []string) (float64, error)

	calls struct {
		MaxOrder      []struct{}
		ScoreSequence []struct {
			Tokens []string
		}
	}
	lockMaxOrder      sync.RWMutex
	lockScoreSequence sync.RWMutex
}

func (mock *scorerMock) MaxOrder() int {
	if mock.MaxOrderFunc == nil {
		panic("scorerMock.MaxOrderFunc: method is nil but Scorer.MaxOrder was just called")
	}
	mock.lockMaxOrder.Lock()
	mock.calls.MaxOrder = append(mock.calls.MaxOrder, struct{}{})
	mock.lockMaxOrder.Unlock()
	return mock.MaxOrderFunc()
}

func (mock *scorerMock) ScoreSequence(tokens []string) (float64, error) {
	if mock.ScoreSequenceFunc == nil {
		panic("scorerMock.ScoreSequenceFunc: method is nil but Scorer.ScoreSequence was just called")
	}
	callInfo := struct{ Tokens []string }{Tokens: tokens}
	mock.lockScoreSequence.Lock()
	mock.calls.ScoreSequence = append(mock.calls.ScoreSequence, callInfo)
	mock.lockScoreSequence.Unlock()
	return mock.ScoreSequenceFunc(tokens)
}

func (mock *scorerMock) ScoreSequenceCalls() []struct{ Tokens []string } {
	mock.lockScoreSequence.RLock()
	calls := mock.calls.ScoreSequence
	mock.lockScoreSequence.RUnlock()
	return calls
}
