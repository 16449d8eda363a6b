package analysis

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"testing"
	"time"

	"github.com/heartmarshall/ngram-analysis-backend/internal/config"
	"github.com/heartmarshall/ngram-analysis-backend/internal/domain"
	"github.com/heartmarshall/ngram-analysis-backend/internal/lm"
)

//go:generate moq -out scorer_provider_mock_test.go -pkg analysis . scorerProvider
//go:generate moq -out scorer_mock_test.go -pkg analysis ../../lm Scorer

const pangram = "The quick brown fox jumps over the lazy dog."

func testConfig() config.AnalysisConfig {
	return config.AnalysisConfig{
		MaxTextLength: 1000,
		Timeout:       2 * time.Second,
		MaxBodyBytes:  1 << 20,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// bitsPerToken scores every token at exactly -bits log2.
func bitsPerToken(bits float64) *scorerMock {
	return &scorerMock{
		MaxOrderFunc: func() int { return 4 },
		ScoreSequenceFunc: func(tokens []string) (float64, error) {
			return -bits * float64(len(tokens)), nil
		},
	}
}

func providerOf(s lm.Scorer) *scorerProviderMock {
	return &scorerProviderMock{ScorerFunc: func() (lm.Scorer, error) { return s, nil }}
}

func newTestService(t *testing.T, provider scorerProvider, cfg config.AnalysisConfig) *Service {
	t.Helper()
	return NewService(testLogger(), provider, cfg)
}

func sumCounts(entries []domain.NGramEntry) (count int, prob float64) {
	for _, e := range entries {
		count += e.Count
		prob += e.Probability
	}
	return count, prob
}

// ---------------------------------------------------------------------------
// Analyze: happy path
// ---------------------------------------------------------------------------

func TestAnalyze_Pangram(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, providerOf(bitsPerToken(2)), testConfig())

	res, err := svc.Analyze(context.Background(), AnalyzeInput{Text: pangram})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if res.TotalTokens != 9 {
		t.Errorf("TotalTokens = %d, want 9", res.TotalTokens)
	}
	if res.UniqueTokens != 8 {
		t.Errorf("UniqueTokens = %d, want 8", res.UniqueTokens)
	}
	if res.StopWords != 2 {
		t.Errorf("StopWords = %d, want 2", res.StopWords)
	}
	if res.Entropy != 2 || res.Perplexity != 4 {
		t.Errorf("entropy/perplexity = %v/%v, want 2/4", res.Entropy, res.Perplexity)
	}
	if res.LatencyMS < 0 {
		t.Errorf("LatencyMS = %v, want >= 0", res.LatencyMS)
	}

	top := res.NGrams.Unigrams[0]
	if top.ID != 1 || top.SurfaceForm != "the" || top.Count != 2 || top.Probability != 22.22 {
		t.Errorf("top unigram = %+v", top)
	}
	if n := len(res.NGrams.Bigrams); n != 8 {
		t.Errorf("bigrams = %d, want 8", n)
	}
	if n := len(res.NGrams.FourGrams); n != 6 {
		t.Errorf("4grams = %d, want 6", n)
	}
}

func TestAnalyze_ConservationInvariants(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, providerOf(bitsPerToken(3.5)), testConfig())
	text := "to be or not to be, that is the question: whether 'tis nobler to be"

	res, err := svc.Analyze(context.Background(), AnalyzeInput{Text: text})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if res.UniqueTokens != len(res.NGrams.Unigrams) {
		t.Errorf("UniqueTokens = %d, unigram rows = %d", res.UniqueTokens, len(res.NGrams.Unigrams))
	}
	for order := 1; order <= domain.MaxNGramOrder; order++ {
		entries := *res.NGrams.ByOrder(order)
		count, prob := sumCounts(entries)
		if want := max(res.TotalTokens-order+1, 0); count != want {
			t.Errorf("order %d: sum(count) = %d, want %d", order, count, want)
		}
		if len(entries) > 0 && math.Abs(prob-100) > 0.1 {
			t.Errorf("order %d: sum(probability) = %v, want ~100", order, prob)
		}
	}
	if math.Abs(res.Perplexity-math.Exp2(res.Entropy)) > 1e-9 {
		t.Errorf("perplexity %v != 2^entropy %v", res.Perplexity, math.Exp2(res.Entropy))
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, providerOf(bitsPerToken(1.25)), testConfig())

	first, err := svc.Analyze(context.Background(), AnalyzeInput{Text: pangram})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	second, err := svc.Analyze(context.Background(), AnalyzeInput{Text: pangram})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	first.LatencyMS, second.LatencyMS = 0, 0
	if first.Stats != second.Stats || first.TotalTokens != second.TotalTokens ||
		first.UniqueTokens != second.UniqueTokens || first.StopWords != second.StopWords {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
	for order := 1; order <= domain.MaxNGramOrder; order++ {
		a, b := *first.NGrams.ByOrder(order), *second.NGrams.ByOrder(order)
		if len(a) != len(b) {
			t.Fatalf("order %d: lengths differ", order)
		}
		for i := range a {
			if a[i] != b[i] {
				t.Errorf("order %d row %d: %+v vs %+v", order, i, a[i], b[i])
			}
		}
	}
}

func TestAnalyze_SingleToken(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, providerOf(bitsPerToken(5)), testConfig())

	res, err := svc.Analyze(context.Background(), AnalyzeInput{Text: "hello"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.TotalTokens != 1 || len(res.NGrams.Unigrams) != 1 {
		t.Errorf("tokens = %d, unigrams = %d", res.TotalTokens, len(res.NGrams.Unigrams))
	}
	for order := 2; order <= domain.MaxNGramOrder; order++ {
		entries := *res.NGrams.ByOrder(order)
		if entries == nil || len(entries) != 0 {
			t.Errorf("order %d: want empty non-nil list, got %#v", order, entries)
		}
	}
}

func TestAnalyze_NGramTypeFilter(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, providerOf(bitsPerToken(2)), testConfig())

	res, err := svc.Analyze(context.Background(), AnalyzeInput{Text: pangram, NGramType: domain.NGramBigrams})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.NGrams.Bigrams) != 8 {
		t.Errorf("bigrams = %d, want 8", len(res.NGrams.Bigrams))
	}
	if len(res.NGrams.Unigrams) != 0 || len(res.NGrams.Trigrams) != 0 || len(res.NGrams.FourGrams) != 0 {
		t.Error("only the requested order should be populated")
	}
	if res.UniqueTokens != 8 {
		t.Errorf("UniqueTokens = %d, want 8 regardless of the filter", res.UniqueTokens)
	}
}

func TestAnalyze_NGramLimit(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.NGramLimit = 2
	svc := newTestService(t, providerOf(bitsPerToken(2)), cfg)

	res, err := svc.Analyze(context.Background(), AnalyzeInput{Text: pangram})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.NGrams.Unigrams) != 2 {
		t.Fatalf("unigrams = %d, want 2", len(res.NGrams.Unigrams))
	}
	// Shares stay relative to all nine tokens.
	if got := res.NGrams.Unigrams[1].Probability; got != 11.11 {
		t.Errorf("second unigram probability = %v, want 11.11", got)
	}
	if res.UniqueTokens != 8 {
		t.Errorf("UniqueTokens = %d, want 8", res.UniqueTokens)
	}
}

func TestAnalyze_WithEmbeddedModel(t *testing.T) {
	t.Parallel()

	table, err := lm.EmbeddedSource{}.Load(context.Background())
	if err != nil {
		t.Fatalf("load embedded model: %v", err)
	}
	model, err := lm.NewModel(table, lm.Options{Name: "default"})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	holder := lm.NewHolder()
	holder.Store(model)

	svc := newTestService(t, holder, testConfig())
	res, err := svc.Analyze(context.Background(), AnalyzeInput{Text: pangram})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Perplexity < 1 || math.IsInf(res.Perplexity, 0) || math.IsNaN(res.Perplexity) {
		t.Errorf("Perplexity = %v, want finite >= 1", res.Perplexity)
	}
	if res.Entropy < 0 {
		t.Errorf("Entropy = %v, want >= 0", res.Entropy)
	}
}

// ---------------------------------------------------------------------------
// Analyze: validation
// ---------------------------------------------------------------------------

func TestAnalyze_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     AnalyzeInput
		wantField string
		wantMsg   string
	}{
		{name: "empty text", input: AnalyzeInput{Text: ""}, wantField: "text", wantMsg: "required"},
		{name: "whitespace text", input: AnalyzeInput{Text: " \n\t "}, wantField: "text", wantMsg: "required"},
		{name: "too long", input: AnalyzeInput{Text: string(make([]rune, 1001))}, wantField: "text", wantMsg: "max 1000 characters"},
		{name: "unknown ngram type", input: AnalyzeInput{Text: "hi", NGramType: "5grams"}, wantField: "ngram_type", wantMsg: "must be one of unigrams, bigrams, trigrams, 4grams"},
		{name: "punctuation only", input: AnalyzeInput{Text: "... !!! ---"}, wantField: "text", wantMsg: "no valid tokens found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			provider := providerOf(bitsPerToken(1))
			svc := newTestService(t, provider, testConfig())

			_, err := svc.Analyze(context.Background(), tt.input)

			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if !ve.HasField(tt.wantField, tt.wantMsg) {
				t.Errorf("errors = %+v, want %s: %s", ve.Errors, tt.wantField, tt.wantMsg)
			}
			if len(provider.ScorerCalls()) != 0 {
				t.Error("the model must not be consulted for invalid input")
			}
		})
	}
}

func TestAnalyzeInput_Validate_CollectsAllErrors(t *testing.T) {
	t.Parallel()

	err := AnalyzeInput{Text: "", NGramType: "bogus"}.Validate(10)

	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(ve.Errors) != 2 {
		t.Errorf("got %d field errors, want 2", len(ve.Errors))
	}
}

// ---------------------------------------------------------------------------
// Analyze: failures
// ---------------------------------------------------------------------------

func TestAnalyze_ModelUnavailable(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, lm.NewHolder(), testConfig())

	_, err := svc.Analyze(context.Background(), AnalyzeInput{Text: pangram})

	if !errors.Is(err, domain.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	var ae *domain.AnalysisError
	if !errors.As(err, &ae) || ae.Stage != domain.StageScore {
		t.Errorf("expected AnalysisError at stage %q, got %v", domain.StageScore, err)
	}
}

func TestAnalyze_ScorerError(t *testing.T) {
	t.Parallel()

	scorer := &scorerMock{
		ScoreSequenceFunc: func([]string) (float64, error) {
			return 0, errors.New("corrupt table")
		},
	}
	svc := newTestService(t, providerOf(scorer), testConfig())

	_, err := svc.Analyze(context.Background(), AnalyzeInput{Text: pangram})

	var ae *domain.AnalysisError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *AnalysisError, got %v", err)
	}
	if ae.Error() != "score: corrupt table" {
		t.Errorf("Error() = %q", ae.Error())
	}
}

func TestAnalyze_DegenerateScore(t *testing.T) {
	t.Parallel()

	scorer := &scorerMock{
		ScoreSequenceFunc: func([]string) (float64, error) { return math.Inf(-1), nil },
	}
	svc := newTestService(t, providerOf(scorer), testConfig())

	_, err := svc.Analyze(context.Background(), AnalyzeInput{Text: pangram})

	if !errors.Is(err, domain.ErrDegenerateInput) {
		t.Fatalf("expected ErrDegenerateInput, got %v", err)
	}
	var ae *domain.AnalysisError
	if !errors.As(err, &ae) || ae.Stage != domain.StageStats {
		t.Errorf("expected AnalysisError at stage %q, got %v", domain.StageStats, err)
	}
}

func TestAnalyze_PerplexityOverflow(t *testing.T) {
	t.Parallel()

	// A single unseen word at log10 -400 is about 1329 bits.
	table := lm.NewTable(1)
	if err := table.Add([]string{"hello"}, lm.Entry{LogProb: -1}); err != nil {
		t.Fatalf("add unigram: %v", err)
	}
	model, err := lm.NewModel(table, lm.Options{UnkLogProb: -400})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	svc := newTestService(t, providerOf(model), testConfig())

	res, err := svc.Analyze(context.Background(), AnalyzeInput{Text: "zebra"})

	if res != nil {
		t.Fatalf("expected no result, got %+v", res)
	}
	if !errors.Is(err, domain.ErrDegenerateInput) {
		t.Fatalf("expected ErrDegenerateInput, got %v", err)
	}
	var ae *domain.AnalysisError
	if !errors.As(err, &ae) || ae.Stage != domain.StageStats {
		t.Errorf("expected AnalysisError at stage %q, got %v", domain.StageStats, err)
	}
}

func TestAnalyze_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	scorer := &scorerMock{
		ScoreSequenceFunc: func(tokens []string) (float64, error) {
			<-release
			return -1, nil
		},
	}
	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond
	svc := newTestService(t, providerOf(scorer), cfg)

	start := time.Now()
	_, err := svc.Analyze(context.Background(), AnalyzeInput{Text: pangram})

	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Analyze returned after %v, want about the timeout", elapsed)
	}
}

func TestAnalyze_CallerCancellation(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, providerOf(bitsPerToken(1)), testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Analyze(ctx, AnalyzeInput{Text: pangram})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, domain.ErrTimeout) {
		t.Error("cancellation must not be reported as a timeout")
	}
}

func TestAnalyze_PanicRecovered(t *testing.T) {
	t.Parallel()

	scorer := &scorerMock{
		ScoreSequenceFunc: func([]string) (float64, error) { panic("index out of range") },
	}
	svc := newTestService(t, providerOf(scorer), testConfig())

	_, err := svc.Analyze(context.Background(), AnalyzeInput{Text: pangram})

	var ae *domain.AnalysisError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *AnalysisError, got %v", err)
	}
	if ae.Stage != domain.StageAnalyze {
		t.Errorf("stage = %q, want %q", ae.Stage, domain.StageAnalyze)
	}
}

func TestAnalyze_ScorerReceivesNormalizedTokens(t *testing.T) {
	t.Parallel()

	scorer := bitsPerToken(1)
	svc := newTestService(t, providerOf(scorer), testConfig())

	if _, err := svc.Analyze(context.Background(), AnalyzeInput{Text: "Don’t STOP, believin'!"}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	calls := scorer.ScoreSequenceCalls()
	if len(calls) != 1 {
		t.Fatalf("ScoreSequence called %d times, want 1", len(calls))
	}
	want := []string{"don't", "stop", "believin"}
	got := calls[0].Tokens
	if len(got) != len(want) {
		t.Fatalf("tokens = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}
