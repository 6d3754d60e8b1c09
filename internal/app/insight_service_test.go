package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docinsight/internal/ai"
	"docinsight/internal/cache"
	"docinsight/internal/extract"
	"docinsight/internal/model"
	"docinsight/internal/session"
)

type stubExtractor struct {
	calls atomic.Int32
	text  string
	err   error
}

func (s *stubExtractor) Extract(ctx context.Context, data []byte, kind model.FileKind) (extract.Result, error) {
	s.calls.Add(1)
	if s.err != nil {
		return extract.Result{}, s.err
	}
	return extract.Result{Text: s.text, Method: extract.MethodPrimary}, nil
}

type stubLLM struct {
	calls  atomic.Int32
	answer string
	err    error
}

func (s *stubLLM) Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error) {
	s.calls.Add(1)
	return s.answer, s.err
}

type stubPublisher struct {
	mu      sync.Mutex
	records []model.AskRecord
}

func (s *stubPublisher) Publish(ctx context.Context, rec model.AskRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *stubPublisher) published() []model.AskRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AskRecord, len(s.records))
	copy(out, s.records)
	return out
}

type serviceFixture struct {
	service   *InsightService
	extractor *stubExtractor
	llm       *stubLLM
	publisher *stubPublisher
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()

	backend, err := cache.NewFileBackend(t.TempDir())
	require.NoError(t, err)

	extractor := &stubExtractor{text: "The projected budget grows every quarter. Budget review findings follow."}
	llm := &stubLLM{answer: "The budget grows."}
	publisher := &stubPublisher{}

	svc := NewInsightService(
		session.NewStore(time.Hour, session.Limits{
			MaxFilesPerUpload: 5,
			MaxFileSizeBytes:  1 << 20,
			MaxDocsPerSession: 50,
		}),
		cache.NewContentCache(backend, 16, time.Hour),
		extractor,
		llm,
		publisher,
		nil,
		ai.ChatConfig{Model: "test"},
		IntelOptions{
			MaxTopics:            5,
			ChunkSize:            500,
			SimilarityThreshold:  0.3,
			EnableInsights:       true,
			EnableSmartQuestions: true,
		},
	)
	return &serviceFixture{service: svc, extractor: extractor, llm: llm, publisher: publisher}
}

func TestUploadCreatesSessionAndExtracts(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.Upload(context.Background(), "", []UploadFile{
		{Filename: "report.pdf", Data: []byte("%PDF doc one")},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.SessionID)
	require.Len(t, result.Documents, 1)
	rec := result.Documents[0]
	assert.Equal(t, model.ExtractionDone, rec.Status)
	assert.Equal(t, extract.MethodPrimary, rec.Method)
	assert.NotEmpty(t, rec.ContentKey)
	assert.Equal(t, int64(len("%PDF doc one")), result.TotalBytes)
	assert.Equal(t, int32(1), f.extractor.calls.Load())
}

func TestUploadDeduplicatesIdenticalContent(t *testing.T) {
	f := newFixture(t)
	data := []byte("%PDF same bytes")

	first, err := f.service.Upload(context.Background(), "", []UploadFile{
		{Filename: "original.pdf", Data: data},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, first.CacheHits)

	// Same bytes under another name extract zero additional times.
	second, err := f.service.Upload(context.Background(), first.SessionID, []UploadFile{
		{Filename: "copy.pdf", Data: data},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, second.CacheHits)
	assert.Equal(t, first.Documents[0].ContentKey, second.Documents[0].ContentKey)
	assert.Equal(t, int32(1), f.extractor.calls.Load())
}

func TestConcurrentUploadsOfSameBytesExtractOnce(t *testing.T) {
	f := newFixture(t)
	data := []byte("%PDF shared by many sessions")

	const uploads = 10
	var wg sync.WaitGroup
	for i := 0; i < uploads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Upload(context.Background(), "", []UploadFile{
				{Filename: "shared.pdf", Data: data},
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.extractor.calls.Load())
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Upload(context.Background(), "", []UploadFile{
		{Filename: "notes.docx", Data: []byte("data")},
	})
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestUploadUnknownSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Upload(context.Background(), "missing-id", []UploadFile{
		{Filename: "report.pdf", Data: []byte("%PDF")},
	})
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestUploadRecordsExtractionFailure(t *testing.T) {
	f := newFixture(t)
	f.extractor.err = errors.New("corrupt file")

	result, err := f.service.Upload(context.Background(), "", []UploadFile{
		{Filename: "broken.pdf", Data: []byte("%PDF broken")},
	})
	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	rec := result.Documents[0]
	assert.Equal(t, model.ExtractionFailed, rec.Status)
	assert.Contains(t, rec.Error, "corrupt file")
}

func TestUploadRejectsTooManyFilesBeforeExtracting(t *testing.T) {
	f := newFixture(t)

	files := make([]UploadFile, 6)
	for i := range files {
		files[i] = UploadFile{Filename: fmt.Sprintf("doc-%d.pdf", i), Data: []byte{'%', 'P', 'D', 'F', byte(i)}}
	}
	_, err := f.service.Upload(context.Background(), "", files)
	assert.ErrorIs(t, err, session.ErrCapacityExceeded)
	assert.Equal(t, int32(0), f.extractor.calls.Load())
}

func TestUploadRejectsOversizedFileBeforeExtracting(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Upload(context.Background(), "", []UploadFile{
		{Filename: "huge.pdf", Data: make([]byte, (1<<20)+1)},
	})
	assert.ErrorIs(t, err, session.ErrCapacityExceeded)
	assert.Equal(t, int32(0), f.extractor.calls.Load())
}

func TestAskCachesAnswer(t *testing.T) {
	f := newFixture(t)

	upload, err := f.service.Upload(context.Background(), "", []UploadFile{
		{Filename: "report.pdf", Data: []byte("%PDF budget doc")},
	})
	require.NoError(t, err)

	first, err := f.service.Ask(context.Background(), upload.SessionID, "How does the budget develop?")
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	assert.Equal(t, "The budget grows.", first.Answer)

	// Case and whitespace variants of the question reuse the cached answer.
	second, err := f.service.Ask(context.Background(), upload.SessionID, "HOW   does the budget develop?")
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, int32(1), f.llm.calls.Load())

	records := f.publisher.published()
	require.Len(t, records, 2)
	assert.False(t, records[0].CacheHit)
	assert.True(t, records[1].CacheHit)
	assert.Equal(t, upload.SessionID, records[0].SessionID)
}

func TestAskEmptyQuestion(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Ask(context.Background(), "any", "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAskWithoutDocuments(t *testing.T) {
	f := newFixture(t)
	sess := f.service.sessions.Create()

	_, err := f.service.Ask(context.Background(), sess.ID, "anything?")
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestAskSurfacesUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.llm.err = ai.ErrUpstreamUnavailable

	upload, err := f.service.Upload(context.Background(), "", []UploadFile{
		{Filename: "report.pdf", Data: []byte("%PDF budget doc")},
	})
	require.NoError(t, err)

	_, err = f.service.Ask(context.Background(), upload.SessionID, "How does the budget develop?")
	assert.ErrorIs(t, err, ai.ErrUpstreamUnavailable)
	assert.Empty(t, f.publisher.published())
}

func TestAnalyzeAndInsights(t *testing.T) {
	f := newFixture(t)

	upload, err := f.service.Upload(context.Background(), "", []UploadFile{
		{Filename: "report.pdf", Data: []byte("%PDF budget doc")},
	})
	require.NoError(t, err)

	analyses, err := f.service.Analyze(upload.SessionID)
	require.NoError(t, err)
	require.Len(t, analyses, 1)
	assert.Equal(t, "report.pdf", analyses[0].Filename)
	assert.Contains(t, analyses[0].Topics, "budget")

	insights, err := f.service.Insights(upload.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, insights.TotalDocuments)
}

func TestInsightsDisabled(t *testing.T) {
	f := newFixture(t)
	f.service.intel.EnableInsights = false

	_, err := f.service.Insights("any")
	assert.ErrorIs(t, err, ErrFeatureDisabled)
}

func TestSmartQuestions(t *testing.T) {
	f := newFixture(t)

	upload, err := f.service.Upload(context.Background(), "", []UploadFile{
		{Filename: "report.pdf", Data: []byte("%PDF budget doc")},
	})
	require.NoError(t, err)

	questions, err := f.service.SmartQuestions(upload.SessionID, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, questions)
	assert.LessOrEqual(t, len(questions), 5)
}

func TestSmartQuestionsDisabled(t *testing.T) {
	f := newFixture(t)
	f.service.intel.EnableSmartQuestions = false

	_, err := f.service.SmartQuestions("any", 5)
	assert.ErrorIs(t, err, ErrFeatureDisabled)
}

func TestSimilarity(t *testing.T) {
	f := newFixture(t)

	upload, err := f.service.Upload(context.Background(), "", []UploadFile{
		{Filename: "report.pdf", Data: []byte("%PDF budget doc")},
	})
	require.NoError(t, err)

	matches, err := f.service.Similarity(upload.SessionID, "budget review", 3)
	require.NoError(t, err)
	assert.NotEmpty(t, matches)

	_, err = f.service.Similarity(upload.SessionID, "  ", 3)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)

	upload, err := f.service.Upload(context.Background(), "", []UploadFile{
		{Filename: "report.pdf", Data: []byte("%PDF budget doc")},
	})
	require.NoError(t, err)

	view, err := f.service.Session(upload.SessionID)
	require.NoError(t, err)
	assert.Len(t, view.Documents, 1)

	f.service.DeleteSession(upload.SessionID)
	_, err = f.service.Session(upload.SessionID)
	assert.ErrorIs(t, err, session.ErrNotFound)

	// Cached extractions survive session deletion.
	stats := f.service.CacheStats()
	assert.Equal(t, int64(1), stats.Computations)
}
