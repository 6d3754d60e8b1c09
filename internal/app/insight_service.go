package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"docinsight/internal/ai"
	"docinsight/internal/cache"
	"docinsight/internal/extract"
	"docinsight/internal/intel"
	"docinsight/internal/model"
	"docinsight/internal/repository"
	"docinsight/internal/session"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyQuestion   = errors.New("question is empty")
	ErrNoDocuments     = errors.New("session has no readable documents")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrFeatureDisabled = errors.New("feature disabled")
)

// How much document text goes into one inference prompt when similarity
// selection finds nothing usable.
const maxContextChars = 8000

const answerTopK = 5

type Extractor interface {
	Extract(ctx context.Context, data []byte, kind model.FileKind) (extract.Result, error)
}

type CompletionClient interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
}

type AskRecordPublisher interface {
	Publish(ctx context.Context, rec model.AskRecord) error
}

type IntelOptions struct {
	MaxTopics            int
	ChunkSize            int
	SimilarityThreshold  float64
	EnableInsights       bool
	EnableSmartQuestions bool
}

type InsightService struct {
	sessions  *session.Store
	cache     *cache.ContentCache
	extractor Extractor
	llm       CompletionClient
	publisher AskRecordPublisher
	askRepo   *repository.AskRecordRepository

	llmCfg ai.ChatConfig
	intel  IntelOptions
}

type UploadFile struct {
	Filename string
	Data     []byte
}

type UploadResult struct {
	SessionID  string                 `json:"session_id"`
	Documents  []model.DocumentRecord `json:"documents"`
	TotalBytes int64                  `json:"total_bytes"`
	CacheHits  int                    `json:"cache_hits"`
	ElapsedMS  int64                  `json:"elapsed_ms"`
}

type AskResult struct {
	SessionID   string   `json:"session_id"`
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	ContentKeys []string `json:"content_keys"`
	CacheHit    bool     `json:"cache_hit"`
	DurationMS  int64    `json:"duration_ms"`
}

func NewInsightService(
	sessions *session.Store,
	contentCache *cache.ContentCache,
	extractor Extractor,
	llm CompletionClient,
	publisher AskRecordPublisher,
	askRepo *repository.AskRecordRepository,
	llmCfg ai.ChatConfig,
	intelOpts IntelOptions,
) *InsightService {
	if intelOpts.MaxTopics <= 0 {
		intelOpts.MaxTopics = 5
	}
	if intelOpts.ChunkSize <= 0 {
		intelOpts.ChunkSize = 500
	}
	return &InsightService{
		sessions:  sessions,
		cache:     contentCache,
		extractor: extractor,
		llm:       llm,
		publisher: publisher,
		askRepo:   askRepo,
		llmCfg:    llmCfg,
		intel:     intelOpts,
	}
}

// Upload extracts text for each file through the content cache and records
// the documents in the session. A missing session id starts a new session.
// Identical bytes uploaded twice never extract twice.
func (s *InsightService) Upload(ctx context.Context, sessionID string, files []UploadFile) (*UploadResult, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files", ErrInvalidInput)
	}

	// Reject oversized uploads before any extraction work.
	limits := s.sessions.Limits()
	if limits.MaxFilesPerUpload > 0 && len(files) > limits.MaxFilesPerUpload {
		return nil, fmt.Errorf("%w: %d files exceeds limit of %d",
			session.ErrCapacityExceeded, len(files), limits.MaxFilesPerUpload)
	}
	if limits.MaxFileSizeBytes > 0 {
		for _, f := range files {
			if int64(len(f.Data)) > limits.MaxFileSizeBytes {
				return nil, fmt.Errorf("%w: %s is larger than %d bytes",
					session.ErrCapacityExceeded, f.Filename, limits.MaxFileSizeBytes)
			}
		}
	}

	if sessionID == "" {
		sessionID = s.sessions.Create().ID
	} else if _, err := s.sessions.Get(sessionID); err != nil {
		return nil, err
	}

	start := time.Now()
	var totalBytes int64
	cacheHits := 0

	records := make([]model.DocumentRecord, 0, len(files))
	for _, f := range files {
		kind, ok := model.KindFromFilename(f.Filename)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, f.Filename)
		}
		totalBytes += int64(len(f.Data))

		rec := model.DocumentRecord{
			Filename:   f.Filename,
			Kind:       kind,
			Size:       int64(len(f.Data)),
			ContentKey: cache.ContentKey(f.Data),
			Status:     model.ExtractionPending,
		}

		data := f.Data
		fileKind := kind
		payload, hit, err := s.cache.GetOrCompute(ctx, rec.ContentKey, func(ctx context.Context) ([]byte, error) {
			res, err := s.extractor.Extract(ctx, data, fileKind)
			if err != nil {
				return nil, err
			}
			return json.Marshal(res)
		})
		if err != nil {
			log.Printf("extract %s failed: %v", f.Filename, err)
			rec.Status = model.ExtractionFailed
			rec.Error = err.Error()
			records = append(records, rec)
			continue
		}
		if hit {
			cacheHits++
		}

		var res extract.Result
		if err := json.Unmarshal(payload, &res); err != nil {
			return nil, fmt.Errorf("decode cached extraction failed: %w", err)
		}
		rec.Text = res.Text
		rec.Method = res.Method
		rec.Status = model.ExtractionDone
		records = append(records, rec)
	}

	if err := s.sessions.AddDocuments(sessionID, records...); err != nil {
		return nil, err
	}

	return &UploadResult{
		SessionID:  sessionID,
		Documents:  records,
		TotalBytes: totalBytes,
		CacheHits:  cacheHits,
		ElapsedMS:  time.Since(start).Milliseconds(),
	}, nil
}

// Ask answers a question over the session's documents. Answers are cached
// by document set plus normalized question; a repeat of the same question
// over the same documents never reaches the model. Each answered question
// is enqueued for async persistence.
func (s *InsightService) Ask(ctx context.Context, sessionID, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	docs, err := s.readableDocuments(sessionID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	keys := make([]string, 0, len(docs))
	for _, d := range docs {
		keys = append(keys, d.ContentKey)
	}
	answerKey := cache.AnswerKey(keys, question)

	result := &AskResult{
		SessionID:   sessionID,
		Question:    question,
		ContentKeys: keys,
	}

	if cached, ok := s.cache.Get(ctx, answerKey); ok {
		result.Answer = string(cached)
		result.CacheHit = true
	} else {
		answer, err := s.llm.Complete(ctx, s.llmCfg, s.buildPrompt(question, docs))
		if err != nil {
			return nil, err
		}
		answer = strings.TrimSpace(answer)
		if answer == "" {
			answer = "The model returned an empty response."
		}
		s.cache.Set(ctx, answerKey, []byte(answer))
		result.Answer = answer
	}
	result.DurationMS = time.Since(start).Milliseconds()

	if s.publisher != nil {
		rec := model.AskRecord{
			SessionID:   sessionID,
			Question:    question,
			Answer:      result.Answer,
			ContentKeys: strings.Join(keys, ","),
			CacheHit:    result.CacheHit,
			DurationMS:  result.DurationMS,
			CreatedAt:   time.Now(),
		}
		if err := s.publisher.Publish(context.Background(), rec); err != nil {
			log.Printf("enqueue ask record failed: %v", err)
		}
	}
	return result, nil
}

// buildPrompt assembles the inference messages. Similarity-selected
// chunks make the context when they clear the threshold, otherwise the
// concatenated documents truncated to maxContextChars.
func (s *InsightService) buildPrompt(question string, docs []model.DocumentRecord) []ai.ChatMessage {
	var contextText string
	matches := intel.SimilaritySearch(question, intelDocuments(docs), s.intel.ChunkSize, s.intel.SimilarityThreshold, answerTopK)
	if len(matches) > 0 {
		parts := make([]string, 0, len(matches))
		for _, m := range matches {
			parts = append(parts, fmt.Sprintf("[%s] %s", m.Filename, m.Text))
		}
		contextText = strings.Join(parts, "\n\n")
	} else {
		parts := make([]string, 0, len(docs))
		for _, d := range docs {
			parts = append(parts, fmt.Sprintf("[%s]\n%s", d.Filename, d.Text))
		}
		contextText = strings.Join(parts, "\n\n")
		if len(contextText) > maxContextChars {
			contextText = contextText[:maxContextChars]
		}
	}

	return []ai.ChatMessage{
		{
			Role: "system",
			Content: "You are a document analysis assistant. Answer using only the " +
				"provided document excerpts. If the answer is not in the documents, say so.",
		},
		{
			Role:    "user",
			Content: fmt.Sprintf("Documents:\n%s\n\nQuestion: %s", contextText, question),
		},
	}
}

// Analyze returns the per-document analysis for every readable document.
func (s *InsightService) Analyze(sessionID string) ([]intel.DocumentAnalysis, error) {
	docs, err := s.readableDocuments(sessionID)
	if err != nil {
		return nil, err
	}

	analyses := make([]intel.DocumentAnalysis, 0, len(docs))
	for _, d := range docs {
		analyses = append(analyses, intel.Analyze(d.Filename, d.Text, s.intel.MaxTopics))
	}
	return analyses, nil
}

// Insights aggregates cross-document statistics for the session.
func (s *InsightService) Insights(sessionID string) (intel.Insights, error) {
	if !s.intel.EnableInsights {
		return intel.Insights{}, ErrFeatureDisabled
	}
	analyses, err := s.Analyze(sessionID)
	if err != nil {
		return intel.Insights{}, err
	}
	return intel.CrossDocumentInsights(analyses), nil
}

// Similarity searches the session's documents for chunks relevant to query.
func (s *InsightService) Similarity(sessionID, query string, topK int) ([]intel.Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidInput)
	}
	if topK <= 0 {
		topK = answerTopK
	}

	docs, err := s.readableDocuments(sessionID)
	if err != nil {
		return nil, err
	}
	return intel.SimilaritySearch(query, intelDocuments(docs), s.intel.ChunkSize, s.intel.SimilarityThreshold, topK), nil
}

// SmartQuestions suggests questions derived from the session's combined text.
func (s *InsightService) SmartQuestions(sessionID string, max int) ([]intel.Question, error) {
	if !s.intel.EnableSmartQuestions {
		return nil, ErrFeatureDisabled
	}
	docs, err := s.readableDocuments(sessionID)
	if err != nil {
		return nil, err
	}

	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Text)
	}
	combined := strings.Join(parts, "\n")

	topics := intel.Topics(combined, s.intel.MaxTopics)
	docType := intel.DetectType(combined)
	return intel.SmartQuestions(topics, docType, max), nil
}

// Session returns a snapshot of the session, sliding its expiry.
func (s *InsightService) Session(sessionID string) (session.View, error) {
	return s.sessions.Snapshot(sessionID)
}

// DeleteSession removes the session. Cached extractions stay; other
// sessions holding the same content keep their hits.
func (s *InsightService) DeleteSession(sessionID string) {
	s.sessions.Delete(sessionID)
}

// History lists persisted ask records for the session, oldest first.
func (s *InsightService) History(sessionID string, limit int) ([]model.AskRecord, error) {
	if s.askRepo == nil {
		return nil, ErrFeatureDisabled
	}
	if _, err := s.sessions.Get(sessionID); err != nil {
		return nil, err
	}
	return s.askRepo.ListBySessionID(sessionID, limit)
}

// CacheStats reports hit/miss counters and the active backend tier.
func (s *InsightService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

func (s *InsightService) readableDocuments(sessionID string) ([]model.DocumentRecord, error) {
	docs, err := s.sessions.Documents(sessionID)
	if err != nil {
		return nil, err
	}

	readable := docs[:0:0]
	for _, d := range docs {
		if d.Status == model.ExtractionDone && strings.TrimSpace(d.Text) != "" {
			readable = append(readable, d)
		}
	}
	if len(readable) == 0 {
		return nil, ErrNoDocuments
	}
	return readable, nil
}

func intelDocuments(docs []model.DocumentRecord) []intel.Document {
	out := make([]intel.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, intel.Document{Name: d.Filename, Text: d.Text})
	}
	return out
}
