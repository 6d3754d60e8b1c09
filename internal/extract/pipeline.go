package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"docinsight/internal/model"
)

const (
	MethodPrimary = "pdf-text"
	MethodOCR     = "ocr"
)

var (
	ErrExtractionFailed  = errors.New("extraction failed")
	ErrExtractionTimeout = errors.New("extraction timed out")
	ErrUnsupportedKind   = errors.New("unsupported file kind")
)

// Result is the outcome of one extraction: the plain text and the method
// that produced it.
type Result struct {
	Text   string `json:"text"`
	Method string `json:"method"`
}

type textRecognizer interface {
	Recognize(imageData []byte) (string, error)
}

// Options configures the pipeline.
type Options struct {
	Workers      int
	Timeout      time.Duration
	MinTextChars int
}

type job struct {
	data []byte
	kind model.FileKind
	res  chan jobResult
}

type jobResult struct {
	result Result
	err    error
}

// Pipeline turns document bytes into plain text: the primary text-layer
// extractor first, then the OCR fallback when the primary yields nothing
// usable. Work runs on a bounded worker pool so slow OCR never ties up
// request goroutines.
type Pipeline struct {
	primary      func(data []byte) (string, error)
	pageImages   func(data []byte) ([][]byte, error)
	ocr          textRecognizer
	minTextChars int
	timeout      time.Duration

	jobs   chan *job
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewPipeline(ocr textRecognizer, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.MinTextChars <= 0 {
		opts.MinTextChars = 50
	}
	p := &Pipeline{
		primary:      pdfText,
		pageImages:   pdfPageImages,
		ocr:          ocr,
		minTextChars: opts.MinTextChars,
		timeout:      opts.Timeout,
		jobs:         make(chan *job),
	}
	p.start(opts.Workers)
	return p
}

func (p *Pipeline) start(workers int) {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *Pipeline) Close() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// Extract queues the work and waits for its result. The caller context only
// bounds the wait; the extraction itself runs under the pipeline timeout.
func (p *Pipeline) Extract(ctx context.Context, data []byte, kind model.FileKind) (Result, error) {
	j := &job{data: data, kind: kind, res: make(chan jobResult, 1)}

	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	select {
	case r := <-j.res:
		return r.result, r.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (p *Pipeline) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.jobs:
			j.res <- p.process(ctx, j)
		}
	}
}

func (p *Pipeline) process(ctx context.Context, j *job) jobResult {
	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan jobResult, 1)
	go func() {
		done <- p.run(runCtx, j.data, j.kind)
	}()

	select {
	case r := <-done:
		return r
	case <-runCtx.Done():
		return jobResult{err: fmt.Errorf("%w after %s", ErrExtractionTimeout, p.timeout)}
	}
}

func (p *Pipeline) run(ctx context.Context, data []byte, kind model.FileKind) jobResult {
	switch {
	case kind == model.KindPDF:
		text, err := p.primary(data)
		if err == nil {
			if trimmed := strings.TrimSpace(text); len(trimmed) >= p.minTextChars {
				return jobResult{result: Result{Text: trimmed, Method: MethodPrimary}}
			}
		}
		return p.runPDFFallback(ctx, data)

	case kind.IsImage():
		text, err := p.ocr.Recognize(data)
		if err != nil {
			return jobResult{err: fmt.Errorf("%w: method %s: %v", ErrExtractionFailed, MethodOCR, err)}
		}
		if strings.TrimSpace(text) == "" {
			return jobResult{err: fmt.Errorf("%w: method %s produced no text", ErrExtractionFailed, MethodOCR)}
		}
		return jobResult{result: Result{Text: strings.TrimSpace(text), Method: MethodOCR}}

	default:
		return jobResult{err: fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)}
	}
}

func (p *Pipeline) runPDFFallback(ctx context.Context, data []byte) jobResult {
	images, err := p.pageImages(data)
	if err != nil {
		return jobResult{err: fmt.Errorf("%w: method %s: %v", ErrExtractionFailed, MethodOCR, err)}
	}

	var pages []string
	for _, img := range images {
		if ctx.Err() != nil {
			return jobResult{err: fmt.Errorf("%w after %s", ErrExtractionTimeout, p.timeout)}
		}
		text, err := p.ocr.Recognize(img)
		if err != nil {
			continue
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			pages = append(pages, trimmed)
		}
	}

	text := strings.Join(pages, "\n\n")
	if text == "" {
		return jobResult{err: fmt.Errorf("%w: method %s produced no text", ErrExtractionFailed, MethodOCR)}
	}
	return jobResult{result: Result{Text: text, Method: MethodOCR}}
}
