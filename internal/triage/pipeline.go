package triage

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"mailpilot/internal/models"
	"mailpilot/internal/store"
)

// ErrNoMatches is the business outcome for an email with no similar history:
// expected, caller-visible, and distinct from any upstream provider failure.
var ErrNoMatches = errors.New("no similar emails found")

// ContentPreviewLength is the maximum echoed content length, in characters,
// before truncation.
const ContentPreviewLength = 100

// Retriever fetches scored neighbors for an email.
type Retriever interface {
	Retrieve(ctx context.Context, q models.EmailQuery) ([]models.Match, error)
}

// Summarizer produces the short classification summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// ResponseSynthesizer produces the reply text; it never fails.
type ResponseSynthesizer interface {
	Synthesize(ctx context.Context, q models.EmailQuery, candidates []string) string
}

// Pipeline sequences retrieval, aggregation, summary and synthesis into the
// final triage result. All upstream transient failures degrade inside their
// step; the only error Process returns for well-formed input is ErrNoMatches.
type Pipeline struct {
	retriever           Retriever
	summarizer          Summarizer
	synthesizer         ResponseSynthesizer
	history             store.HistoryStore // optional, best-effort
	embeddingModel      string
	confidenceThreshold float64
	callTimeout         time.Duration
}

// PipelineDeps holds the injected collaborators for NewPipeline.
type PipelineDeps struct {
	Retriever           Retriever
	Summarizer          Summarizer
	Synthesizer         ResponseSynthesizer
	History             store.HistoryStore
	EmbeddingModel      string
	ConfidenceThreshold float64
	// CallTimeout bounds each external call so an unresponsive provider
	// cannot hold a request open indefinitely. Zero disables the bound.
	CallTimeout time.Duration
}

func NewPipeline(deps PipelineDeps) *Pipeline {
	threshold := deps.ConfidenceThreshold
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &Pipeline{
		retriever:           deps.Retriever,
		summarizer:          deps.Summarizer,
		synthesizer:         deps.Synthesizer,
		history:             deps.History,
		embeddingModel:      deps.EmbeddingModel,
		confidenceThreshold: threshold,
		callTimeout:         deps.CallTimeout,
	}
}

// Process runs the full pipeline for one email. It returns ErrNoMatches when
// retrieval yields nothing to aggregate; any other error indicates a
// programming defect, not an upstream outage.
func (p *Pipeline) Process(ctx context.Context, q models.EmailQuery) (*models.EmailResult, error) {
	if p.retriever == nil || p.synthesizer == nil {
		return nil, fmt.Errorf("pipeline is not fully initialized")
	}

	// The summary needs only the raw content, so it starts before retrieval
	// completes and runs alongside the synthesis path.
	summaryCh := make(chan string, 1)
	go func() {
		summaryCh <- p.summarize(ctx, q.Content)
	}()

	retrieveCtx, cancel := p.boundedCtx(ctx)
	matches, err := p.retriever.Retrieve(retrieveCtx, q)
	cancel()
	if err != nil {
		// Retrieval degrades to "no matches" rather than failing the request.
		log.Warnf("Retrieval error for %q, proceeding with no matches: %v", q.Sender, err)
		matches = nil
	}

	agg := AggregateMatches(matches)
	if agg.IsEmpty() {
		return nil, fmt.Errorf("email from %q: %w", q.Sender, ErrNoMatches)
	}

	synthCtx, cancel := p.boundedCtx(ctx)
	suggested := p.synthesizer.Synthesize(synthCtx, q, agg.SuggestedResponses)
	cancel()

	summary := <-summaryCh

	result := &models.EmailResult{
		Email: models.EmailEcho{
			Sender:  q.Sender,
			Subject: q.Subject,
			Content: truncateContent(q.Content, ContentPreviewLength),
		},
		Classification: models.Classification{
			MainCategory:  agg.MainCategory,
			Confidence:    agg.Confidence,
			IsConfident:   agg.Confidence >= p.confidenceThreshold,
			AllCategories: agg.Categories,
			Summary:       summary,
		},
		Response: models.ResponseBlock{
			Suggested:         suggested,
			BasedOnCandidates: len(agg.SuggestedResponses),
			AverageSimilarity: agg.AverageSimilarity,
		},
		Metadata: models.ResultMetadata{
			TotalMatches:   agg.TotalMatches,
			EmbeddingModel: p.embeddingModel,
		},
	}

	p.recordHistory(ctx, q, result)
	return result, nil
}

// summarize requests the short summary; failure substitutes an empty string
// and never blocks the rest of the pipeline.
func (p *Pipeline) summarize(ctx context.Context, content string) string {
	if p.summarizer == nil {
		return ""
	}
	sumCtx, cancel := p.boundedCtx(ctx)
	defer cancel()
	summary, err := p.summarizer.Summarize(sumCtx, content)
	if err != nil {
		log.Warnf("Summary generation failed, continuing without: %v", err)
		return ""
	}
	return summary
}

// recordHistory persists the outcome for diagnostics; failures are logged.
func (p *Pipeline) recordHistory(ctx context.Context, q models.EmailQuery, result *models.EmailResult) {
	if p.history == nil {
		return
	}
	entry := &models.ProcessedEmail{
		Sender:        q.Sender,
		Subject:       q.Subject,
		MainCategory:  result.Classification.MainCategory,
		Confidence:    result.Classification.Confidence,
		IsConfident:   result.Classification.IsConfident,
		TotalMatches:  result.Metadata.TotalMatches,
		ResponseChars: len(result.Response.Suggested),
	}
	if err := p.history.RecordProcessedEmail(ctx, entry); err != nil {
		log.Warnf("Failed to record processing history for %q: %v", q.Sender, err)
	}
}

func (p *Pipeline) boundedCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.callTimeout)
}

// truncateContent shortens the echoed content to maxLen characters plus an
// ellipsis marker; shorter content is echoed verbatim. Length is counted in
// runes, not bytes, so multibyte content is never cut mid-character.
func truncateContent(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
