package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"bizintel/internal/domain"
)

const (
	chunkSize      = 9000
	chunkOverlap   = 500
	minCutPosition = 2000
	maxChunks      = 20
	maxNotesLength = 22000

	defaultPoolSize = 4
)

// ErrNoContent is returned when no chunk of a document could be summarized.
var ErrNoContent = errors.New("no meaningful content extracted")

type SummarizerConfig struct {
	PoolSize  int
	CallDelay time.Duration
}

// Summarizer builds dashboard text on top of a Completer.
type Summarizer struct {
	completer Completer
	poolSize  int
	callDelay time.Duration
	logger    *slog.Logger
}

func NewSummarizer(completer Completer, cfg SummarizerConfig, logger *slog.Logger) *Summarizer {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}

	return &Summarizer{
		completer: completer,
		poolSize:  poolSize,
		callDelay: cfg.CallDelay,
		logger:    logger.With("component", "summarizer"),
	}
}

func (s *Summarizer) SummarizeArticle(ctx context.Context, article domain.Article) (string, error) {
	prompt := fmt.Sprintf("Title: %s\nSource: %s\n\n%s", article.Title, article.Source, article.Description)

	summary, err := s.completer.Complete(ctx, articleSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("summarize article: %w", err)
	}
	return summary, nil
}

func (s *Summarizer) Answer(ctx context.Context, question, contextText string) (string, error) {
	prompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, question)

	answer, err := s.completer.Complete(ctx, insightSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("answer question: %w", err)
	}
	return answer, nil
}

// SummarizeDocument condenses a long text. Chunks are summarized by a
// bounded pool of workers; failed chunks are skipped and the surviving notes
// are refined by one final call.
func (s *Summarizer) SummarizeDocument(ctx context.Context, text string) (string, error) {
	chunks := splitChunks(text, chunkSize, chunkOverlap)
	if len(chunks) > maxChunks {
		chunks = chunks[:maxChunks]
	}
	if len(chunks) == 0 {
		return "", ErrNoContent
	}

	notes := s.summarizeChunks(ctx, chunks)
	if len(notes) == 0 {
		return "", ErrNoContent
	}

	combined := truncateRunes(strings.Join(notes, "\n\n"), maxNotesLength)

	summary, err := s.completer.Complete(ctx, refinementSystemPrompt, combined)
	if err != nil {
		return "", fmt.Errorf("refine notes: %w", err)
	}
	return summary, nil
}

// summarizeChunks returns chunk notes in completion order.
func (s *Summarizer) summarizeChunks(ctx context.Context, chunks []string) []string {
	var (
		mu    sync.Mutex
		notes []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.poolSize)

	for i, chunk := range chunks {
		g.Go(func() error {
			s.logger.Debug("processing chunk", "chunk", i+1, "total", len(chunks))

			note, err := s.completer.Complete(gctx, chunkSystemPrompt, chunk)
			if err != nil {
				s.logger.Warn("chunk failed", "chunk", i+1, "error", err)
			} else if note = strings.TrimSpace(note); note != "" {
				mu.Lock()
				notes = append(notes, note)
				mu.Unlock()
			}

			if s.callDelay > 0 {
				select {
				case <-gctx.Done():
				case <-time.After(s.callDelay):
				}
			}
			return nil
		})
	}

	_ = g.Wait()

	s.logger.Info("chunks summarized", "total", len(chunks), "succeeded", len(notes))
	return notes
}

// splitChunks cuts text into windows of size runes that advance by
// size-overlap. A window is shortened to its last period when that period
// lies past minCutPosition.
func splitChunks(text string, size, overlap int) []string {
	runes := []rune(text)
	step := size - overlap
	if step <= 0 {
		step = size
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := min(len(runes), start+size)
		window := runes[start:end]

		if cut := lastIndexRune(window, '.'); cut > minCutPosition {
			window = window[:cut+1]
		}

		if chunk := strings.TrimSpace(string(window)); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

func lastIndexRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
