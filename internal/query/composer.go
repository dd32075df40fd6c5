package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/scrypster/paceline/internal/llm"
	"github.com/scrypster/paceline/internal/storage"
)

// AnswerContext pairs a question with the exact retrieval results used to
// build its generation prompt. It is always returned alongside the answer so
// the caller can display the context without re-querying.
type AnswerContext struct {
	Question string
	Results  []storage.Result
}

// Composer assembles generation prompts from retrieved summaries and calls
// the text-generation provider.
type Composer struct {
	generator llm.TextGenerator
	retry     llm.RetryPolicy
}

// NewComposer creates a Composer over the given generation provider.
func NewComposer(generator llm.TextGenerator) *Composer {
	return &Composer{generator: generator, retry: llm.DefaultRetryPolicy()}
}

// Answer builds the coaching prompt from the question and retrieved context,
// calls the generation provider once (with the shared bounded-retry policy
// for transient failures) and returns the answer text plus the context used.
func (c *Composer) Answer(ctx context.Context, question string, results []storage.Result) (string, *AnswerContext, error) {
	answerCtx := &AnswerContext{Question: question, Results: results}

	prompt := BuildPrompt(question, results)

	var answer string
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		var genErr error
		answer, genErr = c.generator.Complete(ctx, prompt)
		return genErr
	})
	if err != nil {
		return "", answerCtx, fmt.Errorf("query: generate answer: %w", err)
	}

	return strings.TrimSpace(answer), answerCtx, nil
}

// BuildPrompt renders the generation prompt: coach persona, the retrieved
// summaries verbatim under numbered markers so the model can attribute
// claims, then the literal question.
func BuildPrompt(question string, results []storage.Result) string {
	var b strings.Builder

	b.WriteString("You are a supportive, knowledgeable endurance coach. ")
	b.WriteString("Answer the athlete's question using only the training log excerpts below. ")
	b.WriteString("Cite excerpts by their [n] marker when you reference them. ")
	b.WriteString("If the excerpts do not contain the answer, say so instead of guessing.\n\n")

	b.WriteString("Training log excerpts:\n")
	if len(results) == 0 {
		b.WriteString("(none)\n")
	}
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, r.Entry.Document)
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")

	return b.String()
}
