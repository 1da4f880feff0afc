// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/corpus/ai"
	"github.com/tmc/langchaingo/llms"
)

// summarizerInputLimit caps how much document text is sent to the model.
const summarizerInputLimit = 12000

// Summarizer implements ai.Summarizer using OpenAI-compatible chat APIs.
type Summarizer struct {
	client llms.Model
	logger *slog.Logger
}

// newSummarizer is an internal constructor that returns the concrete type.
// The chat client is shared with the classifier.
func newSummarizer(client llms.Model) *Summarizer {
	return &Summarizer{
		client: client,
		logger: slog.Default().With("component", "openai-summarizer"),
	}
}

// NewSummarizer creates a new summarizer using the provided configuration.
//
// Returns ai.Summarizer interface to enforce abstraction.
func NewSummarizer(config *ai.Config) (ai.Summarizer, error) {
	classifier, err := newClassifier(config)
	if err != nil {
		return nil, err
	}
	return newSummarizer(classifier.client), nil
}

// Summarize produces a summary of the text no longer than maxChars characters.
// Models routinely overshoot length instructions, so the response is trimmed
// to the budget on a word boundary.
func (s *Summarizer) Summarize(ctx context.Context, text string, maxChars int) (string, error) {
	text = truncateText(text, summarizerInputLimit)

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(fmt.Sprintf(summaryPromptTemplate, maxChars)),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	response, err := s.client.GenerateContent(ctx, content, llms.WithTemperature(0.2))
	if err != nil {
		s.logger.Error("failed to generate summary", "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		s.logger.Debug("no choices returned from model")
		return "", nil
	}

	summary := strings.TrimSpace(response.Choices[0].Content)
	if len(summary) > maxChars {
		s.logger.Debug("trimming overlong summary", "length", len(summary), "budget", maxChars)
		summary = truncateText(summary, maxChars)
	}

	return summary, nil
}
