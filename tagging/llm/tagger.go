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


package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/infradocs/tagging"
)

// Tagger implements tagging.Backend using LLM chat APIs.
type Tagger struct {
	client      llms.Model
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// entityAnswer is an internal type used for JSON unmarshaling.
// It matches the structure expected by the LLM.
type entityAnswer struct {
	ID                 string `json:"id"`
	GenericName        string `json:"generic_name"`
	ProblemSolved      string `json:"problem_solved"`
	InfrastructureRole string `json:"infrastructure_role"`
	SystemComponent    string `json:"system_component"`
}

// answerSheet is the wrapper structure for the LLM's JSON response.
type answerSheet struct {
	Entities []entityAnswer `json:"entities"`
}

// NewTagger creates a tagging backend for the configured service.
// The config is validated and normalized before use.
//
// Returns tagging.Backend interface (not *Tagger) to enforce abstraction
// and prevent coupling to a specific chat API.
func NewTagger(config *tagging.Config) (tagging.Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var client llms.Model
	var err error
	switch config.Type {
	case tagging.BackendOpenAI:
		client, err = openai.New(
			openai.WithBaseURL(config.Host),
			openai.WithToken(config.Token),
			openai.WithModel(config.Model),
		)
	case tagging.BackendOllama:
		client, err = ollama.New(
			ollama.WithServerURL(config.Host),
			ollama.WithModel(config.Model),
		)
	default:
		return nil, fmt.Errorf("%w: no client for backend type %q",
			tagging.ErrBackendUnavailable, config.Type)
	}
	if err != nil {
		return nil, err
	}

	return &Tagger{
		client:      client,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		logger:      slog.Default().With("component", "llm-tagger"),
	}, nil
}

// GenerateTags classifies a batch of entities in a single chat completion.
// Each entity's four answers become candidate tags; multi-word answers are
// hyphenated and "none" answers are dropped downstream.
func (t *Tagger) GenerateTags(ctx context.Context, batch []tagging.Request) ([]tagging.Response, error) {
	if len(batch) == 0 {
		return []tagging.Response{}, nil
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildSystemPrompt()),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(buildUserPrompt(batch)),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result answerSheet
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := t.client.GenerateContent(ctx, content,
			llms.WithTemperature(t.temperature),
			llms.WithMaxTokens(t.maxTokens),
			llms.WithJSONMode())
		if err != nil {
			t.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, fmt.Errorf("%w: %w", tagging.ErrBackendUnavailable, err)
		}

		if len(response.Choices) < 1 {
			t.logger.Debug("no choices returned from model")
			return []tagging.Response{}, nil
		}

		choice := response.Choices[0]

		// Strip markdown code fences if present
		responseText := strings.TrimSpace(choice.Content)
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)

		// Try to repair common JSON issues
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			t.logger.Warn("error parsing tagging response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		// Success
		lastErr = nil
		break
	}

	if lastErr != nil {
		t.logger.Error("failed to parse tagging response after retries", "err", lastErr)
		return nil, fmt.Errorf("%w: %w", tagging.ErrParseFailed, lastErr)
	}

	responses := make([]tagging.Response, 0, len(result.Entities))
	for _, e := range result.Entities {
		tags := answerTags(e)
		if e.ID == "" || len(tags) == 0 {
			continue
		}
		responses = append(responses, tagging.Response{EntityID: e.ID, Tags: tags})
	}

	t.logger.Debug("generated tags", "requested", len(batch), "answered", len(responses))
	return responses, nil
}

// answerTags converts the four classification answers into candidate tags.
// Spaces become hyphens so multi-word answers stay single tags.
func answerTags(e entityAnswer) []string {
	answers := []string{e.GenericName, e.ProblemSolved, e.InfrastructureRole, e.SystemComponent}

	tags := make([]string, 0, len(answers))
	for _, a := range answers {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" || a == "none" {
			continue
		}
		tags = append(tags, strings.ReplaceAll(a, " ", "-"))
	}
	return tags
}
