// Package intake turns a free-text narrative into a partial answer document
// for a form type, using an OpenAI chat model. The output is vetted against
// the form's declared shape before anyone is allowed to merge it into a
// draft; a failure here is an intake failure, never a draft mutation.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/casekit/formfill/internal/schema"
)

var (
	// ErrNotConfigured reports that no API key is set; intake is optional
	// and the rest of the service works without it.
	ErrNotConfigured = errors.New("intake not configured")
	// ErrEmptyNarrative reports a blank narrative.
	ErrEmptyNarrative = errors.New("narrative is empty")
	// ErrBadOutput reports model output that is not a document matching the
	// form's shape.
	ErrBadOutput = errors.New("model output does not match form shape")
)

// client is the slice of the OpenAI API the normalizer uses; narrowed for
// test doubles.
type client interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Normalizer produces structured partial answers from narratives.
type Normalizer struct {
	client client
	model  string
}

// New builds a Normalizer. An empty apiKey yields a normalizer that answers
// every call with ErrNotConfigured. baseURL overrides the API endpoint for
// OpenAI-compatible gateways.
func New(apiKey, baseURL, model string) *Normalizer {
	if apiKey == "" {
		return &Normalizer{model: model}
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Normalizer{client: openai.NewClientWithConfig(cfg), model: model}
}

// newWithClient is the test seam.
func newWithClient(c client, model string) *Normalizer {
	return &Normalizer{client: c, model: model}
}

// Configured reports whether intake can make API calls.
func (n *Normalizer) Configured() bool {
	return n.client != nil
}

const systemPrompt = `You convert an asylum applicant's narrative into structured form data.
Respond with a single JSON object containing only keys defined by the form's schema.
Omit anything the narrative does not state. Dates use MM/DD/YYYY. Do not invent facts.`

// Normalize extracts a partial answer document for formType from the
// narrative. The result honors the form's declared shape; documents the
// model returns with unknown keys or wrong kinds are rejected.
func (n *Normalizer) Normalize(ctx context.Context, narrative, formType string) (map[string]any, error) {
	if n.client == nil {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(narrative) == "" {
		return nil, ErrEmptyNarrative
	}
	shp, ok := schema.ForForm(formType)
	if !ok {
		return nil, fmt.Errorf("no shape declared for form type %q", formType)
	}

	resp, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: n.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt + "\n\n" + shapeHint(shp)},
			{Role: openai.ChatMessageRoleUser, Content: narrative},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrBadOutput)
	}

	doc, err := parseDocument(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	if issues := shp.Validate(doc); len(issues) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrBadOutput, issueSummary(issues))
	}
	return doc, nil
}

// shapeHint renders the form's shape as compact JSON for the prompt.
func shapeHint(s *schema.Shape) string {
	hint := describeProps(s.Properties)
	raw, err := json.Marshal(hint)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("Form %s schema: %s", s.Form, raw)
}

func describeProps(props map[string]*schema.Property) map[string]any {
	out := make(map[string]any, len(props))
	for name, p := range props {
		out[name] = describeProp(p)
	}
	return out
}

func describeProp(p *schema.Property) any {
	switch p.Kind {
	case schema.KindObject:
		return describeProps(p.Properties)
	case schema.KindArray:
		return []any{describeProp(p.Items)}
	case schema.KindString:
		if len(p.Enum) > 0 {
			return "one of: " + strings.Join(p.Enum, "|")
		}
		return "string"
	default:
		return string(p.Kind)
	}
}

// parseDocument decodes the model's reply, tolerating a fenced code block.
func parseDocument(content string) (map[string]any, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if i := strings.LastIndex(content, "```"); i >= 0 {
			content = content[:i]
		}
		content = strings.TrimSpace(content)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrBadOutput)
	}
	return doc, nil
}

func issueSummary(issues []schema.Issue) string {
	parts := make([]string, 0, len(issues))
	for _, i := range issues {
		parts = append(parts, i.String())
	}
	return strings.Join(parts, "; ")
}
