// Package describe drafts listing copy with an LLM. Anthropic is tried first
// and OpenAI is the fallback.
package describe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qri-io/jsonschema"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/fsbo/internal/model"
	"github.com/sells-group/fsbo/pkg/anthropic"
	"github.com/sells-group/fsbo/pkg/openai"
)

// ErrNoProvider is returned when no drafting provider is configured.
var ErrNoProvider = eris.New("describe: no provider configured")

const draftSchema = `{
	"type": "object",
	"required": ["headline", "description"],
	"properties": {
		"headline": {"type": "string", "minLength": 1, "maxLength": 120},
		"description": {"type": "string", "minLength": 50, "maxLength": 5000},
		"highlights": {
			"type": "array",
			"maxItems": 8,
			"items": {"type": "string", "minLength": 1}
		}
	}
}`

const systemPrompt = `You write listing copy for homes sold directly by their owners.
Write in a warm, factual tone. Never invent features that are not in the facts.
Respond with a single JSON object: {"headline": string, "description": string, "highlights": [string]}.
The headline is at most 120 characters. The description is 2 to 4 paragraphs.
Give at most 8 short highlights.`

// Draft is generated listing copy.
type Draft struct {
	Headline    string   `json:"headline"`
	Description string   `json:"description"`
	Highlights  []string `json:"highlights"`
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
}

// Config holds the drafter's providers. Either client may be nil.
type Config struct {
	Anthropic      anthropic.Client
	AnthropicModel string
	MaxTokens      int64
	OpenAI         openai.Client
	OpenAIModel    string
}

// Drafter generates listing descriptions.
type Drafter struct {
	cfg    Config
	schema *jsonschema.Schema
}

// NewDrafter creates a Drafter.
func NewDrafter(cfg Config) (*Drafter, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(draftSchema), rs); err != nil {
		return nil, eris.Wrap(err, "describe: compile schema")
	}
	return &Drafter{cfg: cfg, schema: rs}, nil
}

// Draft writes a headline, description and highlights for l. v is optional;
// when present its value range is mentioned to the model as context.
func (d *Drafter) Draft(ctx context.Context, l *model.Listing, v *model.Valuation) (*Draft, error) {
	if d.cfg.Anthropic == nil && d.cfg.OpenAI == nil {
		return nil, ErrNoProvider
	}
	prompt := buildPrompt(l, v)

	var errs []string
	if d.cfg.Anthropic != nil {
		draft, err := d.viaAnthropic(ctx, prompt)
		if err == nil {
			return draft, nil
		}
		zap.L().Warn("describe: anthropic draft failed, falling back",
			zap.String("listing_id", l.ID), zap.Error(err))
		errs = append(errs, err.Error())
	}
	if d.cfg.OpenAI != nil {
		draft, err := d.viaOpenAI(ctx, prompt)
		if err == nil {
			return draft, nil
		}
		zap.L().Warn("describe: openai draft failed",
			zap.String("listing_id", l.ID), zap.Error(err))
		errs = append(errs, err.Error())
	}
	return nil, eris.Errorf("describe: all providers failed: %s", strings.Join(errs, "; "))
}

func (d *Drafter) viaAnthropic(ctx context.Context, prompt string) (*Draft, error) {
	resp, err := d.cfg.Anthropic.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     d.cfg.AnthropicModel,
		MaxTokens: d.cfg.MaxTokens,
		System:    systemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
			{Role: "assistant", Content: "{"},
		},
	})
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(resp.Model, "describe")

	draft, err := d.parse(ctx, "{"+resp.Text())
	if err != nil {
		return nil, eris.Wrap(err, "anthropic")
	}
	draft.Provider, draft.Model = "anthropic", resp.Model
	return draft, nil
}

func (d *Drafter) viaOpenAI(ctx context.Context, prompt string) (*Draft, error) {
	resp, err := d.cfg.OpenAI.Complete(ctx, openai.CompletionRequest{
		Model:     d.cfg.OpenAIModel,
		System:    systemPrompt,
		Prompt:    prompt,
		MaxTokens: d.cfg.MaxTokens,
		JSON:      true,
	})
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(resp.Model, "describe")

	draft, err := d.parse(ctx, resp.Content)
	if err != nil {
		return nil, eris.Wrap(err, "openai")
	}
	draft.Provider, draft.Model = "openai", resp.Model
	return draft, nil
}

// parse validates model output against the draft schema and decodes it.
func (d *Drafter) parse(ctx context.Context, text string) (*Draft, error) {
	raw := []byte(cleanJSON(text))
	keyErrs, err := d.schema.ValidateBytes(ctx, raw)
	if err != nil {
		return nil, eris.Wrap(err, "describe: invalid json")
	}
	if len(keyErrs) > 0 {
		msgs := make([]string, 0, len(keyErrs))
		for _, ke := range keyErrs {
			msgs = append(msgs, ke.Error())
		}
		return nil, eris.Errorf("describe: output does not match schema: %s", strings.Join(msgs, "; "))
	}

	var draft Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, eris.Wrap(err, "describe: decode draft")
	}
	draft.Headline = strings.TrimSpace(draft.Headline)
	draft.Description = strings.TrimSpace(draft.Description)
	if draft.Highlights == nil {
		draft.Highlights = []string{}
	}
	return &draft, nil
}

// cleanJSON strips markdown fences and surrounding prose.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(strings.TrimPrefix(text, "```json"), "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func buildPrompt(l *model.Listing, v *model.Valuation) string {
	var sb strings.Builder
	sb.WriteString("Write listing copy for this home.\n\nFacts:\n")
	fact := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "- %s: %s\n", label, value)
		}
	}

	fact("Address", l.Address())
	fact("Property type", strings.ReplaceAll(l.PropertyType, "_", " "))
	if l.Bedrooms > 0 {
		fact("Bedrooms", fmt.Sprintf("%d", l.Bedrooms))
	}
	if l.Bathrooms > 0 {
		fact("Bathrooms", fmt.Sprintf("%g", l.Bathrooms))
	}
	if l.Sqft > 0 {
		fact("Living area", fmt.Sprintf("%d sq ft", l.Sqft))
	}
	if l.LotSizeSqft > 0 {
		fact("Lot size", fmt.Sprintf("%d sq ft", l.LotSizeSqft))
	}
	if l.YearBuilt > 0 {
		fact("Year built", fmt.Sprintf("%d", l.YearBuilt))
	}
	if l.ListPrice != nil {
		fact("Asking price", model.FormatUSD(*l.ListPrice))
	}
	if v != nil && v.HasData {
		fact("Estimated value range", model.FormatUSD(v.ValueLow)+" to "+model.FormatUSD(v.ValueHigh))
	}
	if notes := strings.TrimSpace(l.Description); notes != "" {
		sb.WriteString("\nSeller's notes:\n")
		sb.WriteString(notes)
		sb.WriteString("\n")
	}
	return sb.String()
}
