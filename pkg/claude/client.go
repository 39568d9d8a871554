// Package claude provides a batch translation client backed by the
// Anthropic Messages API.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// Client defines the translation operations used by the pipeline.
type Client interface {
	// TranslateBatch converts a list of texts between languages in one
	// request, preserving order and length.
	TranslateBatch(ctx context.Context, texts []string, source, target string) ([]string, error)
}

// Option configures the client.
type Option func(*sdkClient)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *sdkClient) {
		c.model = model
	}
}

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *sdkClient) {
		c.requestOpts = append(c.requestOpts, option.WithBaseURL(url))
	}
}

type sdkClient struct {
	client      sdk.Client
	model       string
	requestOpts []option.RequestOption
}

// NewClient creates a translation client backed by the SDK.
func NewClient(apiKey string, opts ...Option) Client {
	c := &sdkClient{
		model:       "claude-haiku-4-5-20251001",
		requestOpts: []option.RequestOption{option.WithAPIKey(apiKey)},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.client = sdk.NewClient(c.requestOpts...)
	return c
}

var languageNames = map[string]string{
	"nl": "Dutch",
	"en": "English",
	"de": "German",
	"fr": "French",
}

func languageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}

func (c *sdkClient) TranslateBatch(ctx context.Context, texts []string, source, target string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(texts)
	if err != nil {
		return nil, eris.Wrap(err, "claude: encode batch")
	}

	system := fmt.Sprintf(
		"You translate grocery product names from %s to %s. "+
			"The user sends a JSON array of strings. Reply with only a JSON array "+
			"of the translations, same length and order. Keep brand names, "+
			"quantities and units unchanged.",
		languageName(source), languageName(target),
	)

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: 4096,
		System:    []sdk.TextBlockParam{{Text: system}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(string(payload))),
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "claude: create message")
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	translations, err := parseBatchReply(text)
	if err != nil {
		return nil, err
	}
	if len(translations) != len(texts) {
		return nil, eris.Errorf("claude: got %d translations for %d texts", len(translations), len(texts))
	}
	return translations, nil
}

// parseBatchReply extracts the JSON array from a model reply, tolerating
// a markdown code fence around it.
func parseBatchReply(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if i := strings.LastIndex(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}

	var out []string
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, eris.Wrap(err, "claude: parse reply")
	}
	return out, nil
}
