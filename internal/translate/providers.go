package translate

import (
	"context"

	"github.com/jdboer/grocery-cli/pkg/claude"
	"github.com/jdboer/grocery-cli/pkg/gtranslate"
)

// googleTranslator adapts the Google web endpoint, which only takes one
// text per request, to the batch interface.
type googleTranslator struct {
	client gtranslate.Client
	source string
	target string
}

// NewGoogle wraps a gtranslate client as a Translator.
func NewGoogle(client gtranslate.Client, source, target string) Translator {
	return &googleTranslator{client: client, source: source, target: target}
}

func (g *googleTranslator) TranslateBatch(ctx context.Context, texts []string) ([]string, error) {
	out := make([]string, len(texts))
	for i, t := range texts {
		en, err := g.client.Translate(ctx, t, g.source, g.target)
		if err != nil {
			return nil, err
		}
		out[i] = en
	}
	return out, nil
}

// claudeTranslator sends the whole batch in a single request.
type claudeTranslator struct {
	client claude.Client
	source string
	target string
}

// NewClaude wraps a claude client as a Translator.
func NewClaude(client claude.Client, source, target string) Translator {
	return &claudeTranslator{client: client, source: source, target: target}
}

func (c *claudeTranslator) TranslateBatch(ctx context.Context, texts []string) ([]string, error) {
	return c.client.TranslateBatch(ctx, texts, c.source, c.target)
}
