package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/abelbrown/nexus/internal/gemini"
	"github.com/abelbrown/nexus/internal/logging"
	"github.com/abelbrown/nexus/internal/translate"
)

// entrySchema constrains translation output to an array of entries.
var entrySchema = &gemini.Schema{
	Type: "ARRAY",
	Items: &gemini.Schema{
		Type: "OBJECT",
		Properties: map[string]*gemini.Schema{
			"id":       {Type: "STRING"},
			"title":    {Type: "STRING"},
			"snippet":  {Type: "STRING"},
			"feedName": {Type: "STRING"},
		},
		Required: []string{"id", "title", "snippet", "feedName"},
	},
}

const translatePrompt = `Translate the 'title', 'snippet', and 'feedName' fields in the following JSON array to %s.
Do NOT translate 'id'. Return the result as a valid JSON array.

Input JSON:
%s`

// Translator translates entry batches with the first available provider.
// It implements translate.Translator.
type Translator struct {
	providers *ProviderManager
}

// NewTranslator creates a Translator over pm.
func NewTranslator(pm *ProviderManager) *Translator {
	return &Translator{providers: pm}
}

// Available reports whether any provider can serve a request.
func (t *Translator) Available() bool {
	return t.providers != nil && t.providers.GetAvailable() != nil
}

// Translate sends one request for the whole batch. An empty batch makes
// no provider call.
func (t *Translator) Translate(ctx context.Context, locale string, batch []translate.Entry) ([]translate.Entry, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	if t.providers == nil {
		return nil, ErrNotConfigured
	}
	p := t.providers.GetAvailable()
	if p == nil {
		return nil, ErrNotConfigured
	}

	input, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}

	resp, err := p.Generate(ctx, Request{
		UserPrompt: fmt.Sprintf(translatePrompt, LanguageName(locale), input),
		Schema:     entrySchema,
	})
	if err != nil {
		return nil, fmt.Errorf("%s translate: %w", p.Name(), err)
	}

	out, err := parseEntries(resp.Content)
	if err != nil {
		logging.Debug("unparseable translation response", "provider", p.Name(), "content", resp.Content)
		return nil, fmt.Errorf("%s translate: %w", p.Name(), err)
	}
	logging.Debug("batch translated", "provider", p.Name(), "locale", locale, "requested", len(batch), "returned", len(out))
	return out, nil
}

// LanguageName renders locale for a prompt, e.g. "zh" -> "Simplified Chinese (zh-CN)".
func LanguageName(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return locale
	}

	code := tag.String()
	base, _ := tag.Base()
	if _, conf := tag.Script(); base.String() == "zh" && conf != language.Exact {
		if region, rconf := tag.Region(); rconf != language.Exact || region.String() == "CN" {
			// Bare "zh" means mainland simplified text.
			tag = language.SimplifiedChinese
			code = "zh-CN"
		}
	}

	name := display.English.Tags().Name(tag)
	if name == "" {
		return code
	}
	return fmt.Sprintf("%s (%s)", name, code)
}

// parseEntries decodes a JSON array, tolerating a surrounding code fence.
func parseEntries(content string) ([]translate.Entry, error) {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	if s == "" {
		return nil, nil
	}

	var out []translate.Entry
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return out, nil
}
