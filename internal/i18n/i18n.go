// Package i18n provides message-catalog lookup for user-facing strings.
// The core passes semantic keys; catalogs are embedded per locale.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Translator resolves semantic message keys against per-locale catalogs,
// negotiating the closest supported locale for each request.
type Translator struct {
	catalogs map[string]map[string]string
	tags     []language.Tag
	matcher  language.Matcher
	fallback string
}

// New loads all embedded catalogs. fallback names the locale used when
// negotiation fails; it must be one of the embedded catalogs.
func New(fallback string) (*Translator, error) {
	entries, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return nil, err
	}

	t := &Translator{
		catalogs: make(map[string]map[string]string, len(entries)),
		fallback: fallback,
	}

	// The fallback goes first so the matcher prefers it on no match.
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		if name == fallback {
			names = append([]string{name}, names...)
		} else {
			names = append(names, name)
		}
	}

	for _, name := range names {
		data, err := localeFS.ReadFile(path.Join("locales", name+".json"))
		if err != nil {
			return nil, err
		}
		catalog := map[string]string{}
		if err := json.Unmarshal(data, &catalog); err != nil {
			return nil, fmt.Errorf("parsing locale %s: %w", name, err)
		}
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("parsing locale name %s: %w", name, err)
		}
		t.catalogs[name] = catalog
		t.tags = append(t.tags, tag)
	}

	if _, ok := t.catalogs[fallback]; !ok {
		return nil, fmt.Errorf("fallback locale %q has no catalog", fallback)
	}

	t.matcher = language.NewMatcher(t.tags)
	return t, nil
}

// Resolve negotiates the closest supported locale for an Accept-Language
// value or locale name, falling back to the default.
func (t *Translator) Resolve(locale string) string {
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return t.fallback
	}
	_, index, conf := t.matcher.Match(tags...)
	if conf == language.No {
		return t.fallback
	}
	base, _ := t.tags[index].Base()
	return base.String()
}

// Translate returns the message for key in the given locale, formatting any
// args with the catalog entry as a format string. Unknown keys return the
// key itself so missing translations stay visible instead of failing.
func (t *Translator) Translate(key, locale string, args ...any) string {
	catalog, ok := t.catalogs[t.Resolve(locale)]
	if !ok {
		catalog = t.catalogs[t.fallback]
	}
	msg, ok := catalog[key]
	if !ok {
		if msg, ok = t.catalogs[t.fallback][key]; !ok {
			return key
		}
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}
