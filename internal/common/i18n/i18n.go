// Package i18n holds the localized user-facing messages (Hebrew by default)
// backed by golang.org/x/text message catalogs.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is used when the requested locale has no catalog.
const BaseLocale = "he"

//go:embed locales/*.yaml
var localeFS embed.FS

type localeFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Bundle resolves message keys for a set of locales.
type Bundle struct {
	builder *catalog.Builder
	tags    map[string]language.Tag
	keys    map[string]struct{}
}

var (
	defaultOnce   sync.Once
	defaultBundle *Bundle
	defaultErr    error
)

// Default returns the bundle built from the embedded locale files.
func Default() *Bundle {
	defaultOnce.Do(func() {
		defaultBundle, defaultErr = Load()
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("i18n: embedded locales are invalid: %v", defaultErr))
	}
	return defaultBundle
}

// Load parses the embedded locale files.
func Load() (*Bundle, error) {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}

	b := &Bundle{
		builder: catalog.NewBuilder(catalog.Fallback(language.MustParse(BaseLocale))),
		tags:    map[string]language.Tag{},
		keys:    map[string]struct{}{},
	}

	for _, entry := range entries {
		raw, err := localeFS.ReadFile(path.Join("locales", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		var file localeFile
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", entry.Name(), err)
		}
		if err := b.Register(file.Locale, file.Messages); err != nil {
			return nil, fmt.Errorf("register %s: %w", entry.Name(), err)
		}
	}
	return b, nil
}

// Register adds messages for locale.
func (b *Bundle) Register(locale string, messages map[string]string) error {
	tag, err := language.Parse(locale)
	if err != nil {
		return fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	for key, msg := range messages {
		if err := b.builder.SetString(tag, key, msg); err != nil {
			return err
		}
		b.keys[key] = struct{}{}
	}
	b.tags[normalize(locale)] = tag
	return nil
}

// Message formats key for locale. Unknown locales fall back to BaseLocale,
// unknown keys are returned as-is.
func (b *Bundle) Message(locale, key string, args ...interface{}) string {
	if _, ok := b.keys[key]; !ok {
		return key
	}
	p := message.NewPrinter(b.tag(locale), message.Catalog(b.builder))
	return p.Sprintf(key, args...)
}

// Localizer binds a bundle to one locale.
type Localizer struct {
	bundle *Bundle
	locale string
}

func (b *Bundle) For(locale string) Localizer {
	return Localizer{bundle: b, locale: locale}
}

func (l Localizer) T(key string, args ...interface{}) string {
	return l.bundle.Message(l.locale, key, args...)
}

func (l Localizer) Locale() string {
	return l.locale
}

func (b *Bundle) tag(locale string) language.Tag {
	if tag, ok := b.tags[normalize(locale)]; ok {
		return tag
	}
	// "en-US" resolves to "en" when only the base language is registered.
	if base, _, found := strings.Cut(normalize(locale), "-"); found {
		if tag, ok := b.tags[base]; ok {
			return tag
		}
	}
	return b.tags[BaseLocale]
}

func normalize(locale string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"))
}
