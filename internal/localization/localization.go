// Package localization resolves user-facing messages per language.
// Translations ship inside the binary as locales/<lang>.json.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
)

//go:embed locales/*.json
var bundled embed.FS

const fallbackLang = "en"

// Localizer holds one key/value table per language.
type Localizer struct {
	translations map[string]map[string]string
	mu           sync.RWMutex
}

// NewLocalizer loads the translations compiled into the binary.
func NewLocalizer() (*Localizer, error) {
	sub, err := fs.Sub(bundled, "locales")
	if err != nil {
		return nil, err
	}
	return NewLocalizerFS(sub)
}

// NewLocalizerFS loads every <lang>.json at the root of fsys.
func NewLocalizerFS(fsys fs.FS) (*Localizer, error) {
	l := &Localizer{
		translations: make(map[string]map[string]string),
	}

	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read localization directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || path.Ext(file.Name()) != ".json" {
			continue
		}

		lang := strings.TrimSuffix(file.Name(), ".json")
		data, err := fs.ReadFile(fsys, file.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read localization file %s: %w", file.Name(), err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("failed to parse localization file %s: %w", file.Name(), err)
		}

		l.translations[lang] = translations
	}

	return l, nil
}

// GetString returns the message for key in lang, falling back to English and
// then to the key itself.
func (l *Localizer) GetString(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if langTranslations, ok := l.translations[lang]; ok {
		if value, ok := langTranslations[key]; ok {
			return value
		}
	}

	if lang != fallbackLang {
		if enTranslations, ok := l.translations[fallbackLang]; ok {
			if value, ok := enTranslations[key]; ok {
				return value
			}
		}
	}

	return key
}

// Format renders the message for key with fmt verbs filled from args.
func (l *Localizer) Format(lang, key string, args ...any) string {
	msg := l.GetString(lang, key)
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

// Supports reports whether translations exist for lang.
func (l *Localizer) Supports(lang string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.translations[lang]
	return ok
}
