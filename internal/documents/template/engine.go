// Package template fills plain-text legal templates with {{token}}
// placeholders from aggregated wizard data.
package template

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"divorce-wizard/internal/models"
)

var (
	ErrTemplateNotFound = errors.New("TEMPLATE_NOT_FOUND")
	ErrUnresolvedTokens = errors.New("TEMPLATE_UNRESOLVED_TOKENS")
)

//go:embed templates/*.tmpl
var embedded embed.FS

const (
	extension = ".tmpl"
	dateFmt   = "02/01/2006"
)

// Mode selects what happens to tokens with no value.
type Mode string

const (
	// ModeLenient leaves unresolved tokens in the text as written.
	ModeLenient Mode = "lenient"
	// ModeStrict fails with ErrUnresolvedTokens.
	ModeStrict Mode = "strict"
)

// Special tokens computed from the data rather than looked up.
const (
	TokenChildrenBlock = "childrenBlock"
	TokenClaimsList    = "claimsList"
	TokenToday         = "today"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

// Result distinguishes a fully substituted text from a partial one.
type Result struct {
	Text    string
	Missing []string
}

func (r Result) Complete() bool {
	return len(r.Missing) == 0
}

// Title is the first non-empty line of the text.
func (r Result) Title() string {
	for _, line := range strings.Split(r.Text, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return ""
}

type Engine struct {
	fsys  fs.FS
	mode  Mode
	now   func() time.Time
	cache map[string]string
	mu    sync.RWMutex
}

type Option func(*Engine)

// WithFS replaces the embedded templates, e.g. with os.DirFS.
func WithFS(fsys fs.FS) Option {
	return func(e *Engine) { e.fsys = fsys }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(mode Mode, opts ...Option) *Engine {
	sub, _ := fs.Sub(embedded, "templates")
	if mode != ModeStrict {
		mode = ModeLenient
	}
	e := &Engine{
		fsys:  sub,
		mode:  mode,
		now:   time.Now,
		cache: make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Mode() Mode {
	return e.mode
}

// Has reports whether a template called name exists.
func (e *Engine) Has(name string) bool {
	_, err := e.load(name)
	return err == nil
}

// Names lists the available templates.
func (e *Engine) Names() ([]string, error) {
	entries, err := fs.ReadDir(e.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), extension) {
			names = append(names, strings.TrimSuffix(entry.Name(), extension))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Declared is the set of keys a template may leave unanswered. A declared
// key with no value renders as "" instead of counting as missing. Numeric
// segments are dropped, so "formData.apartments.address" covers
// {{formData.apartments.0.address}}.
type Declared map[string]struct{}

// Declare adds each of paths under prefix.
func (d Declared) Declare(prefix string, paths ...string) {
	for _, p := range paths {
		if prefix != "" {
			p = prefix + "." + p
		}
		d[p] = struct{}{}
	}
}

func (d Declared) has(key string) bool {
	if len(d) == 0 {
		return false
	}
	parts := strings.Split(key, ".")
	kept := parts[:0]
	for _, part := range parts {
		if _, err := strconv.Atoi(part); err != nil {
			kept = append(kept, part)
		}
	}
	_, ok := d[strings.Join(kept, ".")]
	return ok
}

// Fill substitutes the named template.
func (e *Engine) Fill(name string, data map[string]interface{}) (Result, error) {
	return e.FillDeclared(name, data, nil)
}

// FillDeclared is Fill with declared keys resolving to "" when unanswered.
func (e *Engine) FillDeclared(name string, data map[string]interface{}, declared Declared) (Result, error) {
	text, err := e.load(name)
	if err != nil {
		return Result{}, err
	}
	return e.fill(text, data, declared)
}

// FillText substitutes an inline template.
func (e *Engine) FillText(text string, data map[string]interface{}) (Result, error) {
	return e.fill(text, data, nil)
}

func (e *Engine) fill(text string, data map[string]interface{}, declared Declared) (Result, error) {
	missing := map[string]struct{}{}

	out := tokenPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := tokenPattern.FindStringSubmatch(match)[1]
		value, ok := e.resolve(key, data)
		if !ok {
			if declared.has(key) {
				return ""
			}
			missing[key] = struct{}{}
			return match
		}
		return value
	})

	res := Result{Text: out}
	for key := range missing {
		res.Missing = append(res.Missing, key)
	}
	sort.Strings(res.Missing)

	if e.mode == ModeStrict && !res.Complete() {
		return res, fmt.Errorf("%w: %s", ErrUnresolvedTokens, strings.Join(res.Missing, ", "))
	}
	return res, nil
}

func (e *Engine) load(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}

	e.mu.RLock()
	if text, ok := e.cache[name]; ok {
		e.mu.RUnlock()
		return text, nil
	}
	e.mu.RUnlock()

	raw, err := fs.ReadFile(e.fsys, path.Clean(name+extension))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}

	text := string(raw)
	e.mu.Lock()
	e.cache[name] = text
	e.mu.Unlock()
	return text, nil
}

func (e *Engine) resolve(key string, data map[string]interface{}) (string, bool) {
	switch key {
	case TokenChildrenBlock:
		return childrenBlock(data["children"]), true
	case TokenClaimsList:
		return claimsList(data["selectedClaims"]), true
	case TokenToday:
		return e.now().Format(dateFmt), true
	}
	return formatValue(lookupNestedValue(data, key))
}

// lookupNestedValue walks dotted keys through maps and, for numeric
// segments, slices.
func lookupNestedValue(data map[string]interface{}, key string) interface{} {
	parts := strings.Split(key, ".")
	current := interface{}(data)

	for _, part := range parts {
		switch node := current.(type) {
		case map[string]interface{}:
			val, exists := node[part]
			if !exists {
				return nil
			}
			current = val
		case []interface{}:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil
			}
			current = node[idx]
		default:
			return nil
		}
	}

	return current
}

func formatValue(v interface{}) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case bool:
		if val {
			return "כן", true
		}
		return "לא", true
	case float64:
		return formatNumber(val), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := formatValue(item)
			if !ok {
				return "", false
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ", "), true
	case map[string]interface{}:
		return "", false
	default:
		return fmt.Sprintf("%v", val), true
	}
}

// formatNumber prints whole numbers with thousands separators.
func formatNumber(f float64) string {
	if f != float64(int64(f)) {
		return strconv.FormatFloat(f, 'f', 2, 64)
	}
	n := int64(f)
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return sign + s
}

var residesWithLabels = map[string]string{
	"applicant":  "התובע/ת",
	"respondent": "הנתבע/ת",
	"both":       "שני ההורים",
}

// childrenBlock renders one paragraph per child.
func childrenBlock(v interface{}) string {
	children, _ := v.([]interface{})
	lines := make([]string, 0, len(children))
	for i, item := range children {
		child, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		line := fmt.Sprintf("%d. %s, ת.ז. %s, תאריך לידה %s",
			i+1, str(child["name"]), str(child["idNumber"]), str(child["birthDate"]))
		if addr := str(child["address"]); addr != "" {
			line += ", מתגורר/ת ב" + addr
		}
		if label, ok := residesWithLabels[str(child["residesWith"])]; ok {
			line += ", בחזקת " + label
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// claimsList joins Hebrew claim labels: "א, ב וג".
func claimsList(v interface{}) string {
	var labels []string
	switch claims := v.(type) {
	case []models.ClaimType:
		for _, c := range claims {
			labels = append(labels, c.Label())
		}
	case []string:
		for _, c := range claims {
			labels = append(labels, models.ClaimType(c).Label())
		}
	case []interface{}:
		for _, c := range claims {
			labels = append(labels, models.ClaimType(str(c)).Label())
		}
	}

	switch len(labels) {
	case 0:
		return ""
	case 1:
		return labels[0]
	default:
		return strings.Join(labels[:len(labels)-1], ", ") + " ו" + labels[len(labels)-1]
	}
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
