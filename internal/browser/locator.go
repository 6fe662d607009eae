// internal/browser/locator.go
package browser

import (
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
)

// Strategy is how a Locator finds elements in the current page.
type Strategy string

const (
	// StrategyName matches elements by their name attribute.
	StrategyName Strategy = "name"
	// StrategyTag matches elements by tag name.
	StrategyTag Strategy = "tag"
	// StrategyText matches elements of a tag whose normalized visible text equals the value.
	StrategyText Strategy = "text"
	// StrategyPartialText matches elements of a tag whose visible text contains the value.
	StrategyPartialText Strategy = "partial_text"
	// StrategyCSS matches elements with a CSS selector (typically a style class).
	StrategyCSS Strategy = "css"
	// StrategyXPath matches elements with a raw XPath expression.
	StrategyXPath Strategy = "xpath"
)

var strategies = map[Strategy]bool{
	StrategyName:        true,
	StrategyTag:         true,
	StrategyText:        true,
	StrategyPartialText: true,
	StrategyCSS:         true,
	StrategyXPath:       true,
}

// Locator is an immutable (strategy, value) pair. Text strategies also carry
// the tag they apply to.
type Locator struct {
	Strategy Strategy
	Value    string
	Tag      string
}

func ByName(name string) Locator   { return Locator{Strategy: StrategyName, Value: name} }
func ByTag(tag string) Locator     { return Locator{Strategy: StrategyTag, Value: tag} }
func ByCSS(sel string) Locator     { return Locator{Strategy: StrategyCSS, Value: sel} }
func ByXPath(expr string) Locator  { return Locator{Strategy: StrategyXPath, Value: expr} }
func ByText(tag, text string) Locator {
	return Locator{Strategy: StrategyText, Tag: tag, Value: text}
}
func ByPartialText(tag, text string) Locator {
	return Locator{Strategy: StrategyPartialText, Tag: tag, Value: text}
}

// ParseLocator reads the "strategy=value" form used in configuration files.
// Text strategies take "tag:text"; a missing tag matches any element.
//
//	name=email
//	partial_text=button:Iniciar sesión
//	xpath=//div[contains(@class,'flex')]
func ParseLocator(s string) (Locator, error) {
	raw, value, ok := strings.Cut(strings.TrimSpace(s), "=")
	if !ok {
		return Locator{}, fmt.Errorf("locator %q: expected the form strategy=value", s)
	}
	loc := Locator{Strategy: Strategy(strings.ToLower(strings.TrimSpace(raw))), Value: value}
	if loc.Strategy == StrategyText || loc.Strategy == StrategyPartialText {
		if tag, text, found := strings.Cut(value, ":"); found {
			loc.Tag, loc.Value = strings.TrimSpace(tag), text
		}
	}
	if err := loc.Validate(); err != nil {
		return Locator{}, err
	}
	return loc, nil
}

// MustParseLocator is ParseLocator for compile-time constants. It panics on error.
func MustParseLocator(s string) Locator {
	loc, err := ParseLocator(s)
	if err != nil {
		panic(err)
	}
	return loc
}

// Validate reports whether the locator can be compiled into a query.
func (l Locator) Validate() error {
	if !strategies[l.Strategy] {
		return fmt.Errorf("locator %s: unknown strategy %q", l, l.Strategy)
	}
	if strings.TrimSpace(l.Value) == "" {
		return fmt.Errorf("locator %s: empty value", l)
	}
	return nil
}

// IsZero reports whether l is the zero Locator, used for "not configured".
func (l Locator) IsZero() bool {
	return l == Locator{}
}

func (l Locator) String() string {
	if l.Tag != "" {
		return fmt.Sprintf("%s=%s:%s", l.Strategy, l.Tag, l.Value)
	}
	return fmt.Sprintf("%s=%s", l.Strategy, l.Value)
}

// Query compiles the locator to a chromedp selector and the query option
// that interprets it.
func (l Locator) Query() (string, chromedp.QueryOption) {
	tag := l.Tag
	if tag == "" {
		tag = "*"
	}
	switch l.Strategy {
	case StrategyName:
		return fmt.Sprintf("[name=%s]", cssString(l.Value)), chromedp.ByQuery
	case StrategyText:
		return fmt.Sprintf("//%s[normalize-space(.)=%s]", tag, xpathLiteral(strings.TrimSpace(l.Value))), chromedp.BySearch
	case StrategyPartialText:
		return fmt.Sprintf("//%s[contains(normalize-space(.), %s)]", tag, xpathLiteral(strings.TrimSpace(l.Value))), chromedp.BySearch
	case StrategyXPath:
		return l.Value, chromedp.BySearch
	default:
		// tag and css are both plain selectors.
		return l.Value, chromedp.ByQuery
	}
}

// cssString quotes s as a CSS string token.
func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// xpathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so a value holding both quote kinds is built with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
