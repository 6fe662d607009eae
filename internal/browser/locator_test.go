// internal/browser/locator_test.go
package browser

import (
	"reflect"
	"runtime"
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocator(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Locator
	}{
		{"name attribute", "name=email", ByName("email")},
		{"tag", "tag=header", ByTag("header")},
		{"css class", "css=button.bg-success-700", ByCSS("button.bg-success-700")},
		{"xpath keeps equals signs", "xpath=//div[@id='a=b']", ByXPath("//div[@id='a=b']")},
		{"text with tag", "text=h1:Gestión de Paquetes", ByText("h1", "Gestión de Paquetes")},
		{"partial text with tag", "partial_text=button:Iniciar sesión", ByPartialText("button", "Iniciar sesión")},
		{"text without tag", "text=Guardar", Locator{Strategy: StrategyText, Value: "Guardar"}},
		{"strategy is case insensitive", " TAG=aside", ByTag("aside")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLocator(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLocator_Errors(t *testing.T) {
	for _, in := range []string{"", "header", "id=main", "tag=", "css=   "} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseLocator(in)
			assert.Error(t, err)
		})
	}
}

func TestMustParseLocator(t *testing.T) {
	assert.Equal(t, ByTag("table"), MustParseLocator("tag=table"))
	assert.Panics(t, func() { MustParseLocator("bogus") })
}

func TestLocatorString(t *testing.T) {
	assert.Equal(t, "name=password", ByName("password").String())
	assert.Equal(t, "partial_text=button:Iniciar sesión", ByPartialText("button", "Iniciar sesión").String())

	// String and ParseLocator round trip.
	loc := ByText("h1", "Gestión de Paquetes")
	parsed, err := ParseLocator(loc.String())
	require.NoError(t, err)
	assert.Equal(t, loc, parsed)
}

func TestLocatorIsZero(t *testing.T) {
	assert.True(t, Locator{}.IsZero())
	assert.False(t, ByTag("aside").IsZero())
}

func TestLocatorQuery(t *testing.T) {
	tests := []struct {
		name    string
		loc     Locator
		wantSel string
		wantCSS bool
	}{
		{"name", ByName("email"), `[name="email"]`, true},
		{"name with quote", ByName(`a"b`), `[name="a\"b"]`, true},
		{"tag", ByTag("header"), "header", true},
		{"css", ByCSS(".bg-success-700"), ".bg-success-700", true},
		{"xpath", ByXPath("//div[contains(@class,'flex')]"), "//div[contains(@class,'flex')]", false},
		{"text", ByText("h1", " Gestión de Paquetes "), "//h1[normalize-space(.)='Gestión de Paquetes']", false},
		{"partial text", ByPartialText("button", "Iniciar sesión"), "//button[contains(normalize-space(.), 'Iniciar sesión')]", false},
		{"text without tag", Locator{Strategy: StrategyText, Value: "Hola"}, "//*[normalize-space(.)='Hola']", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, opt := tt.loc.Query()
			assert.Equal(t, tt.wantSel, sel)
			// Query options are funcs, so compare them by name.
			if tt.wantCSS {
				assert.Equal(t, funcName(chromedp.ByQuery), funcName(opt))
			} else {
				assert.Equal(t, funcName(chromedp.BySearch), funcName(opt))
			}
		})
	}
}

func TestXPathLiteral(t *testing.T) {
	assert.Equal(t, "'plain'", xpathLiteral("plain"))
	assert.Equal(t, `"it's"`, xpathLiteral("it's"))
	assert.Equal(t, `concat('say "hi"', "'", 's')`, xpathLiteral(`say "hi"'s`))
}

func funcName(f chromedp.QueryOption) string {
	return runtime.FuncForPC(reflect.ValueOf(f).Pointer()).Name()
}
