package handler

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/a-h/templ"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/DukeRupert/authportal/internal/csrf"
	"github.com/DukeRupert/authportal/internal/domain"
	"github.com/DukeRupert/authportal/internal/templ/shared"
)

// labelOverrides holds the labels that do not follow from the input name.
var labelOverrides = map[domain.Field]string{
	domain.FieldEmail: "E-Mail",
}

// fieldLabel returns the display label of an input, "confirm_password"
// becoming "Confirm Password".
func fieldLabel(name string) string {
	if l, ok := labelOverrides[domain.Field(name)]; ok {
		return l
	}
	// Casers are stateful and must not be shared between requests.
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

// TemplateFuncs returns a FuncMap with custom template functions
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"year": func() int {
			return time.Now().Year()
		},

		// Form helpers
		"csrfField": func(token string) template.HTML {
			return template.HTML(fmt.Sprintf(`<input type="hidden" name="%s" value="%s">`,
				csrf.FormFieldName, template.HTMLEscapeString(token)))
		},
		"errorID": func(name string) string {
			return name + "-error"
		},
		"label": fieldLabel,

		// templ components
		"flash": func(f *domain.Flash) (template.HTML, error) {
			return templ.ToGoHTML(context.Background(), shared.FlashBanner(f))
		},
	}
}
