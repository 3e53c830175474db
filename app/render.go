package app

import (
	_ "embed"
	"html/template"

	"github.com/microcosm-cc/bluemonday"

	"github.com/matthgross1/message-intent-lab/app/models"
)

//go:embed page.html
var pageHTML string

// PageTemplate renders the single-page UI. Installed on the router via
// SetHTMLTemplate.
var PageTemplate = template.Must(template.New("page").Parse(pageHTML))

// markupPolicy strips anything dangerous from model-returned markup before
// it is trusted as template.HTML.
var markupPolicy = bluemonday.UGCPolicy()

// SanitizeMarkup runs the model's interpretation markup through the UGC
// policy so it can be embedded in the page unescaped.
func SanitizeMarkup(markup string) template.HTML {
	return template.HTML(markupPolicy.Sanitize(markup))
}

// pageData is the template context for the decode page.
type pageData struct {
	Error             string
	Notice            string
	Context           string
	Thread            string
	Result            template.HTML
	Blocked           bool
	PurchasingEnabled bool
	FreeRemaining     int
	FreeDailyLimit    int
	Credits           int
	Packs             []int
}

// newPageData seeds template data from an entitlement decision.
func (s *Server) newPageData(decision Decision) pageData {
	return pageData{
		Blocked:           decision.Path == models.PathBlocked,
		PurchasingEnabled: decision.PurchasingEnabled,
		FreeRemaining:     decision.Ledger.FreeRemaining(models.DayUTC(s.now())),
		FreeDailyLimit:    models.FreeDailyLimit,
		Credits:           decision.Ledger.PaidDecodeCredits,
		Packs:             models.CreditPackSizes,
	}
}
