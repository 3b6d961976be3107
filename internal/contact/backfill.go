// Package contact fills in missing lead emails by scraping the lead's
// website. Every step is best-effort; a lead always comes back intact.
package contact

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/scrape"
)

// noEmail is the internal sentinel the extractor returns when no token is
// found. It never overwrites a lead field and never reaches a sink.
const noEmail = "N/A"

// placeholders are email values treated as missing.
var placeholders = map[string]struct{}{
	"":     {},
	"N/A":  {},
	"na":   {},
	"none": {},
	"null": {},
}

var emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// Backfiller scrapes lead websites for contact emails.
type Backfiller struct {
	pages scrape.PageFetcher
}

// NewBackfiller creates a Backfiller over the given page fetcher.
func NewBackfiller(pages scrape.PageFetcher) *Backfiller {
	return &Backfiller{pages: pages}
}

// Backfill returns lead with its email filled in from the lead's website
// when the email is missing and the website is fetchable. It never fails
// and never degrades an already-good email.
func (b *Backfiller) Backfill(ctx context.Context, lead model.Lead) model.Lead {
	if !needsEmail(lead.Email) {
		return lead
	}
	if !strings.HasPrefix(lead.Website, "http") {
		return lead
	}

	text := b.pages.FetchText(ctx, lead.Website)
	if text == "" {
		return lead
	}

	email := ExtractEmail(text)
	if email == noEmail {
		return lead
	}

	zap.L().Debug("contact: scraped email",
		zap.String("lead", lead.Name),
		zap.String("email", email),
	)
	lead.Email = email
	return lead
}

// needsEmail reports whether the current value is empty or a placeholder.
func needsEmail(email string) bool {
	_, ok := placeholders[email]
	return ok
}

// ExtractEmail returns the first email-shaped token in text, or the "N/A"
// sentinel when none is found.
func ExtractEmail(text string) string {
	if m := emailRe.FindString(text); m != "" {
		return m
	}
	return noEmail
}
