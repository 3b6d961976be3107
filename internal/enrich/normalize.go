// Package enrich converts raw source records into canonical leads:
// deterministic tag extraction first, then optional LLM-based cleanup
// that silently falls back to the deterministic values.
package enrich

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
)

const promptInstructions = `You are cleaning and normalizing OpenStreetMap business data.
The raw object may include tags such as name, brand, addr:street,
addr:housenumber, addr:city, addr:postcode, contact:phone, phone,
contact:website, website, contact:email, email.

Decide whether this is a real, useful business lead. If it clearly is not a
business (a park, a bus stop, a street), return all fields as empty strings.
Prefer human-friendly formatting, e.g. a single-line address.

Return ONLY valid JSON (no prose, no comments):
{
  "name": "<clean business name or empty string>",
  "address": "<single-line formatted address>",
  "phone": "<best-effort phone, or empty string>",
  "website": "<https URL if present, else empty string>",
  "email": "<email if present, else empty string>"
}`

// leadFields is the strict response schema expected from the enrichment
// backend. Anything that does not unmarshal into it is an enrichment
// failure, never a crash.
type leadFields struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Website string `json:"website"`
	Email   string `json:"email"`
}

// Normalizer builds Leads from RawRecords. A nil Enricher disables the
// LLM step entirely.
type Normalizer struct {
	enricher Enricher
}

// NewNormalizer creates a Normalizer. Pass a nil enricher to run the
// deterministic extraction only.
func NewNormalizer(enricher Enricher) *Normalizer {
	return &Normalizer{enricher: enricher}
}

// Normalize converts one raw record into a Lead. ok is false when the
// record has no usable business name, the pipeline's only hard rejection.
// Enrichment failures of any kind leave the deterministic lead unchanged.
func (n *Normalizer) Normalize(ctx context.Context, raw model.RawRecord) (model.Lead, bool) {
	name, ok := raw.Tag(model.TagName)
	if !ok {
		return model.Lead{}, false
	}

	base := leadFields{
		Name:    name,
		Address: joinAddress(raw),
		Phone:   raw.FirstTag(model.TagPhone, model.TagPhoneAlt),
		Website: raw.FirstTag(model.TagWebsite, model.TagWebsiteAlt),
		Email:   raw.FirstTag(model.TagEmail, model.TagEmailAlt),
	}

	if n.enricher != nil {
		base = n.enrichFields(ctx, raw, base)
	}

	// base.Name starts from the non-blank deterministic name and merge never
	// overwrites with an empty value, so construction cannot fail here.
	lead, err := model.NewLead(base.Name, base.Address, base.Phone, base.Website, base.Email)
	if err != nil {
		return model.Lead{}, false
	}
	return lead, true
}

// enrichFields runs the LLM step. Per-field: a non-empty trimmed value from
// the response overwrites the deterministic one; everything else, including
// any backend or parse failure, keeps the base values.
func (n *Normalizer) enrichFields(ctx context.Context, raw model.RawRecord, base leadFields) leadFields {
	rawJSON, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return base
	}

	response, err := n.enricher.Enrich(ctx, promptInstructions+"\nRAW DATA:\n"+string(rawJSON))
	if err != nil {
		zap.L().Warn("enrich: backend call failed, keeping extracted fields", zap.Error(err))
		return base
	}

	var parsed leadFields
	if err := json.Unmarshal([]byte(cleanJSON(response)), &parsed); err != nil {
		zap.L().Warn("enrich: response did not match schema, keeping extracted fields", zap.Error(err))
		return base
	}

	merge := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	merge(&base.Name, parsed.Name)
	merge(&base.Address, parsed.Address)
	merge(&base.Phone, parsed.Phone)
	merge(&base.Website, parsed.Website)
	merge(&base.Email, parsed.Email)
	return base
}

// joinAddress concatenates the non-empty address sub-tags in fixed order:
// house number, street, city, postcode.
func joinAddress(raw model.RawRecord) string {
	parts := make([]string, 0, 4)
	for _, key := range []string{model.TagHouseNumber, model.TagStreet, model.TagCity, model.TagPostcode} {
		if v, ok := raw.Tag(key); ok {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// cleanJSON extracts a JSON object from text that may contain markdown
// code fences or surrounding prose.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
