package model

import "strings"

// Well-known OSM tag keys read by the normalizer.
const (
	TagName        = "name"
	TagHouseNumber = "addr:housenumber"
	TagStreet      = "addr:street"
	TagCity        = "addr:city"
	TagPostcode    = "addr:postcode"
	TagPhone       = "phone"
	TagPhoneAlt    = "contact:phone"
	TagWebsite     = "website"
	TagWebsiteAlt  = "contact:website"
	TagEmail       = "email"
	TagEmailAlt    = "contact:email"
)

// RawRecord is one unprocessed element from the geo-data source: an OSM
// node, way, or relation with its free-form tag mapping. Raw records are
// consumed by the normalizer and never persisted.
type RawRecord struct {
	Type string            `json:"type"`
	ID   int64             `json:"id"`
	Tags map[string]string `json:"tags"`
}

// Tag returns the trimmed value for key and whether it was present and
// non-blank.
func (r RawRecord) Tag(key string) (string, bool) {
	v, ok := r.Tags[key]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// FirstTag returns the first non-blank value among keys, or "".
func (r RawRecord) FirstTag(keys ...string) string {
	for _, k := range keys {
		if v, ok := r.Tag(k); ok {
			return v
		}
	}
	return ""
}

// ContainsText reports whether needle appears, case-insensitively, in any
// tag value. Used by the orchestrator's location backstop check.
func (r RawRecord) ContainsText(needle string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return true
	}
	for _, v := range r.Tags {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}
