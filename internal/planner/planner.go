// Package planner turns a free-text search query into a structured
// search specification.
package planner

import (
	_ "embed"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadgen-cli/internal/model"
)

//go:embed categories.yaml
var categoriesYAML []byte

type categoryEntry struct {
	Phrase   string `yaml:"phrase"`
	Category string `yaml:"category"`
}

type categoryTable struct {
	Categories []categoryEntry `yaml:"categories"`
}

var categories = loadCategories()

func loadCategories() []categoryEntry {
	var tbl categoryTable
	if err := yaml.Unmarshal(categoriesYAML, &tbl); err != nil {
		// The table is embedded at build time; a parse failure is a
		// programming error, not a runtime condition.
		panic("planner: parse categories.yaml: " + err.Error())
	}
	return tbl.Categories
}

// Separator tokens splitting an entity phrase from a location phrase,
// checked in order against the lowercased query.
var separators = []string{" in ", " near "}

// Plan parses a free-text query into a SearchSpec. It never fails: a query
// that does not match the "<entity> in <location>" shape degrades to a
// free-text name search.
func Plan(query string) model.SearchSpec {
	lower := strings.ToLower(strings.TrimSpace(query))

	for _, sep := range separators {
		idx := strings.Index(lower, sep)
		if idx < 0 {
			continue
		}

		entityPhrase := strings.TrimSpace(lower[:idx])
		location := strings.TrimSpace(lower[idx+len(sep):])
		if location == "" {
			break
		}

		spec := model.SearchSpec{
			Kind:       model.AreaSearch,
			EntityHint: resolveCategory(entityPhrase),
			Location:   location,
			RawQuery:   query,
		}
		zap.L().Debug("planner: area search",
			zap.String("entity_hint", spec.EntityHint),
			zap.String("location", spec.Location),
		)
		return spec
	}

	return model.SearchSpec{
		Kind:     model.NameSearch,
		RawQuery: query,
	}
}

// resolveCategory maps an entity phrase to a canonical category by substring
// match in table order, or "" when nothing matches.
func resolveCategory(phrase string) string {
	for _, entry := range categories {
		if strings.Contains(phrase, entry.Phrase) {
			return entry.Category
		}
	}
	return ""
}
