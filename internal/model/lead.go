package model

import (
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Lead is a canonical, deduplicated business record ready for persistence.
// Every field except ID and Name may be the empty string; none is ever nil
// or a placeholder sentinel once the lead leaves the pipeline.
type Lead struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Website string `json:"website"`
	Email   string `json:"email"`
}

// NewLead constructs a Lead with a fresh UUID. The name is trimmed and must
// be non-empty; this is the only hard construction rule.
func NewLead(name, address, phone, website, email string) (Lead, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Lead{}, eris.New("model: lead name must not be empty")
	}
	return Lead{
		ID:      uuid.NewString(),
		Name:    name,
		Address: strings.TrimSpace(address),
		Phone:   strings.TrimSpace(phone),
		Website: strings.TrimSpace(website),
		Email:   strings.TrimSpace(email),
	}, nil
}

// DedupeKey is the text embedded for near-duplicate detection. Name plus
// address, so two branches of the same chain at different addresses stay
// distinct.
func (l Lead) DedupeKey() string {
	return strings.TrimSpace(l.Name) + strings.TrimSpace(l.Address)
}

// Row returns the fixed six-column representation persisted by every sink
// driver: (id, name, address, phone, website, email).
func (l Lead) Row() []string {
	return []string{l.ID, l.Name, l.Address, l.Phone, l.Website, l.Email}
}
