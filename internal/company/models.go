package company

import "errors"

var ErrNotFound = errors.New("company not found")

type Company struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	CNPJ     string `json:"cnpj"` // stored as bare digits
	Domain   string `json:"domain,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	IsActive bool   `json:"is_active"`
}

// DisplayCNPJ returns the CNPJ formatted XX.XXX.XXX/XXXX-XX.
func (c Company) DisplayCNPJ() string { return FormatCNPJ(c.CNPJ) }
