package company

import "strings"

// CleanCNPJ strips everything but digits; the storage format.
func CleanCNPJ(cnpj string) string {
	var b strings.Builder
	for _, r := range cnpj {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatCNPJ renders a 14-digit CNPJ as XX.XXX.XXX/XXXX-XX for display.
// Anything that is not 14 digits comes back as the bare digits.
func FormatCNPJ(cnpj string) string {
	d := CleanCNPJ(cnpj)
	if len(d) != 14 {
		return d
	}
	return d[:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14]
}

// ValidCNPJ checks the clean form is 14 digits and not a repeated digit run.
func ValidCNPJ(cnpj string) bool {
	d := CleanCNPJ(cnpj)
	if len(d) != 14 {
		return false
	}
	for i := 1; i < len(d); i++ {
		if d[i] != d[0] {
			return true
		}
	}
	return false
}
