package auth

import "strings"

const (
	RoleAdmin     = "admin"
	RoleEvaluator = "evaluator"
	RoleCompany   = "company"
)

// DomainOfUsername extracts the mail domain of an email-style username,
// lowercased. Usernames without "@" have no domain.
func DomainOfUsername(username string) string {
	_, domain, ok := strings.Cut(username, "@")
	if !ok || domain == "" {
		return ""
	}
	return strings.ToLower(domain)
}

// ClassifyDomain maps a mail domain to a default role. Domains in
// privileged belong to the auditing organization and get admin; every
// other domain is assumed to be a supplier account.
func ClassifyDomain(domain string, privileged []string) string {
	domain = strings.ToLower(domain)
	for _, p := range privileged {
		if domain == strings.ToLower(p) {
			return RoleAdmin
		}
	}
	return RoleCompany
}
