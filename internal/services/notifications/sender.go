package notifications

import "strings"

// SenderValidator checks notification senders against the configured
// bank domain allow-list. Matching is substring-based: forwarding
// pipelines wrap the original address in display names and such.
type SenderValidator struct {
	allowed []string
}

func NewSenderValidator(allowedDomains []string) *SenderValidator {
	return &SenderValidator{allowed: allowedDomains}
}

func (v *SenderValidator) IsTrustedSender(address string) bool {
	if address == "" {
		return false
	}
	lower := strings.ToLower(address)
	for _, domain := range v.allowed {
		if strings.Contains(lower, strings.ToLower(domain)) {
			return true
		}
	}
	return false
}
