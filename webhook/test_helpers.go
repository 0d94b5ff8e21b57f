package webhook

import "github.com/stretchr/testify/mock"

// MatchEvent creates a custom matcher for delivery event arguments in mocks
func MatchEvent(matcher func(DeliveryEvent) bool) interface{} {
	return mock.MatchedBy(matcher)
}

// MatchEndpoint creates a custom matcher for endpoint arguments in mocks
func MatchEndpoint(matcher func(Endpoint) bool) interface{} {
	return mock.MatchedBy(matcher)
}

// MatchAudit creates a custom matcher for audit entries in mocks
func MatchAudit(matcher func(AuditEntry) bool) interface{} {
	return mock.MatchedBy(matcher)
}
