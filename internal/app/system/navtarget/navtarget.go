// Package navtarget builds and parses the "<route>/<id>" strings stored on
// notifications. Mobile clients route on these, so the format is part of the
// stored document schema.
package navtarget

import "strings"

// Known routes.
const (
	ExpenseList      = "expense_list"
	PendingApprovals = "pending_approvals"
	ExpenseDetail    = "expense_detail"
	ProjectDetail    = "project_detail"
	DelegationDetail = "delegation_detail"
	Chat             = "chat"
	Profile          = "profile" // id is the recipient's own user id
)

var known = map[string]struct{}{
	ExpenseList:      {},
	PendingApprovals: {},
	ExpenseDetail:    {},
	ProjectDetail:    {},
	DelegationDetail: {},
	Chat:             {},
	Profile:          {},
}

// Build joins route and id. Callers never pass an empty id.
func Build(route, id string) string {
	return route + "/" + id
}

// Parse splits a target into route and id. ok is false when the target has
// no separator, an empty part, or a route this app does not know.
func Parse(target string) (route, id string, ok bool) {
	route, id, found := strings.Cut(target, "/")
	if !found || route == "" || id == "" {
		return "", "", false
	}
	if _, k := known[route]; !k {
		return "", "", false
	}
	return route, id, true
}

// IsKnownRoute reports whether route is one of the routes above.
func IsKnownRoute(route string) bool {
	_, ok := known[route]
	return ok
}
