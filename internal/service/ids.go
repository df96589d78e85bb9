// Package service holds helpers shared by the domain services.
package service

import "strings"

// undefinedSentinel is what some clients send for an unset id.
const undefinedSentinel = "undefined"

// CleanID trims id and reports whether it is usable: non-empty and not the
// "undefined" sentinel.
func CleanID(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if id == "" || id == undefinedSentinel {
		return "", false
	}
	return id, true
}

// Dedupe drops repeated ids, keeping first occurrence order.
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
