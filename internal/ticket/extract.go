package ticket

import (
	"regexp"
	"strings"

	"github.com/drewfead/releasebridge/internal/github"
)

// The separator matches any Unicode space, not just ASCII whitespace.
var ticketPattern = regexp.MustCompile(`(?i)Ticket number:[\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}]*([A-Za-z0-9\-_]+)`)

// ParseTaskIDs returns every task id referenced in text, in order of appearance.
func ParseTaskIDs(text string) []string {
	var ids []string
	for _, m := range ticketPattern.FindAllStringSubmatch(text, -1) {
		if id := strings.TrimSpace(m[1]); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Extract collects the unique task ids referenced by the pull request descriptions.
// Order is first appearance across prs.
func Extract(prs []github.PullRequest) []string {
	seen := make(map[string]struct{})
	var ids []string

	for _, pr := range prs {
		for _, id := range ParseTaskIDs(pr.BodyText()) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
