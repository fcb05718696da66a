package reminder

import (
	"regexp"
	"strconv"
)

var reMention = regexp.MustCompile(`^<@!?(\d+)>$`)

// FormatMention renders the mention token understood by ParseMentions.
func FormatMention(userID int64) string {
	return "<@" + strconv.FormatInt(userID, 10) + ">"
}

// ParseMentions extracts user ids from "<@id>" tokens. Malformed tokens are dropped
// and duplicates collapse to their first occurrence.
func ParseMentions(tokens []string) []int64 {
	seen := make(map[int64]struct{}, len(tokens))
	ids := make([]int64, 0, len(tokens))
	for _, tok := range tokens {
		m := reMention.FindStringSubmatch(tok)
		if m == nil {
			continue
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
