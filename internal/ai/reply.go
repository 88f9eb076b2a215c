package ai

import "strings"

// ExtractReply picks the first assistant message in the order given and joins
// its text segments with newlines. ok is false when no assistant message exists.
func ExtractReply(messages []Message) (reply string, ok bool) {
	for _, m := range messages {
		if m.Role != RoleAssistant {
			continue
		}
		return strings.Join(m.Segments, "\n"), true
	}
	return "", false
}
