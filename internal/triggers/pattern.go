package triggers

import "strings"

// matchDocument matches a concrete document path against a pattern such as
// chats/{chatId}/messages/{messageId} and returns the captured parameters.
// Segment counts must be equal, so stories/{storyId} never matches a reply.
func matchDocument(pattern, document string) (map[string]string, bool) {
	pp := strings.Split(strings.Trim(pattern, "/"), "/")
	dp := strings.Split(strings.Trim(document, "/"), "/")
	if len(pp) != len(dp) {
		return nil, false
	}

	params := make(map[string]string)
	for i, seg := range pp {
		if name, ok := paramName(seg); ok {
			if dp[i] == "" {
				return nil, false
			}
			params[name] = dp[i]
			continue
		}
		if seg != dp[i] {
			return nil, false
		}
	}
	return params, true
}

func paramName(seg string) (string, bool) {
	if len(seg) > 2 && strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
		return seg[1 : len(seg)-1], true
	}
	return "", false
}

// validPattern reports whether every segment is a literal or a {param}.
func validPattern(pattern string) bool {
	if strings.Trim(pattern, "/") == "" {
		return false
	}
	for _, seg := range strings.Split(strings.Trim(pattern, "/"), "/") {
		if seg == "" || (strings.ContainsAny(seg, "{}") && !isParam(seg)) {
			return false
		}
	}
	return true
}

func isParam(seg string) bool {
	_, ok := paramName(seg)
	return ok
}
