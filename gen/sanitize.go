package gen

import (
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("```[a-zA-Z]*")

// StripFences removes markdown code fences and a leading BOM from model
// output. It is applied both to generated tests before they are returned
// to the caller and to stored sources before they are handed to a runner.
func StripFences(text string) string {
	if text == "" {
		return ""
	}
	s := strings.ReplaceAll(text, "\r\n", "\n")
	s = strings.TrimPrefix(s, "\uFEFF")
	s = fenceRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
