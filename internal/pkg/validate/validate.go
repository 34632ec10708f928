package validate

import (
	"regexp"
	"strings"
)

var objectIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

// ObjectID reports whether value looks like a 24-character hex document id.
func ObjectID(value string) bool {
	return objectIDPattern.MatchString(value)
}

// Email is a coarse shape check; real verification happens out of band.
func Email(value string) bool {
	value = strings.TrimSpace(value)
	at := strings.Index(value, "@")
	if at <= 0 || at == len(value)-1 {
		return false
	}
	return strings.Contains(value[at+1:], ".")
}

func MaxLen(value string, max int) bool {
	return len(value) <= max
}
