package events

import (
	"fmt"
	"strings"
)

// SubjectOutcome is the default global subject for outcome events.
const SubjectOutcome = "zomecall.outcome"

// BuildOutcomeSubject builds the granular outcome subject for one remote function.
func BuildOutcomeSubject(app, zome, fn string) string {
	return fmt.Sprintf("%s.%s.%s.%s", SubjectOutcome, subjectToken(app), subjectToken(zome), subjectToken(fn))
}

// subjectToken keeps a name inside a single NATS subject token.
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(s)
}
