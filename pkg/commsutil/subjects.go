package commsutil

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// DefaultSubjectPrefix is the root of every IPC subject.
const DefaultSubjectPrefix = "runtime.ipc"

// HeaderMode marks how the sender expects the host to answer. Requests
// made by a blocking send carry ModeSync; other messages carry no header.
const (
	HeaderMode = "Ipc-Mode"
	ModeSync   = "sync"
)

// BuildHostSubject builds the subject the host listens on for one routing id.
func BuildHostSubject(prefix string, routingID int) string {
	return fmt.Sprintf("%s.host.%d", prefix, routingID)
}

// HostWildcard matches the host subjects of every routing id.
func HostWildcard(prefix string) string {
	return prefix + ".host.*"
}

// ParseHostSubject extracts the routing id from a host subject. It returns
// 0 when subject is not a host subject under prefix.
func ParseHostSubject(prefix, subject string) int {
	rest, ok := strings.CutPrefix(subject, prefix+".host.")
	if !ok {
		return 0
	}
	id, err := strconv.Atoi(rest)
	if err != nil {
		return 0
	}
	return id
}

// BuildInboxSubject builds the subject on which a renderer process receives
// messages pushed by the host. Token separators, wildcards and whitespace in
// process become underscores so the inbox is always one literal token.
func BuildInboxSubject(prefix, process string) string {
	return fmt.Sprintf("%s.inbox.%s", prefix, strings.Map(subjectSafe, process))
}

func subjectSafe(r rune) rune {
	if r == '.' || r == '*' || r == '>' || unicode.IsSpace(r) {
		return '_'
	}
	return r
}

// BuildJournalSubject builds the subject handled-message events go to.
func BuildJournalSubject(prefix string) string {
	return prefix + ".journal"
}
