package poller

import "strings"

const (
	AllChannel  = "all"
	eventSuffix = "Event"
)

// ChannelsFor maps an item type to the channels it is delivered on: the raw
// tag, its lowercase form, the tag without "Event", that form lowercased and
// the wildcard channel. Only the first "Event" is removed and aliases are not
// deduplicated: a tag without the suffix yields the same name twice.
func ChannelsFor(typeTag string) []string {
	stripped := strings.Replace(typeTag, eventSuffix, "", 1)
	return []string{
		typeTag,
		strings.ToLower(typeTag),
		stripped,
		strings.ToLower(stripped),
		AllChannel,
	}
}
