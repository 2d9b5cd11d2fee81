package relays

import (
	"strings"

	"github.com/nbd-wtf/go-nostr"
)

// MaxHintsPerSource caps each hint source before merging so a single
// source can't crowd the advertised relay list.
const MaxHintsPerSource = 4

// HintSources are the relay candidates advertised in a zap request:
// the recipient's inbox, hints carried by the zapped event, the sender's
// outbox and anything the caller passed along.
type HintSources struct {
	Inbox  []string
	Event  *nostr.Event
	Outbox []string
	Extra  []string
}

// EventRelayHints collects relay addresses mentioned in an event's tags,
// like the relay hint slot of "e" and "a" tags.
func EventRelayHints(ev *nostr.Event, max int) []string {
	if ev == nil {
		return nil
	}
	var hints []string
	for _, tag := range ev.Tags {
		for _, entry := range tag {
			if isRelayAddress(entry) {
				hints = append(hints, entry)
				break
			}
		}
		if len(hints) >= max {
			break
		}
	}
	return hints
}

func isRelayAddress(s string) bool {
	return strings.HasPrefix(s, "wss://") || strings.HasPrefix(s, "ws://")
}

// Merge ranks each source, truncates it to MaxHintsPerSource and
// concatenates them, deduplicated with first occurrence winning.
func Merge(ranker Ranker, src HintSources) []string {
	sources := [][]string{
		truncate(ranker.Rank(src.Inbox)),
		truncate(ranker.Rank(EventRelayHints(src.Event, MaxHintsPerSource))),
		truncate(ranker.Rank(src.Outbox)),
		truncate(ranker.Rank(src.Extra)),
	}
	seen := make(map[string]bool)
	var merged []string
	for _, source := range sources {
		for _, url := range source {
			if seen[url] {
				continue
			}
			seen[url] = true
			merged = append(merged, url)
		}
	}
	return merged
}

func truncate(urls []string) []string {
	if len(urls) > MaxHintsPerSource {
		return urls[:MaxHintsPerSource]
	}
	return urls
}
