package zap

import (
	"fmt"

	"github.com/nbd-wtf/go-nostr"
)

// IsReplaceableKind reports whether events of this kind are replaceable
// per NIP-01, including the parameterized 30000 range.
func IsReplaceableKind(kind int) bool {
	if kind == 0 || kind == 3 {
		return true
	}
	if kind >= 10000 && kind < 20000 {
		return true
	}
	if kind >= 30000 && kind < 40000 {
		return true
	}
	return false
}

// EventCoordinate derives the "kind:pubkey:d-tag" coordinate used to
// address replaceable events.
func EventCoordinate(ev *nostr.Event) string {
	d := ""
	if tag := ev.Tags.GetFirst([]string{"d"}); tag != nil && len(*tag) > 1 {
		d = (*tag)[1]
	}
	return fmt.Sprintf("%d:%s:%s", ev.Kind, ev.PubKey, d)
}

// HasDTag reports whether the event carries an identifying "d" tag.
func HasDTag(ev *nostr.Event) bool {
	return ev.Tags.GetFirst([]string{"d"}) != nil
}
