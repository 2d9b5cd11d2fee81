package zap

import (
	"strconv"
	"time"

	"github.com/nbd-wtf/go-nostr"
)

const (
	KindZapRequest = 9734
	KindZapReceipt = 9735
)

// BuildRequest constructs the unsigned kind-9734 zap request for one
// recipient. The event is deterministic for identical inputs and
// timestamp; signing is the caller's business.
//
// The "a" coordinate tag is only used when the zapped event is of a
// replaceable kind and carries a "d" tag, everything else is referenced
// by id through an "e" tag.
func BuildRequest(pubkey string, ev *nostr.Event, amountMsat int64, comment string, relayHints []string) *nostr.Event {
	relaysTag := nostr.Tag{"relays"}
	relaysTag = append(relaysTag, relayHints...)

	request := &nostr.Event{
		Kind:      KindZapRequest,
		CreatedAt: time.Now(),
		Content:   comment,
		Tags: nostr.Tags{
			nostr.Tag{"p", pubkey},
			relaysTag,
			nostr.Tag{"amount", strconv.FormatInt(amountMsat, 10)},
		},
	}

	if ev != nil {
		if IsReplaceableKind(ev.Kind) && HasDTag(ev) {
			request.Tags = append(request.Tags, nostr.Tag{"a", EventCoordinate(ev)})
		} else {
			request.Tags = append(request.Tags, nostr.Tag{"e", ev.ID})
		}
	}

	return request
}

// RequestRecipient reads the recipient pubkey back out of a zap request.
func RequestRecipient(ev *nostr.Event) string {
	if tag := ev.Tags.GetFirst([]string{"p"}); tag != nil && len(*tag) > 1 {
		return (*tag)[1]
	}
	return ""
}

// RequestAmount reads the amount tag back out of a zap request.
func RequestAmount(ev *nostr.Event) int64 {
	if tag := ev.Tags.GetFirst([]string{"amount"}); tag != nil && len(*tag) > 1 {
		amount, err := strconv.ParseInt((*tag)[1], 10, 64)
		if err == nil {
			return amount
		}
	}
	return 0
}

// RequestRelays reads the advertised relay set back out of a zap request.
func RequestRelays(ev *nostr.Event) []string {
	tag := ev.Tags.GetFirst([]string{"relays"})
	if tag == nil || len(*tag) < 2 {
		return nil
	}
	return (*tag)[1:]
}
