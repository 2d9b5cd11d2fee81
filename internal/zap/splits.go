package zap

import (
	"math"
	"strconv"

	"github.com/nbd-wtf/go-nostr"
)

// Split is one declared zap recipient with its share of the total.
type Split struct {
	Pubkey  string
	Percent float64
}

// Share is a concrete per-recipient amount after splitting.
type Share struct {
	Pubkey     string
	AmountMsat int64
}

// Splits reads the event's zap split tags ["zap", pubkey, relay, weight]
// and normalizes the weights to percentages summing to 100. An event
// without split tags yields a single 100% entry for the fallback pubkey,
// or the event author when no fallback is given. Zero-weight entries are
// dropped.
func Splits(ev *nostr.Event, fallbackPubkey string) []Split {
	var splits []Split
	var totalWeight float64
	for _, tag := range ev.Tags {
		if len(tag) < 2 || tag[0] != "zap" || tag[1] == "" {
			continue
		}
		weight := 1.0
		if len(tag) >= 4 {
			w, err := strconv.ParseFloat(tag[3], 64)
			if err != nil {
				continue
			}
			weight = w
		}
		if weight <= 0 {
			continue
		}
		splits = append(splits, Split{Pubkey: tag[1], Percent: weight})
		totalWeight += weight
	}

	if len(splits) == 0 {
		pubkey := fallbackPubkey
		if pubkey == "" {
			pubkey = ev.PubKey
		}
		return []Split{{Pubkey: pubkey, Percent: 100}}
	}

	for i := range splits {
		splits[i].Percent = splits[i].Percent / totalWeight * 100
	}
	return splits
}

// SplitAmounts turns a total into per-recipient amounts. Each share is
// rounded to the nearest whole satoshi before converting back to msat
// because the payment rail has no sub-satoshi support; the summed shares
// may therefore differ from the total by up to len(splits)-1 sat. That
// drift is accepted, not a bug.
func SplitAmounts(totalMsat int64, splits []Split) []Share {
	totalSat := float64(totalMsat) / 1000
	shares := make([]Share, 0, len(splits))
	for _, split := range splits {
		if split.Percent <= 0 {
			continue
		}
		amount := int64(math.Round(totalSat*split.Percent/100)) * 1000
		shares = append(shares, Share{Pubkey: split.Pubkey, AmountMsat: amount})
	}
	return shares
}
