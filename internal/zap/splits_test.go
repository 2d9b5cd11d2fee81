package zap

import (
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventWithZapTags(tags ...nostr.Tag) *nostr.Event {
	return &nostr.Event{
		Kind:   1,
		PubKey: "author",
		Tags:   nostr.Tags(tags),
	}
}

func TestSplits_NoTagsFallsBackToAuthor(t *testing.T) {
	splits := Splits(eventWithZapTags(), "")
	require.Len(t, splits, 1)
	assert.Equal(t, "author", splits[0].Pubkey)
	assert.Equal(t, 100.0, splits[0].Percent)
}

func TestSplits_NoTagsUsesFallback(t *testing.T) {
	splits := Splits(eventWithZapTags(), "fallback")
	require.Len(t, splits, 1)
	assert.Equal(t, "fallback", splits[0].Pubkey)
	assert.Equal(t, 100.0, splits[0].Percent)
}

func TestSplits_WeightsNormalizeToHundred(t *testing.T) {
	splits := Splits(eventWithZapTags(
		nostr.Tag{"zap", "alice", "wss://relay.one", "1"},
		nostr.Tag{"zap", "bob", "wss://relay.two", "3"},
	), "")
	require.Len(t, splits, 2)
	assert.Equal(t, "alice", splits[0].Pubkey)
	assert.Equal(t, "bob", splits[1].Pubkey)
	assert.InDelta(t, 25.0, splits[0].Percent, 0.0001)
	assert.InDelta(t, 75.0, splits[1].Percent, 0.0001)

	var total float64
	for _, s := range splits {
		total += s.Percent
	}
	assert.InDelta(t, 100.0, total, 0.0001)
}

func TestSplits_ZeroWeightDropped(t *testing.T) {
	splits := Splits(eventWithZapTags(
		nostr.Tag{"zap", "alice", "", "0"},
		nostr.Tag{"zap", "bob", "", "2"},
	), "")
	require.Len(t, splits, 1)
	assert.Equal(t, "bob", splits[0].Pubkey)
}

func TestSplitAmounts_RoundsToWholeSat(t *testing.T) {
	splits := []Split{
		{Pubkey: "alice", Percent: 100.0 / 3},
		{Pubkey: "bob", Percent: 200.0 / 3},
	}
	shares := SplitAmounts(10_000, splits)
	require.Len(t, shares, 2)
	assert.Equal(t, int64(3000), shares[0].AmountMsat)
	assert.Equal(t, int64(7000), shares[1].AmountMsat)
	// every share is whole-sat
	for _, s := range shares {
		assert.Zero(t, s.AmountMsat%1000)
	}
}

func TestSplitAmounts_RoundingSlackBounded(t *testing.T) {
	tables := [][]Split{
		{{Pubkey: "a", Percent: 33.3}, {Pubkey: "b", Percent: 33.3}, {Pubkey: "c", Percent: 33.4}},
		{{Pubkey: "a", Percent: 50}, {Pubkey: "b", Percent: 50}},
		{{Pubkey: "a", Percent: 1}, {Pubkey: "b", Percent: 99}},
		{{Pubkey: "a", Percent: 14.29}, {Pubkey: "b", Percent: 14.29}, {Pubkey: "c", Percent: 14.28},
			{Pubkey: "d", Percent: 14.28}, {Pubkey: "e", Percent: 14.29}, {Pubkey: "f", Percent: 14.28},
			{Pubkey: "g", Percent: 14.29}},
	}
	totals := []int64{1_000, 21_000, 1_000_000, 123_000}

	for _, splits := range tables {
		for _, total := range totals {
			shares := SplitAmounts(total, splits)
			var sum int64
			for _, s := range shares {
				assert.GreaterOrEqual(t, s.AmountMsat, int64(0))
				sum += s.AmountMsat
			}
			slack := (sum - total) / 1000
			if slack < 0 {
				slack = -slack
			}
			assert.LessOrEqual(t, slack, int64(len(splits)-1),
				"split of %d msat over %d recipients drifted %d sat", total, len(splits), slack)
		}
	}
}

func TestSplitAmounts_ZeroPercentOmitted(t *testing.T) {
	shares := SplitAmounts(10_000, []Split{
		{Pubkey: "a", Percent: 0},
		{Pubkey: "b", Percent: 100},
	})
	require.Len(t, shares, 1)
	assert.Equal(t, "b", shares[0].Pubkey)
	assert.Equal(t, int64(10_000), shares[0].AmountMsat)
}
