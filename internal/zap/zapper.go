package zap

import (
	"context"
	"fmt"

	"github.com/gudnuf/nostrudel/internal/errors"
	"github.com/gudnuf/nostrudel/internal/lnurl"
	"github.com/gudnuf/nostrudel/internal/profiles"
	"github.com/gudnuf/nostrudel/internal/relays"
	"github.com/nbd-wtf/go-nostr"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
)

type PaymentMethod string

const (
	MethodLightning PaymentMethod = "lightning"
	MethodCashu     PaymentMethod = "cashu"
)

// PayResult is the per-recipient outcome of a zap. A cashu settlement
// succeeds with an empty invoice since there is nothing left to display.
type PayResult struct {
	Pubkey  string `json:"pubkey"`
	Invoice string `json:"invoice,omitempty"`
	Error   string `json:"error,omitempty"`
	Err     error  `json:"-"`
}

func failedResult(pubkey string, err error) PayResult {
	return PayResult{Pubkey: pubkey, Err: err, Error: err.Error()}
}

// Profiles looks up what is known about a recipient.
type Profiles interface {
	Get(pubkey string) (*profiles.Profile, error)
}

// Gateway converts a lightning address plus amount into an invoice.
type Gateway interface {
	ResolveMetadata(ctx context.Context, address string) (*lnurl.PayParams, error)
	RequestInvoice(ctx context.Context, params *lnurl.PayParams, amountMsat int64, comment string, zapRequest *nostr.Event) (string, error)
}

// Melter settles an offer from the held token balance.
type Melter interface {
	Melt(ctx context.Context, offer string, amountSat int64) error
}

// Request describes one zap interaction: a recipient or an event with
// possible split recipients, a total amount and the chosen payment rail.
type Request struct {
	Pubkey         string        `json:"pubkey"`
	Event          *nostr.Event  `json:"event,omitempty"`
	AmountMsat     int64         `json:"amount_msat"`
	Comment        string        `json:"comment,omitempty"`
	FallbackPubkey string        `json:"fallback_pubkey,omitempty"`
	ExtraRelays    []string      `json:"relays,omitempty"`
	Method         PaymentMethod `json:"method,omitempty"`
}

type Config struct {
	Profiles Profiles
	Gateway  Gateway
	Melter   Melter
	Signer   Signer
	Ranker   relays.Ranker
	Outbox   []string
}

// Zapper drives the zap pipeline: split the amount, resolve each
// recipient's endpoint, build and sign the zap request and fetch the
// invoice, or hand the recipient to the token settlement engine.
type Zapper struct {
	profiles Profiles
	gateway  Gateway
	melter   Melter
	signer   Signer
	ranker   relays.Ranker
	outbox   []string
}

func New(cfg Config) *Zapper {
	ranker := cfg.Ranker
	if ranker == nil {
		ranker = relays.NewScoreboard()
	}
	return &Zapper{
		profiles: cfg.Profiles,
		gateway:  cfg.Gateway,
		melter:   cfg.Melter,
		signer:   cfg.Signer,
		ranker:   ranker,
		outbox:   cfg.Outbox,
	}
}

// Zap runs the full flow and returns one result per split recipient, in
// declaration order. For an event with splits, a failing recipient never
// aborts the others; its error is captured in its slot and the loop
// moves on. For a direct single-recipient zap the error is also returned
// so the caller sees a rejected operation.
func (z *Zapper) Zap(ctx context.Context, req Request) ([]PayResult, error) {
	flow := uuid.NewV4().String()[:8]

	if req.Event == nil {
		log.Infof("[Zap] (%s) zapping user %s with %d msat", flow, req.Pubkey, req.AmountMsat)
		result := z.payRecipient(ctx, req, req.Pubkey, req.AmountMsat)
		return []PayResult{result}, result.Err
	}

	fallback := req.FallbackPubkey
	if fallback == "" {
		fallback = req.Pubkey
	}
	splits := Splits(req.Event, fallback)
	shares := SplitAmounts(req.AmountMsat, splits)
	log.Infof("[Zap] (%s) zapping event %s, %d msat across %d recipients", flow, req.Event.ID, req.AmountMsat, len(shares))

	results := make([]PayResult, 0, len(shares))
	for _, share := range shares {
		result := z.payRecipient(ctx, req, share.Pubkey, share.AmountMsat)
		if result.Err != nil {
			log.Warnf("[Zap] (%s) recipient %s failed: %v", flow, share.Pubkey, result.Err)
		}
		results = append(results, result)
	}
	return results, nil
}

// payRecipient runs the single-recipient pipeline. Every error path ends
// in a PayResult, nothing escapes the recipient boundary.
func (z *Zapper) payRecipient(ctx context.Context, req Request, pubkey string, amountMsat int64) PayResult {
	profile, err := z.profiles.Get(pubkey)
	if err != nil || profile.PaymentAddress() == "" {
		return failedResult(pubkey, errors.New(errors.MissingPaymentAddressError,
			fmt.Errorf("user %s has no payment address", pubkey)))
	}

	if req.Method == MethodCashu {
		// token settlement needs no zap request event, signing and relay
		// resolution are skipped
		if err := z.melter.Melt(ctx, profile.Bolt12Offer, amountMsat/1000); err != nil {
			return failedResult(pubkey, err)
		}
		return PayResult{Pubkey: pubkey, Invoice: ""}
	}

	params, err := z.gateway.ResolveMetadata(ctx, profile.PaymentAddress())
	if err != nil {
		return failedResult(pubkey, err)
	}

	var signedRequest *nostr.Event
	if params.Capability().NostrZapCapable {
		hints := relays.Merge(z.ranker, relays.HintSources{
			Inbox:  profile.Inbox(),
			Event:  req.Event,
			Outbox: z.outbox,
			Extra:  req.ExtraRelays,
		})
		request := BuildRequest(pubkey, req.Event, amountMsat, req.Comment, hints)
		if err := z.signer.Sign(request); err != nil {
			return failedResult(pubkey, err)
		}
		signedRequest = request
	}

	invoice, err := z.gateway.RequestInvoice(ctx, params, amountMsat, req.Comment, signedRequest)
	if err != nil {
		return failedResult(pubkey, err)
	}
	return PayResult{Pubkey: pubkey, Invoice: invoice}
}
