package lnurl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/eko/gocache/store"
	"github.com/fiatjaf/go-lnurl"
	decodepay "github.com/fiatjaf/ln-decodepay"
	"github.com/gudnuf/nostrudel/internal/errors"
	"github.com/gudnuf/nostrudel/internal/network"
	"github.com/gudnuf/nostrudel/internal/rate"
	"github.com/gudnuf/nostrudel/internal/runtime"
	"github.com/nbd-wtf/go-nostr"
	gocache "github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
	xrate "golang.org/x/time/rate"
)

const (
	PayRequestTag = "payRequest"
	Endpoint      = ".well-known/lnurlp"
)

// PayParams is the LNURL-pay metadata served by the recipient's endpoint.
type PayParams struct {
	Callback        string `json:"callback"`
	Tag             string `json:"tag"`
	MaxSendable     int64  `json:"maxSendable"`
	MinSendable     int64  `json:"minSendable"`
	EncodedMetadata string `json:"metadata"`
	CommentAllowed  int64  `json:"commentAllowed"`
	AllowsNostr     bool   `json:"allowsNostr,omitempty"`
	NostrPubkey     string `json:"nostrPubkey,omitempty"`
	Bolt12Offer     string `json:"bolt12Offer,omitempty"`
}

// Capability says what kind of payment the endpoint can settle. An
// endpoint is only zap capable when it advertises allowsNostr and ships
// a verification pubkey for its receipts.
type Capability struct {
	NostrZapCapable bool
	VerificationKey string
}

func (p *PayParams) Capability() Capability {
	if p.AllowsNostr && p.NostrPubkey != "" {
		return Capability{NostrZapCapable: true, VerificationKey: p.NostrPubkey}
	}
	return Capability{}
}

type payValues struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
	PR     string `json:"pr"`
}

// Gateway resolves lightning addresses to LNURL metadata and converts
// amounts (plus an optional signed zap request) into payable invoices.
type Gateway struct {
	client  *http.Client
	cache   *store.GoCacheStore
	limiter *rate.Limiter
	// decode is swappable for tests, defaults to ln-decodepay
	decode func(bolt11 string) (decodepay.Bolt11, error)
}

func NewGateway() *Gateway {
	client, err := network.GetClient()
	if err != nil {
		log.Errorf("[LNURL] %v", err)
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Gateway{
		client:  client,
		cache:   store.NewGoCache(gocache.New(30*time.Minute, 60*time.Minute), nil),
		limiter: rate.NewLimiter(xrate.Limit(2), 4),
		decode:  decodepay.Decodepay,
	}
}

// IsBolt12 reports whether the string is a BOLT12 offer rather than an
// LNURL or lightning address.
func IsBolt12(offer string) bool {
	return strings.HasPrefix(strings.ToLower(offer), "lno1")
}

// EndpointFromAddress normalizes a name@domain lightning address or a
// bech32 LNURL string into the HTTPS metadata endpoint behind it.
func EndpointFromAddress(address string) (string, error) {
	if strings.Contains(address, "@") {
		split := strings.Split(address, "@")
		if len(split) != 2 || split[0] == "" || split[1] == "" {
			return "", errors.New(errors.MissingPaymentAddressError, fmt.Errorf("invalid lightning address %s", address))
		}
		return fmt.Sprintf("https://%s/%s/%s", split[1], Endpoint, split[0]), nil
	}
	if strings.HasPrefix(strings.ToLower(address), "lnurl") {
		decoded, err := lnurl.LNURLDecode(address)
		if err != nil {
			return "", errors.New(errors.MissingPaymentAddressError, fmt.Errorf("could not decode lnurl: %v", err))
		}
		return decoded, nil
	}
	return "", errors.New(errors.MissingPaymentAddressError, fmt.Errorf("unsupported payment address %s", address))
}

// ResolveMetadata fetches and parses the LNURL-pay metadata behind a
// lightning address. Responses are cached per address for the session.
func (g *Gateway) ResolveMetadata(ctx context.Context, address string) (*PayParams, error) {
	key := fmt.Sprintf("lnurl_metadata_%s", address)
	if m, err := g.cache.Get(key); err == nil {
		return m.(*PayParams), nil
	}

	endpoint, err := EndpointFromAddress(address)
	if err != nil {
		return nil, err
	}
	endpointUrl, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.New(errors.EndpointUnreachableError, err)
	}
	if err = g.limiter.Wait(ctx, endpointUrl.Host); err != nil {
		return nil, errors.New(errors.EndpointUnreachableError, err)
	}

	log.Debugf("[LNURL] fetching metadata for %s", address)
	params, err := g.fetchPayParams(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	runtime.IgnoreError(g.cache.Set(key, params, &store.Options{Expiration: 30 * time.Minute}))
	return params, nil
}

func (g *Gateway) fetchPayParams(ctx context.Context, endpoint string) (*PayParams, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.New(errors.EndpointUnreachableError, err)
	}
	res, err := g.client.Do(req)
	if err != nil {
		return nil, errors.New(errors.EndpointUnreachableError, err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.New(errors.EndpointUnreachableError, err)
	}
	var params PayParams
	if err = json.Unmarshal(body, &params); err != nil {
		return nil, errors.New(errors.EndpointUnreachableError, err)
	}
	if params.Callback == "" {
		return nil, errors.New(errors.EndpointUnreachableError, fmt.Errorf("endpoint returned no callback"))
	}
	return &params, nil
}

// RequestInvoice validates the amount against the endpoint bounds, calls
// the callback and returns the invoice. The signed zap request rides
// along in the "nostr" query parameter, but only when the endpoint
// advertises zap support.
func (g *Gateway) RequestInvoice(ctx context.Context, params *PayParams, amountMsat int64, comment string, zapRequest *nostr.Event) (string, error) {
	if (params.MinSendable > 0 && amountMsat < params.MinSendable) ||
		(params.MaxSendable > 0 && amountMsat > params.MaxSendable) {
		return "", errors.New(errors.AmountOutOfRangeError,
			fmt.Errorf("amount out of bounds (min: %d sat, max: %d sat)", params.MinSendable/1000, params.MaxSendable/1000))
	}

	callbackUrl, err := url.Parse(params.Callback)
	if err != nil {
		return "", errors.New(errors.EndpointUnreachableError, err)
	}
	if params.CommentAllowed > 0 && int64(len(comment)) > params.CommentAllowed {
		comment = comment[:params.CommentAllowed]
	}

	qs := callbackUrl.Query()
	qs.Set("amount", strconv.FormatInt(amountMsat, 10))
	if len(comment) > 0 {
		qs.Set("comment", comment)
	}
	if zapRequest != nil && params.Capability().NostrZapCapable {
		serialized, err := json.Marshal(zapRequest)
		if err != nil {
			return "", errors.New(errors.InvoiceMissingError, err)
		}
		qs.Set("nostr", string(serialized))
	}
	callbackUrl.RawQuery = qs.Encode()

	if err = g.limiter.Wait(ctx, callbackUrl.Host); err != nil {
		return "", errors.New(errors.EndpointUnreachableError, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, callbackUrl.String(), nil)
	if err != nil {
		return "", errors.New(errors.EndpointUnreachableError, err)
	}
	res, err := g.client.Do(req)
	if err != nil {
		return "", errors.New(errors.EndpointUnreachableError, err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", errors.New(errors.EndpointUnreachableError, err)
	}

	var values payValues
	if err = json.Unmarshal(body, &values); err != nil {
		return "", errors.New(errors.InvoiceMissingError, err)
	}
	if values.Status == "ERROR" || len(values.PR) < 1 {
		reason := "could not receive invoice"
		if len(values.Reason) > 0 {
			reason = values.Reason
		}
		return "", errors.New(errors.InvoiceMissingError, fmt.Errorf("%s", reason))
	}

	bolt11, err := g.decode(values.PR)
	if err != nil {
		return "", errors.New(errors.InvoiceMissingError, fmt.Errorf("could not decode invoice: %v", err))
	}
	// the rail is satoshi granular, compare in sat
	if bolt11.MSatoshi/1000 != amountMsat/1000 {
		return "", errors.New(errors.AmountMismatchError,
			fmt.Errorf("invoice amount %d sat does not match requested %d sat", bolt11.MSatoshi/1000, amountMsat/1000))
	}
	return values.PR, nil
}
