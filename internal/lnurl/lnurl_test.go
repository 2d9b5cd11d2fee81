package lnurl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	decodepay "github.com/fiatjaf/ln-decodepay"
	"github.com/gudnuf/nostrudel/internal/errors"
	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGateway(msat int64, decodeErr error) *Gateway {
	g := NewGateway()
	g.decode = func(bolt11 string) (decodepay.Bolt11, error) {
		return decodepay.Bolt11{MSatoshi: msat}, decodeErr
	}
	return g
}

func TestEndpointFromAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
		wantErr bool
	}{
		{
			name:    "lightning address",
			address: "alice@example.com",
			want:    "https://example.com/.well-known/lnurlp/alice",
		},
		{
			name:    "empty name part",
			address: "@example.com",
			wantErr: true,
		},
		{
			name:    "garbage",
			address: "not-an-address",
			wantErr: true,
		},
		{
			name:    "bad bech32",
			address: "lnurl1notvalid",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint, err := EndpointFromAddress(tt.address)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.MissingPaymentAddressError, errors.TypeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, endpoint)
		})
	}
}

func TestIsBolt12(t *testing.T) {
	assert.True(t, IsBolt12("lno1qqszs"))
	assert.True(t, IsBolt12("LNO1QQSZS"))
	assert.False(t, IsBolt12("lnurl1abc"))
	assert.False(t, IsBolt12("alice@example.com"))
}

func TestCapability(t *testing.T) {
	capable := &PayParams{AllowsNostr: true, NostrPubkey: "receiptkey"}
	assert.True(t, capable.Capability().NostrZapCapable)
	assert.Equal(t, "receiptkey", capable.Capability().VerificationKey)

	// allowsNostr without a verification key is not zap capable
	half := &PayParams{AllowsNostr: true}
	assert.False(t, half.Capability().NostrZapCapable)
	assert.False(t, (&PayParams{NostrPubkey: "x"}).Capability().NostrZapCapable)
}

func TestFetchPayParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(PayParams{
			Callback:    "https://example.com/cb",
			Tag:         PayRequestTag,
			MinSendable: 1000,
			MaxSendable: 100_000,
		})
	}))
	defer server.Close()

	g := NewGateway()
	params, err := g.fetchPayParams(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/cb", params.Callback)
	assert.Equal(t, int64(1000), params.MinSendable)
}

func TestFetchPayParams_NoCallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ERROR","reason":"not found"}`)
	}))
	defer server.Close()

	g := NewGateway()
	_, err := g.fetchPayParams(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, errors.EndpointUnreachableError, errors.TypeOf(err))
}

func invoiceServer(t *testing.T, pr string, capture *map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			values := map[string]string{}
			for k := range r.URL.Query() {
				values[k] = r.URL.Query().Get(k)
			}
			*capture = values
		}
		json.NewEncoder(w).Encode(payValues{Status: "OK", PR: pr})
	}))
}

func TestRequestInvoice(t *testing.T) {
	var query map[string]string
	server := invoiceServer(t, "lnbc_test_invoice", &query)
	defer server.Close()

	g := testGateway(50_000, nil)
	params := &PayParams{Callback: server.URL, MinSendable: 1000, MaxSendable: 100_000}

	invoice, err := g.RequestInvoice(context.Background(), params, 50_000, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "lnbc_test_invoice", invoice)
	assert.Equal(t, "50000", query["amount"])
	_, hasNostr := query["nostr"]
	assert.False(t, hasNostr)
}

func TestRequestInvoice_AmountOutOfRange(t *testing.T) {
	g := testGateway(0, nil)
	params := &PayParams{Callback: "https://example.com/cb", MinSendable: 1000, MaxSendable: 100_000}

	for _, amount := range []int64{500, 500_000} {
		_, err := g.RequestInvoice(context.Background(), params, amount, "", nil)
		require.Error(t, err, "amount %d", amount)
		assert.Equal(t, errors.AmountOutOfRangeError, errors.TypeOf(err))
	}
}

func TestRequestInvoice_ZapRequestRidesAlong(t *testing.T) {
	var query map[string]string
	server := invoiceServer(t, "lnbc_test_invoice", &query)
	defer server.Close()

	g := testGateway(21_000, nil)
	params := &PayParams{
		Callback:    server.URL,
		MinSendable: 1000,
		MaxSendable: 100_000,
		AllowsNostr: true,
		NostrPubkey: "receiptkey",
	}
	zapRequest := &nostr.Event{Kind: 9734, Content: "zap!"}

	_, err := g.RequestInvoice(context.Background(), params, 21_000, "", zapRequest)
	require.NoError(t, err)

	raw, ok := query["nostr"]
	require.True(t, ok)
	var decoded nostr.Event
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, 9734, decoded.Kind)
	assert.Equal(t, "zap!", decoded.Content)
}

func TestRequestInvoice_NostrOmittedWhenNotCapable(t *testing.T) {
	var query map[string]string
	server := invoiceServer(t, "lnbc_test_invoice", &query)
	defer server.Close()

	g := testGateway(21_000, nil)
	params := &PayParams{Callback: server.URL, MinSendable: 1000, MaxSendable: 100_000}

	_, err := g.RequestInvoice(context.Background(), params, 21_000, "", &nostr.Event{Kind: 9734})
	require.NoError(t, err)
	_, hasNostr := query["nostr"]
	assert.False(t, hasNostr)
}

func TestRequestInvoice_CommentTruncated(t *testing.T) {
	var query map[string]string
	server := invoiceServer(t, "lnbc_test_invoice", &query)
	defer server.Close()

	g := testGateway(21_000, nil)
	params := &PayParams{Callback: server.URL, MinSendable: 1000, MaxSendable: 100_000, CommentAllowed: 5}

	_, err := g.RequestInvoice(context.Background(), params, 21_000, "this comment is too long", nil)
	require.NoError(t, err)
	assert.Equal(t, "this ", query["comment"])
}

func TestRequestInvoice_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(payValues{Status: "ERROR", Reason: "node offline"})
	}))
	defer server.Close()

	g := testGateway(0, nil)
	params := &PayParams{Callback: server.URL, MinSendable: 1000, MaxSendable: 100_000}

	_, err := g.RequestInvoice(context.Background(), params, 21_000, "", nil)
	require.Error(t, err)
	assert.Equal(t, errors.InvoiceMissingError, errors.TypeOf(err))
	assert.Contains(t, err.Error(), "node offline")
}

func TestRequestInvoice_AmountMismatch(t *testing.T) {
	server := invoiceServer(t, "lnbc_test_invoice", nil)
	defer server.Close()

	// endpoint hands back an invoice for a different amount
	g := testGateway(999_000, nil)
	params := &PayParams{Callback: server.URL, MinSendable: 1000, MaxSendable: 100_000_000}

	_, err := g.RequestInvoice(context.Background(), params, 21_000, "", nil)
	require.Error(t, err)
	assert.Equal(t, errors.AmountMismatchError, errors.TypeOf(err))
}
