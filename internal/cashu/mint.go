package cashu

import (
	"context"
	"fmt"

	"github.com/gudnuf/nostrudel/internal/errors"
	"github.com/imroc/req"
	log "github.com/sirupsen/logrus"
)

// Mint is the call surface of an e-cash mint. The engine treats it as a
// black box: quotes, tokens and change come back as documented shapes,
// the blinding cryptography stays on the mint library's side.
type Mint interface {
	GetKeys(ctx context.Context) (*Keyset, error)
	GetMintQuote(ctx context.Context, amount int64) (*MintQuote, error)
	MintTokens(ctx context.Context, amount int64, quote string) (Proofs, error)
	GetMeltQuote(ctx context.Context, request MeltQuoteRequest) (*MeltQuote, error)
	MeltTokens(ctx context.Context, quote string, proofs Proofs) (*MeltResult, error)
}

type MintQuote struct {
	Quote   string `json:"quote"`
	Request string `json:"request"`
	State   string `json:"state"`
	Expiry  int64  `json:"expiry"`
}

type MeltQuoteRequest struct {
	Amount  int64  `json:"amount"`
	Request string `json:"request"`
	Unit    string `json:"unit"`
}

type MeltQuote struct {
	Quote      string `json:"quote"`
	Amount     int64  `json:"amount"`
	FeeReserve int64  `json:"fee_reserve"`
	State      string `json:"state"`
	Expiry     int64  `json:"expiry"`
}

type MeltResult struct {
	State    string `json:"state"`
	Preimage string `json:"payment_preimage"`
	// Change holds overpaid fee reserve the mint hands back as fresh proofs
	Change Proofs `json:"change"`
}

type mintError struct {
	Detail string `json:"detail"`
	Code   int    `json:"code"`
}

func (e mintError) Error() string {
	return fmt.Sprintf("mint error %d: %s", e.Code, e.Detail)
}

// RestMint talks to a mint over its REST API.
type RestMint struct {
	url    string
	header req.Header
}

func NewRestMint(url string) *RestMint {
	return &RestMint{
		url: url,
		header: req.Header{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
	}
}

func (m *RestMint) GetKeys(ctx context.Context) (*Keyset, error) {
	var keyset Keyset
	resp, err := req.Get(m.url+"/v1/keys", m.header)
	if err = checkResponse(resp, err); err != nil {
		return nil, errors.New(errors.MintCallFailedError, err)
	}
	if err = resp.ToJSON(&keyset); err != nil {
		return nil, errors.New(errors.MintCallFailedError, err)
	}
	keyset.MintUrl = m.url
	return &keyset, nil
}

func (m *RestMint) GetMintQuote(ctx context.Context, amount int64) (*MintQuote, error) {
	var quote MintQuote
	resp, err := req.Post(m.url+"/v1/mint/quote/bolt11", m.header, req.BodyJSON(struct {
		Amount int64  `json:"amount"`
		Unit   string `json:"unit"`
	}{amount, "sat"}))
	if err = checkResponse(resp, err); err != nil {
		return nil, errors.New(errors.MintCallFailedError, err)
	}
	if err = resp.ToJSON(&quote); err != nil {
		return nil, errors.New(errors.MintCallFailedError, err)
	}
	log.Debugf("[Cashu] mint quote %s for %d sat", quote.Quote, amount)
	return &quote, nil
}

func (m *RestMint) MintTokens(ctx context.Context, amount int64, quote string) (Proofs, error) {
	var result struct {
		Proofs Proofs `json:"proofs"`
	}
	resp, err := req.Post(m.url+"/v1/mint/bolt11", m.header, req.BodyJSON(struct {
		Amount int64  `json:"amount"`
		Quote  string `json:"quote"`
	}{amount, quote}))
	if err = checkResponse(resp, err); err != nil {
		return nil, errors.New(errors.MintCallFailedError, err)
	}
	if err = resp.ToJSON(&result); err != nil {
		return nil, errors.New(errors.MintCallFailedError, err)
	}
	return result.Proofs, nil
}

func (m *RestMint) GetMeltQuote(ctx context.Context, request MeltQuoteRequest) (*MeltQuote, error) {
	var quote MeltQuote
	resp, err := req.Post(m.url+"/v1/melt/quote/bolt12", m.header, req.BodyJSON(&request))
	if err = checkResponse(resp, err); err != nil {
		return nil, errors.New(errors.MintCallFailedError, err)
	}
	if err = resp.ToJSON(&quote); err != nil {
		return nil, errors.New(errors.MintCallFailedError, err)
	}
	log.Debugf("[Cashu] melt quote %s for %d sat (fee reserve %d)", quote.Quote, quote.Amount, quote.FeeReserve)
	return &quote, nil
}

func (m *RestMint) MeltTokens(ctx context.Context, quote string, proofs Proofs) (*MeltResult, error) {
	var result MeltResult
	resp, err := req.Post(m.url+"/v1/melt/bolt12", m.header, req.BodyJSON(struct {
		Quote  string `json:"quote"`
		Inputs Proofs `json:"inputs"`
	}{quote, proofs}))
	if err = checkResponse(resp, err); err != nil {
		return nil, errors.New(errors.MintCallFailedError, err)
	}
	if err = resp.ToJSON(&result); err != nil {
		return nil, errors.New(errors.MintCallFailedError, err)
	}
	return &result, nil
}

func checkResponse(resp *req.Resp, err error) error {
	if err != nil {
		return err
	}
	if resp.Response().StatusCode >= 300 {
		var reqErr mintError
		resp.ToJSON(&reqErr)
		return reqErr
	}
	return nil
}
