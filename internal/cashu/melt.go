package cashu

import (
	"context"
	"fmt"

	"github.com/gudnuf/nostrudel/internal/errors"
	"github.com/gudnuf/nostrudel/internal/runtime/mutex"
	log "github.com/sirupsen/logrus"
)

// Engine settles payments from the locally held token balance instead of
// fetching an invoice over LNURL. All proof-store writes happen under the
// storage-slot mutex, concurrent melts serialize instead of racing.
type Engine struct {
	store *Store
	// mintFor builds a mint client for the configured keyset's url
	mintFor func(mintUrl string) Mint
}

func NewEngine(store *Store) *Engine {
	return &Engine{
		store: store,
		mintFor: func(mintUrl string) Mint {
			return NewRestMint(mintUrl)
		},
	}
}

// NewEngineWithMint wires a specific mint client, used by tests and by
// callers that already hold a connected mint.
func NewEngineWithMint(store *Store, mint Mint) *Engine {
	return &Engine{
		store:   store,
		mintFor: func(string) Mint { return mint },
	}
}

// Melt pays the recipient's offer with held proofs. Preconditions are
// checked in a fixed order, each with its own failure reason; the proof
// store is only rewritten once a sub-operation has produced the new
// canonical set.
func (e *Engine) Melt(ctx context.Context, offer string, amountSat int64) error {
	if offer == "" {
		return errors.New(errors.NoOfferFoundError, fmt.Errorf("recipient has no offer configured"))
	}
	if amountSat == 0 {
		return errors.New(errors.ZeroAmountError, fmt.Errorf("amount to melt is required"))
	}

	mutex.Lock(ProofStorageKey)
	defer mutex.Unlock(ProofStorageKey)

	proofs, err := e.store.Proofs()
	if err != nil {
		return err
	}
	if proofs.Sum() < amountSat {
		return errors.New(errors.InsufficientBalanceError,
			fmt.Errorf("balance %d sat does not cover %d sat", proofs.Sum(), amountSat))
	}
	keyset, err := e.store.Keyset()
	if err != nil {
		return err
	}
	if keyset == nil {
		return errors.New(errors.NoKeysetConfiguredError, fmt.Errorf("no keyset found, add a mint first"))
	}

	send, change, ok := proofs.SelectForAmount(amountSat)
	if !ok {
		return errors.New(errors.InsufficientBalanceError,
			fmt.Errorf("could not cover %d sat from held proofs", amountSat))
	}

	mint := e.mintFor(keyset.MintUrl)
	quote, err := mint.GetMeltQuote(ctx, MeltQuoteRequest{
		Amount:  amountSat,
		Request: offer,
		Unit:    "sat",
	})
	if err != nil {
		return err
	}

	// the spend set is committed to the mint now, persist the change set
	// so the consumed proofs are gone from the balance
	if err = e.store.ReplaceProofs(change); err != nil {
		return err
	}

	result, err := mint.MeltTokens(ctx, quote.Quote, send)
	if err != nil {
		return err
	}
	if len(result.Change) > 0 {
		merged := append(change, result.Change...)
		if err = e.store.ReplaceProofs(merged); err != nil {
			return err
		}
	}
	log.Infof("[Cashu] melted %d sat via %s (state %s)", amountSat, keyset.MintUrl, result.State)
	return nil
}

// Bootstrap fetches the mint's keys and persists them as the local
// keyset record.
func (e *Engine) Bootstrap(ctx context.Context, mintUrl string) (*Keyset, error) {
	keyset, err := e.mintFor(mintUrl).GetKeys(ctx)
	if err != nil {
		return nil, err
	}
	keyset.MintUrl = mintUrl
	if err = e.store.SaveKeyset(keyset); err != nil {
		return nil, err
	}
	log.Infof("[Cashu] configured mint %s", mintUrl)
	return keyset, nil
}

// RequestMintQuote asks the mint for an invoice that funds amountSat of
// fresh proofs.
func (e *Engine) RequestMintQuote(ctx context.Context, amountSat int64) (*MintQuote, error) {
	keyset, err := e.store.Keyset()
	if err != nil {
		return nil, err
	}
	if keyset == nil {
		return nil, errors.New(errors.NoKeysetConfiguredError, fmt.Errorf("no keyset found, add a mint first"))
	}
	return e.mintFor(keyset.MintUrl).GetMintQuote(ctx, amountSat)
}

// MintTokens redeems a paid mint quote and adds the minted proofs to the
// balance. Returns the new balance.
func (e *Engine) MintTokens(ctx context.Context, amountSat int64, quote string) (int64, error) {
	keyset, err := e.store.Keyset()
	if err != nil {
		return 0, err
	}
	if keyset == nil {
		return 0, errors.New(errors.NoKeysetConfiguredError, fmt.Errorf("no keyset found, add a mint first"))
	}
	minted, err := e.mintFor(keyset.MintUrl).MintTokens(ctx, amountSat, quote)
	if err != nil {
		return 0, err
	}

	mutex.Lock(ProofStorageKey)
	defer mutex.Unlock(ProofStorageKey)
	proofs, err := e.store.Proofs()
	if err != nil {
		return 0, err
	}
	merged := append(proofs, minted...)
	if err = e.store.ReplaceProofs(merged); err != nil {
		return 0, err
	}
	return merged.Sum(), nil
}

func (e *Engine) Balance() (int64, error) {
	return e.store.Balance()
}
