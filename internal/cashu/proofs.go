package cashu

import (
	"github.com/gudnuf/nostrudel/internal/storage"
)

// Fixed storage slots. Records are replaced whole, never patched.
const (
	ProofStorageKey  = "cashu.proofs"
	KeysetStorageKey = "cashu.keyset"
)

// Proof is an opaque bearer token unit with a fixed denomination in sat.
type Proof struct {
	Amount int64  `json:"amount"`
	Id     string `json:"id"`
	Secret string `json:"secret"`
	C      string `json:"C"`
}

type Proofs []Proof

func (ps Proofs) Sum() int64 {
	var total int64
	for _, p := range ps {
		total += p.Amount
	}
	return total
}

// SelectForAmount deterministically splits the held proofs into a spend
// set covering amount and the leftover change set. Proofs are taken in
// stored order until the amount is covered; denominations rarely line up
// exactly, the mint returns overpayment as change after settlement.
func (ps Proofs) SelectForAmount(amount int64) (send Proofs, change Proofs, ok bool) {
	var covered int64
	for i, p := range ps {
		if covered >= amount {
			change = append(change, ps[i:]...)
			break
		}
		send = append(send, p)
		covered += p.Amount
	}
	return send, change, covered >= amount
}

type proofRecord struct {
	Proofs Proofs `json:"proofs"`
}

func (proofRecord) Key() string {
	return ProofStorageKey
}

// Keyset is the locally persisted mint keyset record. Its presence is a
// hard precondition for any token operation.
type Keyset struct {
	MintUrl string            `json:"mintUrl"`
	Id      string            `json:"id,omitempty"`
	Unit    string            `json:"unit,omitempty"`
	Keys    map[string]string `json:"keys,omitempty"`
}

func (Keyset) Key() string {
	return KeysetStorageKey
}

// Store persists the proof set and mint keyset under their fixed keys.
// Mutating methods do not lock, compound read-modify-write sequences are
// serialized by the caller via the storage-slot mutex.
type Store struct {
	db *storage.DB
}

func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Proofs() (Proofs, error) {
	record := &proofRecord{}
	err := s.db.Get(record)
	if err != nil {
		if storage.NotFound(err) {
			return Proofs{}, nil
		}
		return nil, err
	}
	return record.Proofs, nil
}

// ReplaceProofs overwrites the whole proof set. The previous set is
// discarded, there are no partial writes.
func (s *Store) ReplaceProofs(ps Proofs) error {
	return s.db.Set(&proofRecord{Proofs: ps})
}

func (s *Store) Balance() (int64, error) {
	proofs, err := s.Proofs()
	if err != nil {
		return 0, err
	}
	return proofs.Sum(), nil
}

// Keyset returns the stored keyset, or nil when none is configured.
func (s *Store) Keyset() (*Keyset, error) {
	keyset := &Keyset{}
	err := s.db.Get(keyset)
	if err != nil {
		if storage.NotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return keyset, nil
}

func (s *Store) SaveKeyset(k *Keyset) error {
	return s.db.Set(k)
}
