package profiles

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/eko/gocache/store"
	"github.com/gudnuf/nostrudel/internal/runtime"
	"github.com/nbd-wtf/go-nostr"
	gocache "github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	KindMetadata  = 0
	KindRelayList = 10002
)

// Profile is what the client knows about a pubkey: payment endpoints from
// its kind-0 metadata and inbox relays from its kind-10002 relay list.
type Profile struct {
	Pubkey      string `gorm:"primaryKey" json:"pubkey"`
	Name        string `json:"name"`
	Lud16       string `json:"lud16"`
	Lud06       string `json:"lud06"`
	Bolt12Offer string `json:"bolt12_offer"`
	// InboxRelays is stored as a JSON array string, sqlite has no list column
	InboxRelays string    `json:"inbox_relays"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PaymentAddress returns the recipient's lightning address, falling back
// from lud16 to lud06 to a bolt12 offer, or "" when nothing is configured.
func (p *Profile) PaymentAddress() string {
	if p.Lud16 != "" {
		return p.Lud16
	}
	if p.Lud06 != "" {
		return p.Lud06
	}
	return p.Bolt12Offer
}

func (p *Profile) Inbox() []string {
	if p.InboxRelays == "" {
		return nil
	}
	var relays []string
	if err := json.Unmarshal([]byte(p.InboxRelays), &relays); err != nil {
		log.Errorf("[Profiles] corrupt inbox relay list for %s: %v", p.Pubkey, err)
		return nil
	}
	return relays
}

func (p *Profile) setInbox(relays []string) {
	raw, err := json.Marshal(relays)
	if err != nil {
		return
	}
	p.InboxRelays = string(raw)
}

type Store struct {
	database *gorm.DB
	cache    *store.GoCacheStore
}

func NewStore(path string) *Store {
	orm, err := gorm.Open(sqlite.Open(path), &gorm.Config{DisableForeignKeyConstraintWhenMigrating: true})
	if err != nil {
		panic("Initialize orm failed.")
	}
	if err = orm.AutoMigrate(&Profile{}); err != nil {
		panic(err)
	}
	return &Store{
		database: orm,
		cache:    store.NewGoCache(gocache.New(5*time.Minute, 10*time.Minute), nil),
	}
}

func cacheKey(pubkey string) string {
	return fmt.Sprintf("profile_%s", pubkey)
}

func (s *Store) Get(pubkey string) (*Profile, error) {
	if p, err := s.cache.Get(cacheKey(pubkey)); err == nil {
		return p.(*Profile), nil
	}
	profile := &Profile{Pubkey: pubkey}
	tx := s.database.Where("pubkey = ?", pubkey).First(profile)
	if tx.Error != nil {
		return nil, fmt.Errorf("[Profiles] couldn't fetch profile %s: %v", pubkey, tx.Error)
	}
	runtime.IgnoreError(s.cache.Set(cacheKey(pubkey), profile, &store.Options{Expiration: 5 * time.Minute}))
	return profile, nil
}

func (s *Store) Save(p *Profile) error {
	p.UpdatedAt = time.Now()
	tx := s.database.Save(p)
	if tx.Error != nil {
		return tx.Error
	}
	runtime.IgnoreError(s.cache.Set(cacheKey(p.Pubkey), p, &store.Options{Expiration: 5 * time.Minute}))
	return nil
}

// IngestMetadata updates the stored profile from a kind-0 metadata event.
func (s *Store) IngestMetadata(ev *nostr.Event) (*Profile, error) {
	if ev.Kind != KindMetadata {
		return nil, fmt.Errorf("[Profiles] event %s is not kind-0 metadata", ev.ID)
	}
	profile, err := s.Get(ev.PubKey)
	if err != nil {
		profile = &Profile{Pubkey: ev.PubKey}
	}
	profile.Name = gjson.Get(ev.Content, "name").String()
	profile.Lud16 = gjson.Get(ev.Content, "lud16").String()
	profile.Lud06 = gjson.Get(ev.Content, "lud06").String()
	profile.Bolt12Offer = gjson.Get(ev.Content, "bolt12Offer").String()
	if err := s.Save(profile); err != nil {
		return nil, err
	}
	log.Debugf("[Profiles] ingested metadata for %s", ev.PubKey)
	return profile, nil
}

// IngestRelayList updates the stored inbox relays from a kind-10002 relay
// list. Tags marked "write" advertise where the pubkey publishes, not where
// it reads, so they are skipped.
func (s *Store) IngestRelayList(ev *nostr.Event) (*Profile, error) {
	if ev.Kind != KindRelayList {
		return nil, fmt.Errorf("[Profiles] event %s is not a kind-10002 relay list", ev.ID)
	}
	profile, err := s.Get(ev.PubKey)
	if err != nil {
		profile = &Profile{Pubkey: ev.PubKey}
	}
	var inbox []string
	for _, tag := range ev.Tags {
		if len(tag) < 2 || tag[0] != "r" {
			continue
		}
		if len(tag) >= 3 && strings.EqualFold(tag[2], "write") {
			continue
		}
		inbox = append(inbox, tag[1])
	}
	profile.setInbox(inbox)
	if err := s.Save(profile); err != nil {
		return nil, err
	}
	log.Debugf("[Profiles] ingested %d inbox relays for %s", len(inbox), ev.PubKey)
	return profile, nil
}
