package internal

import (
	"net/url"
	"strings"

	"github.com/jinzhu/configor"
	log "github.com/sirupsen/logrus"
)

var Configuration = struct {
	Nostr    NostrConfiguration    `yaml:"nostr"`
	Api      ApiConfiguration      `yaml:"api"`
	Database DatabaseConfiguration `yaml:"database"`
	Cashu    CashuConfiguration    `yaml:"cashu"`
	Network  NetworkConfiguration  `yaml:"network"`
}{}

type NostrConfiguration struct {
	PrivateKey   string   `yaml:"private_key"`
	OutboxRelays []string `yaml:"outbox_relays"`
}

type ApiConfiguration struct {
	Host string `yaml:"host" default:"0.0.0.0:8080"`
}

type DatabaseConfiguration struct {
	DbPath     string `yaml:"db_path" default:"data/profiles.db"`
	BuntDbPath string `yaml:"buntdb_path" default:"data/nostrudel.db"`
}

type CashuConfiguration struct {
	MintUrl string `yaml:"mint_url"`
}

type SocksConfiguration struct {
	Host     string `yaml:"host"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type NetworkConfiguration struct {
	SocksProxy *SocksConfiguration `yaml:"socks_proxy,omitempty"`
}

func init() {
	err := configor.Load(&Configuration, "config.yaml")
	if err != nil {
		// defaults are enough for read-only flows, warn and continue
		log.Warnf("[config] could not load config.yaml: %v", err)
	}
	checkConfiguration()
}

func checkConfiguration() {
	if Configuration.Nostr.PrivateKey == "" {
		log.Warnf("[config] no nostr private key set, zap requests can not be signed")
	}
	for _, r := range Configuration.Nostr.OutboxRelays {
		if u, err := url.Parse(r); err != nil || !strings.HasPrefix(u.Scheme, "ws") {
			log.Warnf("[config] outbox relay %s is not a websocket url", r)
		}
	}
	if Configuration.Cashu.MintUrl != "" {
		if _, err := url.Parse(Configuration.Cashu.MintUrl); err != nil {
			panic(err)
		}
	}
}
