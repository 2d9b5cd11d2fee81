package main

import (
	"runtime/debug"

	"github.com/gudnuf/nostrudel/internal"
	"github.com/gudnuf/nostrudel/internal/api"
	"github.com/gudnuf/nostrudel/internal/cashu"
	"github.com/gudnuf/nostrudel/internal/lnurl"
	"github.com/gudnuf/nostrudel/internal/profiles"
	"github.com/gudnuf/nostrudel/internal/relays"
	"github.com/gudnuf/nostrudel/internal/storage"
	"github.com/gudnuf/nostrudel/internal/zap"
	log "github.com/sirupsen/logrus"
)

// setLogger will initialize the log format
func setLogger() {
	log.SetLevel(log.DebugLevel)
	customFormatter := new(log.TextFormatter)
	customFormatter.TimestampFormat = "2006-01-02 15:04:05"
	customFormatter.FullTimestamp = true
	log.SetFormatter(customFormatter)
}

func main() {
	setLogger()
	defer withRecovery()

	bunt := storage.NewBunt(internal.Configuration.Database.BuntDbPath)
	defer bunt.Close()

	profileStore := profiles.NewStore(internal.Configuration.Database.DbPath)
	engine := cashu.NewEngine(cashu.NewStore(bunt))

	zapper := zap.New(zap.Config{
		Profiles: profileStore,
		Gateway:  lnurl.NewGateway(),
		Melter:   engine,
		Signer:   zap.NewKeySigner(internal.Configuration.Nostr.PrivateKey),
		Ranker:   relays.NewScoreboard(),
		Outbox:   internal.Configuration.Nostr.OutboxRelays,
	})

	server := api.NewServer(internal.Configuration.Api.Host)
	api.NewService(zapper, engine, profileStore).Mount(server)

	select {}
}

func withRecovery() {
	if r := recover(); r != nil {
		log.Errorln("Recovered panic: ", r)
		debug.PrintStack()
	}
}
