package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gudnuf/nostrudel/internal/cashu"
	"github.com/gudnuf/nostrudel/internal/profiles"
	"github.com/gudnuf/nostrudel/internal/zap"
	"github.com/nbd-wtf/go-nostr"
	log "github.com/sirupsen/logrus"
)

// Service exposes the zap pipeline and the token balance over HTTP. It
// is presentation plumbing only, all policy lives in the zap and cashu
// packages.
type Service struct {
	zapper   *zap.Zapper
	engine   *cashu.Engine
	profiles *profiles.Store
}

func NewService(zapper *zap.Zapper, engine *cashu.Engine, store *profiles.Store) *Service {
	return &Service{zapper: zapper, engine: engine, profiles: store}
}

func (s *Service) Mount(server *Server) {
	server.AppendRoute("/zap", s.Zap, http.MethodPost)
	server.AppendRoute("/profiles/ingest", s.IngestProfile, http.MethodPost)
	server.AppendRoute("/cashu/balance", s.Balance, http.MethodGet)
	server.AppendRoute("/cashu/keyset", s.AddMint, http.MethodPost)
	server.AppendRoute("/cashu/mint/quote", s.MintQuote, http.MethodPost)
	server.AppendRoute("/cashu/mint", s.Mint, http.MethodPost)
}

func (s *Service) Zap(writer http.ResponseWriter, request *http.Request) {
	var zapRequest zap.Request
	if err := json.NewDecoder(request.Body).Decode(&zapRequest); err != nil {
		NotFoundHandler(writer, fmt.Errorf("[Zap] could not parse request: %v", err))
		return
	}
	if zapRequest.Method == "" {
		zapRequest.Method = zap.MethodLightning
	}
	results, err := s.zapper.Zap(request.Context(), zapRequest)
	if err != nil {
		// single-recipient zaps reject as a whole, the result list still
		// carries the error detail
		log.Errorf("[Zap] %v", err)
	}
	if err := WriteResponse(writer, results); err != nil {
		NotFoundHandler(writer, err)
	}
}

// IngestProfile accepts a kind-0 or kind-10002 event and updates the
// profile store. The event signature must verify, profiles are payment
// routing data.
func (s *Service) IngestProfile(writer http.ResponseWriter, request *http.Request) {
	var ev nostr.Event
	if err := json.NewDecoder(request.Body).Decode(&ev); err != nil {
		NotFoundHandler(writer, fmt.Errorf("[Profiles] could not parse event: %v", err))
		return
	}
	if valid, err := ev.CheckSignature(); !valid || err != nil {
		NotFoundHandler(writer, fmt.Errorf("[Profiles] event signature invalid: %v", err))
		return
	}
	var profile *profiles.Profile
	var err error
	switch ev.Kind {
	case profiles.KindMetadata:
		profile, err = s.profiles.IngestMetadata(&ev)
	case profiles.KindRelayList:
		profile, err = s.profiles.IngestRelayList(&ev)
	default:
		err = fmt.Errorf("unsupported kind %d", ev.Kind)
	}
	if err != nil {
		NotFoundHandler(writer, err)
		return
	}
	if err := WriteResponse(writer, profile); err != nil {
		NotFoundHandler(writer, err)
	}
}

func (s *Service) Balance(writer http.ResponseWriter, request *http.Request) {
	balance, err := s.engine.Balance()
	if err != nil {
		NotFoundHandler(writer, err)
		return
	}
	if err := WriteResponse(writer, map[string]int64{"balance": balance}); err != nil {
		NotFoundHandler(writer, err)
	}
}

func (s *Service) AddMint(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		MintUrl string `json:"mint_url"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil || body.MintUrl == "" {
		NotFoundHandler(writer, fmt.Errorf("[Cashu] mint_url is required"))
		return
	}
	keyset, err := s.engine.Bootstrap(request.Context(), body.MintUrl)
	if err != nil {
		NotFoundHandler(writer, err)
		return
	}
	if err := WriteResponse(writer, keyset); err != nil {
		NotFoundHandler(writer, err)
	}
}

func (s *Service) MintQuote(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil || body.Amount <= 0 {
		NotFoundHandler(writer, fmt.Errorf("[Cashu] a positive amount is required"))
		return
	}
	quote, err := s.engine.RequestMintQuote(request.Context(), body.Amount)
	if err != nil {
		NotFoundHandler(writer, err)
		return
	}
	if err := WriteResponse(writer, quote); err != nil {
		NotFoundHandler(writer, err)
	}
}

func (s *Service) Mint(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		Amount int64  `json:"amount"`
		Quote  string `json:"quote"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil || body.Quote == "" {
		NotFoundHandler(writer, fmt.Errorf("[Cashu] quote is required"))
		return
	}
	balance, err := s.engine.MintTokens(request.Context(), body.Amount, body.Quote)
	if err != nil {
		NotFoundHandler(writer, err)
		return
	}
	if err := WriteResponse(writer, map[string]int64{"balance": balance}); err != nil {
		NotFoundHandler(writer, err)
	}
}
