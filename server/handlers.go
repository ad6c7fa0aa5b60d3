package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jimimatt/High-Pricision-AD-HAT/store"
	"github.com/julienschmidt/httprouter"
)

type statusResponse struct {
	Backend     string `json:"backend"`
	Fingerprint string `json:"fingerprint"`
	ResetPin    int    `json:"resetPin"`
	ChipSelect  int    `json:"chipSelectPin"`
	DataReady   int    `json:"dataReadyPin"`
}

func (s *Server) getStatus(res http.ResponseWriter, req *http.Request) {
	pins := s.HAL.Pins()

	respond(res, statusResponse{
		Backend:     s.HAL.State().String(),
		Fingerprint: s.HAL.Fingerprint(),
		ResetPin:    pins.Reset,
		ChipSelect:  pins.ChipSelect,
		DataReady:   pins.DataReady,
	}, http.StatusOK)
}

func (s *Server) getChannels(res http.ResponseWriter, req *http.Request) {
	sample, ok := s.readingsManager.Latest()
	if !ok {
		respond(res, fmt.Errorf("no sample acquired yet"), http.StatusServiceUnavailable)
		return
	}

	respond(res, sample, http.StatusOK)
}

func (s *Server) getChannel(res http.ResponseWriter, req *http.Request) {
	params := httprouter.ParamsFromContext(req.Context())

	channel, err := strconv.Atoi(params.ByName("channel"))
	if err != nil {
		respond(res, fmt.Errorf("invalid channel: %w", err), http.StatusUnprocessableEntity)
		return
	}

	sample, ok := s.readingsManager.Latest()
	if !ok {
		respond(res, fmt.Errorf("no sample acquired yet"), http.StatusServiceUnavailable)
		return
	}

	for _, reading := range sample.Readings {
		if reading.Channel == channel {
			respond(res, reading, http.StatusOK)
			return
		}
	}

	respond(res, fmt.Errorf("channel %d is not being scanned", channel), http.StatusNotFound)
}

func (s *Server) getConfig(res http.ResponseWriter, req *http.Request) {
	respond(res, s.configManager.Config(), http.StatusOK)
}

func (s *Server) putConfig(res http.ResponseWriter, req *http.Request) {
	var config store.AcquisitionConfig
	if err := json.NewDecoder(req.Body).Decode(&config); err != nil {
		respond(res, err, http.StatusUnprocessableEntity)
		return
	}

	if len(config.Channels) == 0 || config.Reference <= 0 || config.PeriodMS <= 0 {
		respond(res, fmt.Errorf("config needs channels, a positive reference and a positive period"),
			http.StatusUnprocessableEntity)
		return
	}

	if err := s.Store.PutAcquisitionConfig(config); err != nil {
		respond(res, err, http.StatusInternalServerError)
		return
	}

	s.configManager.Set(config)

	respond(res, nil, http.StatusNoContent)
}

func (s *Server) getSamples(res http.ResponseWriter, req *http.Request) {
	n := 100
	if raw := req.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respond(res, fmt.Errorf("invalid sample count %q", raw), http.StatusUnprocessableEntity)
			return
		}
		n = parsed
	}

	samples, err := s.Store.RecentSamples(n)
	if err != nil {
		respond(res, err, http.StatusInternalServerError)
		return
	}

	respond(res, samples, http.StatusOK)
}

type errorResponse struct {
	Error string `json:"error"`
}

// respond encodes the data to JSON and writes it with the http code; errors
// are wrapped in an error envelope first.
func respond(w http.ResponseWriter, data interface{}, httpCode int) {
	var resp interface{}
	if v, ok := data.(error); ok {
		resp = errorResponse{Error: v.Error()}
	} else {
		resp = data
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpCode)

	if resp != nil {
		_ = json.NewEncoder(w).Encode(resp)
	}
}
