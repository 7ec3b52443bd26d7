package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/greenhouse-io/irrigator/internal/controller"
)

type configureBody struct {
	ActuatorEndpoint  string  `json:"actuatorEndpoint"`
	PlantType         string  `json:"plantType"`
	PulseDurationSec  float64 `json:"pulseDurationSec"`
	PulseWaitSec      int     `json:"pulseWaitSec"`
	MaxPulses         int     `json:"maxPulses"`
	AutoIrrigate      bool    `json:"autoIrrigate"`
	CheckIntervalSec  int     `json:"checkIntervalSec"`
	TargetMoisturePct float64 `json:"targetMoisturePct"`
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body configureBody
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
	}

	cfg, err := s.ctrl.Configure(r.Context(), controller.ConfigureInput{
		GreenhouseID:      id,
		ActuatorEndpoint:  body.ActuatorEndpoint,
		PlantType:         body.PlantType,
		PulseDurationSec:  body.PulseDurationSec,
		PulseWaitSec:      body.PulseWaitSec,
		MaxPulses:         body.MaxPulses,
		AutoIrrigate:      body.AutoIrrigate,
		CheckIntervalSec:  body.CheckIntervalSec,
		TargetMoisturePct: body.TargetMoisturePct,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleReloadConfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cfg, err := s.ctrl.ReloadConfig(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

type startMonitoringBody struct {
	ActuatorEndpoint string `json:"actuatorEndpoint"`
}

func (s *Server) handleStartMonitoring(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body startMonitoringBody
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
	}

	snap, err := s.ctrl.StartMonitoring(r.Context(), controller.StartMonitoringInput{
		GreenhouseID:     id,
		ActuatorEndpoint: body.ActuatorEndpoint,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleStopMonitoring(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ctrl.StopMonitoring(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped", "greenhouseId": id})
}

func (s *Server) handleStopAllMonitoring(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.StopMonitoring(r.Context(), ""); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	decision, pumpStatus, err := s.ctrl.Analyze(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"decision":   decision,
		"pumpStatus": pumpStatus,
	})
}

type executeIrrigationBody struct {
	Force bool `json:"force"`
}

func (s *Server) handleExecuteIrrigation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body executeIrrigationBody
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
	}

	result, err := s.ctrl.ExecuteIrrigation(r.Context(), id, body.Force)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.ctrl.Status(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleListPlants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.ListPlants(r.Context()))
}
