// Package inspect serves a built model's description over HTTP, adapted
// from the progressive raytracer's own web server package: the same
// single-mux, HandleFunc-per-endpoint shape, repointed at a lens
// prescription instead of a render job.
package inspect

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/kmdouglass/cherrytrace/pkg/optics/config"
	"github.com/kmdouglass/cherrytrace/pkg/optics/describe"
	"github.com/kmdouglass/cherrytrace/pkg/optics/material"
	"github.com/kmdouglass/cherrytrace/pkg/optics/system"
)

// Server serves a single loaded prescription's description over HTTP.
type Server struct {
	port        int
	model       *system.SequentialModel
	background  material.Spec
	telecentric bool
}

// NewServer builds a prescription-backed inspection server.
func NewServer(port int, path string) (*Server, error) {
	prescription, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("inspect: loading prescription: %w", err)
	}

	aperture, fields, gaps, surfaces, err := prescription.Specs()
	if err != nil {
		return nil, fmt.Errorf("inspect: %w", err)
	}

	model, err := system.BuildSequentialModel(aperture, fields, gaps, surfaces, prescription.Wavelengths)
	if err != nil {
		return nil, fmt.Errorf("inspect: building model: %w", err)
	}

	background := material.Spec{Real: material.RealSpec{Kind: material.RealConstant, Constant: 1.0}}
	return &Server{port: port, model: model, background: background, telecentric: prescription.ObjSpaceTelecentric}, nil
}

// Start registers the inspection endpoints and blocks serving HTTP.
func (s *Server) Start() error {
	http.HandleFunc("/describe", s.handleDescribe)
	http.HandleFunc("/paraxial", s.handleParaxial)
	http.HandleFunc("/components", s.handleComponents)

	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("Starting inspection server on http://localhost%s", addr)
	return http.ListenAndServe(addr, nil)
}

func (s *Server) snapshot() (*describe.System, error) {
	return describe.Describe(s.model, s.background, s.telecentric)
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleParaxial(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, snap.SubModels)
}

func (s *Server) handleComponents(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, snap.Components)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
