// Package control implements the admin HTTP surface for rr-dnsd: zone
// reload, zone listing, and health/stat endpoints. It runs alongside the
// UDP/TCP listeners and only ever touches the zone cache's write path -
// it never calls into the resolution core directly.
package control

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nullwave/rr-dnsd/internal/dns/common/clock"
	"github.com/nullwave/rr-dnsd/internal/dns/common/log"
	"github.com/nullwave/rr-dnsd/internal/dns/domain"
	"github.com/nullwave/rr-dnsd/internal/dns/repos/zone"
)

// ZoneWriter is the subset of zonecache.ZoneCache the control plane is
// allowed to touch: the write path and enough read-only introspection to
// answer /zones and /stats.
type ZoneWriter interface {
	PutZone(zoneRoot string, zone domain.Zone) error
	RemoveZone(zoneRoot string) error
	Zones() []string
	Count() int
}

// Server is the gorilla/mux admin HTTP server.
type Server struct {
	http          *http.Server
	router        *mux.Router
	zones         ZoneWriter
	zoneDirectory string
	logger        log.Logger
	clock         clock.Clock
	bootTime      time.Time
}

// New builds a Server bound to addr, reloading zones from zoneDirectory on
// demand and publishing snapshots into zones.
func New(addr string, zones ZoneWriter, zoneDirectory string, logger log.Logger, clk clock.Clock) *Server {
	if logger == nil {
		logger = log.GetLogger()
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	s := &Server{
		zones:         zones,
		zoneDirectory: zoneDirectory,
		logger:        logger,
		clock:         clk,
		bootTime:      clk.Now(),
	}
	s.router = mux.NewRouter().StrictSlash(true)
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	s.router.HandleFunc("/zones", s.handleListZones).Methods(http.MethodGet)
	s.router.HandleFunc("/zones/{root}/reload", s.handleReloadZone).Methods(http.MethodPost)
	s.http = &http.Server{Addr: addr, Handler: s.router}
	return s
}

// Start begins serving in a background goroutine. Errors other than a
// graceful Shutdown are logged, matching the transport layer's pattern of
// never letting a secondary listener take the process down.
func (s *Server) Start() {
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error(map[string]any{"error": err, "addr": s.http.Addr}, "control server stopped unexpectedly")
		}
	}()
}

// Stop closes the control server's listener and any open connections immediately.
func (s *Server) Stop() error {
	return s.http.Close()
}

// Address returns the listener address the server was configured with.
func (s *Server) Address() string {
	return s.http.Addr
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": s.clock.Now().Sub(s.bootTime).String(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"zones":   len(s.zones.Zones()),
		"records": s.zones.Count(),
		"uptime":  s.clock.Now().Sub(s.bootTime).String(),
	})
}

func (s *Server) handleListZones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"zones": s.zones.Zones()})
}

// handleReloadZone re-walks the configured zone directory and republishes
// the single zone named by {root}. Other zones on disk are untouched in
// the cache; a full-directory reload across every zone is just N calls to
// this endpoint from the operator's side.
func (s *Server) handleReloadZone(w http.ResponseWriter, r *http.Request) {
	root := mux.Vars(r)["root"]
	if root != "" && root[len(root)-1] != '.' {
		root += "."
	}

	loaded, err := zone.LoadZoneDirectory(s.zoneDirectory, 300*time.Second)
	if err != nil {
		s.logger.Error(map[string]any{"error": err, "zone_dir": s.zoneDirectory}, "zone reload failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	records, ok := loaded[root]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "zone not found on disk", "zone": root})
		return
	}

	version := uint64(s.clock.Now().Unix())
	z, err := domain.NewZone(root, version, records)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	if err := s.zones.PutZone(root, z); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	s.logger.Info(map[string]any{"zone": root, "records": len(records), "version": version}, "zone reloaded")
	writeJSON(w, http.StatusOK, map[string]any{"zone": root, "records": len(records), "version": version})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
