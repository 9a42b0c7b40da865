package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"permanentes/internal/identifier"
	"permanentes/internal/listing"
	"permanentes/internal/logging"
)

const operatorHeader = "X-Operator"

func operator(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(operatorHeader))
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", errBadRequest, name)
	}
	return id, nil
}

func (s *server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleCheck(w http.ResponseWriter, r *http.Request) {
	numero := strings.TrimSpace(r.URL.Query().Get("numero"))
	res, err := s.resolver.Resolve(r.Context(), numero)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !res.Matched || res.Record == nil {
		s.writeJSON(w, http.StatusOK, CheckResponse{Found: false})
		return
	}
	rec := *res.Record
	s.writeJSON(w, http.StatusOK, FromRecord(rec, s.resolver.IsPermanent(rec), string(res.Strategy)))
}

func (s *server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Inputs) > 0 {
		out, err := s.reconciler.Reconcile(r.Context(), req.Inputs)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, out)
		return
	}

	mode := s.mode
	if strings.TrimSpace(req.Mode) != "" {
		parsed, err := identifier.ParseMode(req.Mode)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
			return
		}
		mode = parsed
	}
	out, err := s.reconciler.ReconcileText(r.Context(), req.Text, mode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *server) handleBoxes(w http.ResponseWriter, r *http.Request) {
	boxes, err := s.records.ListBoxes(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if boxes == nil {
		boxes = []string{}
	}
	s.writeJSON(w, http.StatusOK, BoxesResponse{Boxes: boxes})
}

func (s *server) handleBoxProcesses(w http.ResponseWriter, r *http.Request) {
	box := chi.URLParam(r, "box")
	if unescaped, err := url.PathUnescape(box); err == nil {
		box = unescaped
	}
	records, err := s.records.RecordsInBox(r.Context(), box)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, BoxProcessesResponse{Box: box, Processes: FromBoxRecords(records)})
}

func (s *server) handleScanTargets(w http.ResponseWriter, r *http.Request) {
	records, err := s.records.RecordsInBox(r.Context(), r.URL.Query().Get("caixa"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ScanTargetsResponse{Processes: FromScanRecords(records)})
}

func (s *server) handleListListings(w http.ResponseWriter, r *http.Request) {
	creator := strings.TrimSpace(r.URL.Query().Get("creator"))
	if creator == "" {
		creator = operator(r)
	}
	listings, err := s.listings.List(r.Context(), creator)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ListingsResponse{Listings: listings})
}

func (s *server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	var req CreateListingRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.listings.Create(r.Context(), req.Title, operator(r), req.Entries)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, res)
}

func (s *server) handleShowListing(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "listingID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	detail, err := s.listings.Show(r.Context(), id, operator(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *server) handleListingReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "listingID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	detail, err := s.listings.Show(r.Context(), id, operator(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := listing.WriteReport(w, detail); err != nil {
		s.logger.Warn("failed to write listing report", logging.Error(err))
	}
}

func (s *server) handleRenameListing(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "listingID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req RenameListingRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.listings.Rename(r.Context(), id, operator(r), req.Title); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "listingID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req AddItemRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.listings.Add(r.Context(), id, operator(r), req.Number)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Outcome == listing.OutcomeAdded {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, res)
}

func (s *server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	listingID, err := pathID(r, "listingID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.listings.Remove(r.Context(), listingID, itemID, operator(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
