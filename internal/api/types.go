package api

import (
	"encoding/json"

	"permanentes/internal/identifier"
	"permanentes/internal/registry"
)

// CheckResponse answers a single-number lookup. Only Found is set on a miss.
type CheckResponse struct {
	Found      bool   `json:"encontrado"`
	Box        string `json:"caixa_origem,omitempty"`
	Status     string `json:"situacao,omitempty"`
	Permanent  *bool  `json:"is_permanente,omitempty"`
	Identifier string `json:"numero_db,omitempty"`
	Strategy   string `json:"estrategia,omitempty"`
}

// MarshalJSON always carries caixa_origem on a hit, as null when the record
// has no box.
func (c CheckResponse) MarshalJSON() ([]byte, error) {
	if !c.Found {
		return json.Marshal(struct {
			Found bool `json:"encontrado"`
		}{})
	}
	var box *string
	if c.Box != "" {
		box = &c.Box
	}
	return json.Marshal(struct {
		Found      bool    `json:"encontrado"`
		Box        *string `json:"caixa_origem"`
		Status     string  `json:"situacao"`
		Permanent  *bool   `json:"is_permanente"`
		Identifier string  `json:"numero_db"`
		Strategy   string  `json:"estrategia,omitempty"`
	}{true, box, c.Status, c.Permanent, c.Identifier, c.Strategy})
}

// BoxProcess is one record of a box audit.
type BoxProcess struct {
	Identifier string `json:"numero"`
	Subject    string `json:"assunto"`
	Status     string `json:"situacao"`
}

// BoxProcessesResponse lists the records filed in one box.
type BoxProcessesResponse struct {
	Box       string       `json:"caixa"`
	Processes []BoxProcess `json:"processos"`
}

// ScanTarget is a box record prepared for barcode comparison: the number
// reduced to digits plus the stored form for display.
type ScanTarget struct {
	Number   string `json:"numero"`
	Original string `json:"numero_original"`
	Status   string `json:"situacao"`
}

// ScanTargetsResponse wraps ScanTarget values.
type ScanTargetsResponse struct {
	Processes []ScanTarget `json:"processos"`
}

// BoxesResponse lists the distinct box labels.
type BoxesResponse struct {
	Boxes []string `json:"caixas"`
}

// BatchRequest carries either pasted text or a discrete list. Inputs wins
// when both are present.
type BatchRequest struct {
	Text   string   `json:"text"`
	Mode   string   `json:"mode"`
	Inputs []string `json:"inputs"`
}

// CreateListingRequest opens a listing with optional bulk entries.
type CreateListingRequest struct {
	Title   string   `json:"title"`
	Entries []string `json:"entries"`
}

// AddItemRequest carries one typed number.
type AddItemRequest struct {
	Number string `json:"numero"`
}

// RenameListingRequest carries a new NNNN/TT/AA title.
type RenameListingRequest struct {
	Title string `json:"title"`
}

// ListingsResponse wraps listing summaries.
type ListingsResponse struct {
	Listings []registry.Listing `json:"listings"`
}

// VersionResponse reports the running build.
type VersionResponse struct {
	Version string `json:"version"`
}

// FromRecord builds a positive check answer. permanent is decided by the
// caller's marker.
func FromRecord(rec registry.Record, permanent bool, strategy string) CheckResponse {
	return CheckResponse{
		Found:      true,
		Box:        rec.Box,
		Status:     rec.StatusText(),
		Permanent:  &permanent,
		Identifier: rec.Identifier,
		Strategy:   strategy,
	}
}

// FromBoxRecords converts records to box audit rows with display defaults.
func FromBoxRecords(records []registry.Record) []BoxProcess {
	out := make([]BoxProcess, 0, len(records))
	for _, rec := range records {
		subject := rec.Subject
		if subject == "" {
			subject = "Sem Assunto"
		}
		status := rec.Status
		if status == "" {
			status = "-"
		}
		out = append(out, BoxProcess{Identifier: rec.Identifier, Subject: subject, Status: status})
	}
	return out
}

// FromScanRecords converts records to scan targets.
func FromScanRecords(records []registry.Record) []ScanTarget {
	out := make([]ScanTarget, 0, len(records))
	for _, rec := range records {
		status := rec.Status
		if status == "" {
			status = "Sem Situação"
		}
		out = append(out, ScanTarget{
			Number:   identifier.Normalize(rec.Identifier),
			Original: rec.Identifier,
			Status:   status,
		})
	}
	return out
}
