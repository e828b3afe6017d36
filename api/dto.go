/*
dto.go - JSON shapes of the run and ledger API

PURPOSE:
  Decouples the stored model from the response contract. Decimal amounts
  are serialized as strings so clients never see float rounding.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Response: Wrappers with more than one payload

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/IamNiko/sales-app/core"
)

// RunDTO is one run ledger entry.
type RunDTO struct {
	RunID         int64      `json:"run_id"`
	Status        string     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Message       string     `json:"message,omitempty"`
	PeriodUpdated string     `json:"period_updated,omitempty"`
	FileManifest  []string   `json:"file_manifest"`
}

// UnmatchedDTO is one unresolved client identity.
type UnmatchedDTO struct {
	Period        string `json:"period"`
	WeakCode      string `json:"weak_code"`
	Name          string `json:"name"`
	SecondaryCode string `json:"secondary_code,omitempty"`
	Reason        string `json:"reason"`
}

// PeriodTotalsDTO summarizes the ledger for one period.
type PeriodTotalsDTO struct {
	Period   string `json:"period"`
	Rows     int    `json:"rows"`
	Quantity string `json:"quantity"`
	Amount   string `json:"amount"`
}

// UnmatchedResponse wraps the audit with the run it belongs to.
type UnmatchedResponse struct {
	RunID     int64          `json:"run_id"`
	Unmatched []UnmatchedDTO `json:"unmatched"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toRunDTO(r core.RunRecord) RunDTO {
	manifest := r.FileManifest
	if manifest == nil {
		manifest = []string{}
	}
	return RunDTO{
		RunID:         r.RunID,
		Status:        string(r.Status),
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		Message:       r.Message,
		PeriodUpdated: r.PeriodUpdated.String(),
		FileManifest:  manifest,
	}
}

func toUnmatchedDTOs(in []core.UnmatchedClient) []UnmatchedDTO {
	out := make([]UnmatchedDTO, 0, len(in))
	for _, u := range in {
		out = append(out, UnmatchedDTO{
			Period:        u.Period.String(),
			WeakCode:      u.WeakCode,
			Name:          u.Name,
			SecondaryCode: u.SecondaryCode,
			Reason:        u.Reason,
		})
	}
	return out
}

func toPeriodTotalsDTOs(in []core.PeriodTotals) []PeriodTotalsDTO {
	out := make([]PeriodTotalsDTO, 0, len(in))
	for _, t := range in {
		out = append(out, PeriodTotalsDTO{
			Period:   t.Period.String(),
			Rows:     t.Rows,
			Quantity: t.Quantity.String(),
			Amount:   t.Amount.String(),
		})
	}
	return out
}
