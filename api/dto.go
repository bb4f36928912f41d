/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

ENCODING:
  Dates are "2006-01-02"; instants are RFC3339; wall-clock times are
  "HH:MM:SS"; hour quantities are decimal strings, never floats.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/crewbill/timecard-engine/contract"
	"github.com/crewbill/timecard-engine/pipeline"
	"github.com/crewbill/timecard-engine/segment"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ApplyRulesRequest asks the engine to process a batch of time cards.
// Cards for the same worker must be listed in chronological order.
type ApplyRulesRequest struct {
	TimeCardIDs []string `json:"time_card_ids"`

	// Modes restricts the run to "bill" and/or "pay". Empty means both.
	Modes []string `json:"modes,omitempty"`
}

// ApplyRulesResponse reports a batch run's outcome per card.
type ApplyRulesResponse struct {
	Code      int               `json:"code"`
	Message   string            `json:"message"`
	Succeeded []string          `json:"succeeded"`
	Failures  map[string]string `json:"failures,omitempty"`
}

// TimeCardDTO represents a time card in API responses.
type TimeCardDTO struct {
	ID         string  `json:"id"`
	WorkerID   string  `json:"worker_id"`
	EventID    string  `json:"event_id,omitempty"`
	ContractID string  `json:"contract_id"`
	Date       string  `json:"date"`
	JobTitle   string  `json:"job_title,omitempty"`
	LastRunAt  *string `json:"last_run_at,omitempty"`
	LastError  string  `json:"last_error,omitempty"`
}

// CreateTimeCardRequest creates a card together with its raw punches.
type CreateTimeCardRequest struct {
	ID         string                `json:"id"`
	WorkerID   string                `json:"worker_id"`
	EventID    string                `json:"event_id,omitempty"`
	ContractID string                `json:"contract_id"`
	Date       string                `json:"date"`
	JobTitle   string                `json:"job_title,omitempty"`
	Segments   []ClockSegmentRequest `json:"segments"`
}

// ClockSegmentRequest is one raw punch. In/out are absolute instants.
type ClockSegmentRequest struct {
	ID    string        `json:"id,omitempty"`
	InAt  time.Time     `json:"in_at"`
	OutAt time.Time     `json:"out_at"`
	Flags segment.Flags `json:"flags,omitempty"`
	Note  string        `json:"note,omitempty"`
}

// LineDTO represents one persisted derived line with its six hour columns.
type LineDTO struct {
	ID              string        `json:"id"`
	TimeCardID      string        `json:"time_card_id"`
	Mode            string        `json:"mode"`
	Role            string        `json:"role"`
	SourceSegmentID string        `json:"source_segment_id,omitempty"`
	Date            string        `json:"date"`
	In              string        `json:"in"`
	Out             string        `json:"out"`
	InAt            string        `json:"in_at"`
	OutAt           string        `json:"out_at"`
	Flags           segment.Flags `json:"flags"`
	CreditedHours   string        `json:"credited_hours,omitempty"`
	Note            string        `json:"note,omitempty"`

	Hours HoursDTO `json:"hours"`
}

// HoursDTO is the six-column breakdown. At most one entry is non-zero.
type HoursDTO struct {
	Standard    string `json:"standard"`
	Overtime    string `json:"overtime"`
	Double      string `json:"double"`
	Night       string `json:"night"`
	MealPenalty string `json:"meal_penalty"`
	Drive       string `json:"drive"`
}

// ContractDTO wraps a contract with its rule catalog.
type ContractDTO struct {
	Contract *contract.Contract      `json:"contract"`
	Rules    []contract.ContractRule `json:"rules,omitempty"`
}

// SaveContractRequest stores a contract and replaces its rule catalog.
type SaveContractRequest struct {
	Contract *contract.Contract      `json:"contract"`
	Rules    []contract.ContractRule `json:"rules,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toTimeCardDTO(card *segment.TimeCard) TimeCardDTO {
	dto := TimeCardDTO{
		ID:         card.ID,
		WorkerID:   card.WorkerID,
		EventID:    card.EventID,
		ContractID: card.ContractID,
		Date:       card.Date.Format("2006-01-02"),
		JobTitle:   card.JobTitle,
		LastError:  card.LastError,
	}
	if card.LastRunAt != nil {
		at := card.LastRunAt.Format(time.RFC3339)
		dto.LastRunAt = &at
	}
	return dto
}

func toLineDTO(l pipeline.Line) LineDTO {
	return LineDTO{
		ID:              l.ID,
		TimeCardID:      l.TimeCardID,
		Mode:            string(l.Mode),
		Role:            string(l.Role),
		SourceSegmentID: l.SourceSegmentID,
		Date:            l.Date.Format("2006-01-02"),
		In:              l.In.String(),
		Out:             l.Out.String(),
		InAt:            l.InAt.Format(time.RFC3339),
		OutAt:           l.OutAt.Format(time.RFC3339),
		Flags:           l.Flags,
		CreditedHours:   l.CreditedHours.String(),
		Note:            l.Note,
		Hours: HoursDTO{
			Standard:    l.Hours[pipeline.ColumnStandard].String(),
			Overtime:    l.Hours[pipeline.ColumnOvertime].String(),
			Double:      l.Hours[pipeline.ColumnDouble].String(),
			Night:       l.Hours[pipeline.ColumnNight].String(),
			MealPenalty: l.Hours[pipeline.ColumnMealPenalty].String(),
			Drive:       l.Hours[pipeline.ColumnDrive].String(),
		},
	}
}

func toLineDTOs(lines []pipeline.Line) []LineDTO {
	dtos := make([]LineDTO, len(lines))
	for i, l := range lines {
		dtos[i] = toLineDTO(l)
	}
	return dtos
}
