package submission

import (
	"github.com/akeren/submission-history/internal/models"
	apperrors "github.com/akeren/submission-history/pkg/errors"
)

// SubmitRequest is the POST /submit body. Only JSON shape is enforced at binding time; the name rules
// run inside the service, after the processing delay.
type SubmitRequest struct {
	Date      string `json:"date"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// SubmissionEcho is one element of a successful submit response.
type SubmissionEcho struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

type HistoryEntryResponse struct {
	Date      string `json:"date"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Count     int64  `json:"count"`
}

type submitSuccessResponse struct {
	Success bool             `json:"success"`
	Data    []SubmissionEcho `json:"data"`
}

type submitFailureResponse struct {
	Success bool                  `json:"success"`
	Error   apperrors.FieldErrors `json:"error"`
}

type historyFailureResponse struct {
	Error string `json:"error"`
}

// ========================================
// Mappers
// ========================================

func ToSubmissionEcho(req *SubmitRequest) SubmissionEcho {
	return SubmissionEcho{
		Date: req.Date,
		Name: req.FirstName + " " + req.LastName,
	}
}

func ToHistoryEntryResponse(entry models.HistoryEntry) HistoryEntryResponse {
	return HistoryEntryResponse{
		Date:      entry.Date,
		FirstName: entry.FirstName,
		LastName:  entry.LastName,
		Count:     entry.Count,
	}
}
