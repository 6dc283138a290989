package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/satoshifaucet/faucetd/database"
	"github.com/satoshifaucet/faucetd/database/models"
	"github.com/satoshifaucet/faucetd/intake"
)

type ClaimView struct {
	ID               uint64    `json:"id"`
	DestinationShort string    `json:"destinationShort"`
	ReceiverDomain   string    `json:"receiverDomain"`
	Status           string    `json:"status"`
	StatusKey        string    `json:"statusKey"`
	SatsRequested    uint64    `json:"satsRequested"`
	SatsSent         uint64    `json:"satsSent"`
	FailureReason    *string   `json:"failureReason"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type TotalsView struct {
	Count         int64  `json:"count"`
	SatsRequested uint64 `json:"satsRequested"`
	SatsSent      uint64 `json:"satsSent"`
}

type SummaryView struct {
	BalanceSats uint64                `json:"balanceSats"`
	Totals      TotalsView            `json:"totals"`
	ByStatus    map[string]TotalsView `json:"byStatus"`
	LastUpdate  *time.Time            `json:"lastUpdate"`
}

var statusLabels = map[models.ClaimStatus]string{
	models.ClaimStatusPending:    "Queued",
	models.ClaimStatusProcessing: "Processing",
	models.ClaimStatusPaid:       "Paid",
	models.ClaimStatusFailed:     "Failed",
	models.ClaimStatusBlocked:    "Blocked",
}

func statusLabel(status models.ClaimStatus) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}

	return string(status)
}

// shortDestination keeps the head and tail of long destinations.
func shortDestination(dest string) string {
	dest = strings.TrimSpace(dest)
	if len(dest) <= 24 {
		return dest
	}

	return dest[:12] + "…" + dest[len(dest)-8:]
}

func newClaimView(claim *models.Claim) ClaimView {
	return ClaimView{
		ID:               claim.ID,
		DestinationShort: shortDestination(claim.Destination),
		ReceiverDomain:   claim.ReceiverDomain,
		Status:           statusLabel(claim.Status),
		StatusKey:        string(claim.Status),
		SatsRequested:    uint64(claim.RequestedSats),
		SatsSent:         uint64(claim.SentSats),
		FailureReason:    claim.FailureReason,
		CreatedAt:        claim.CreatedAt,
		UpdatedAt:        claim.UpdatedAt,
	}
}

func newClaimViews(claims []models.Claim) []ClaimView {
	views := make([]ClaimView, 0, len(claims))
	for i := range claims {
		views = append(views, newClaimView(&claims[i]))
	}

	return views
}

func newTotalsView(totals database.StatusTotals) TotalsView {
	return TotalsView{
		Count:         totals.Count,
		SatsRequested: uint64(totals.RequestedSats),
		SatsSent:      uint64(totals.SentSats),
	}
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.repository.GetBalance(r.Context())
	if err != nil {
		writeInternalError(w, r, err)

		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"balanceSats": uint64(balance)})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.repository.Summary(r.Context())
	if err != nil {
		writeInternalError(w, r, err)

		return
	}

	view := SummaryView{
		BalanceSats: uint64(summary.Balance),
		Totals:      newTotalsView(summary.Total()),
		ByStatus:    make(map[string]TotalsView, len(summary.ByStatus)),
		LastUpdate:  summary.LastUpdate,
	}
	for status, totals := range summary.ByStatus {
		view.ByStatus[string(status)] = newTotalsView(totals)
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleRecentClaims(w http.ResponseWriter, r *http.Request) {
	limit := DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")

			return
		}
		limit = min(parsed, database.MaxRecentClaims)
	}

	claims, err := s.repository.RecentClaims(r.Context(), limit)
	if err != nil {
		writeInternalError(w, r, err)

		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": newClaimViews(claims)})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid claim id")

		return
	}

	claim, err := s.repository.GetClaim(r.Context(), id)
	if errors.Is(err, database.ErrClaimNotFound) {
		writeError(w, http.StatusNotFound, "claim not found")

		return
	}
	if err != nil {
		writeInternalError(w, r, err)

		return
	}
	writeJSON(w, http.StatusOK, newClaimView(claim))
}

func (s *Server) handleClaimsByDestination(w http.ResponseWriter, r *http.Request) {
	destination := strings.ToUpper(intake.Normalize(r.URL.Query().Get("destination")))
	if destination == "" {
		writeError(w, http.StatusBadRequest, "destination is required")

		return
	}

	claims, err := s.repository.FindClaimsByDestination(r.Context(), destination)
	if err != nil {
		writeInternalError(w, r, err)

		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": newClaimViews(claims)})
}
