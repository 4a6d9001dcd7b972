package handlers

import (
	"net/http"

	"github.com/samber/lo"

	"github.com/PxPatel/auction-engine/internal/api/models"
	"github.com/PxPatel/auction-engine/internal/matching"
	"github.com/PxPatel/auction-engine/internal/types"
)

// SimulateHandler runs the matcher on a caller supplied snapshot. Nothing
// is read from or written to the store.
func SimulateHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SimulateRequest
	if httpErr := decodeJSON(r, &req); httpErr != nil {
		writeErrorResponse(w, httpErr)
		return
	}
	if httpErr := req.Validate(); httpErr != nil {
		writeErrorResponse(w, httpErr)
		return
	}

	incoming, err := req.Incoming.ToOrder()
	if err != nil {
		writeErrorResponse(w, errorFromEngine(err))
		return
	}

	candidates := make([]*types.Order, 0, len(req.Candidates))
	for i := range req.Candidates {
		candidate, err := req.Candidates[i].ToOrder()
		if err != nil {
			writeErrorResponse(w, errorFromEngine(err))
			return
		}
		candidates = append(candidates, candidate)
	}

	fills := matching.ComputeMatches(incoming, candidates)
	filled := lo.SumBy(fills, func(f types.Fill) int64 { return f.Size })

	writeJSON(w, http.StatusOK, models.SimulateResponse{
		BaseResponse:  models.OK(""),
		Fills:         lo.Map(fills, func(f types.Fill, _ int) models.FillDTO { return models.NewFillDTO(f) }),
		FilledSize:    filled,
		RemainingSize: incoming.RemainingSize - filled,
	})
}
