package handlers

import (
	"net/http"

	"github.com/PxPatel/auction-engine/internal/api/models"
	"github.com/PxPatel/auction-engine/internal/logger"
	"github.com/PxPatel/auction-engine/internal/matching"
)

// GetOrderBookHandler handles aggregated order book snapshot requests
func (eh *EngineHolder) GetOrderBookHandler(w http.ResponseWriter, r *http.Request) {
	assetID := r.PathValue("id")
	depth := parseBoundedInt(r, "depth", eh.Limits.DefaultDepth, eh.Limits.MaxDepth)

	asset, err := eh.Engine.Asset(r.Context(), assetID)
	if err != nil {
		writeErrorResponse(w, errorFromEngine(err))
		return
	}

	orders, err := eh.Engine.OpenOrders(r.Context(), assetID)
	if err != nil {
		writeErrorResponse(w, errorFromEngine(err))
		return
	}

	book := matching.BuildDepth(orders, depth)

	logger.Debug("Order book snapshot retrieved", map[string]interface{}{
		"asset_id":   assetID,
		"bid_levels": len(book.Bids),
		"ask_levels": len(book.Asks),
	})

	writeJSON(w, http.StatusOK, models.NewOrderBookResponse(asset, book))
}
