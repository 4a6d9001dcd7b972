package handlers

import (
	"net/http"

	"github.com/PxPatel/auction-engine/internal/api/models"
	"github.com/PxPatel/auction-engine/internal/logger"
)

// GetTradesHandler handles retrieving recent trades of an asset, newest first
func (eh *EngineHolder) GetTradesHandler(w http.ResponseWriter, r *http.Request) {
	assetID := r.PathValue("id")
	limit := parseBoundedInt(r, "limit", eh.Limits.DefaultTradeLimit, eh.Limits.MaxTradeLimit)

	trades, err := eh.Engine.RecentTrades(r.Context(), assetID, limit)
	if err != nil {
		writeErrorResponse(w, errorFromEngine(err))
		return
	}

	tradeDTOs := make([]models.TradeDTO, 0, len(trades))
	for _, trade := range trades {
		tradeDTOs = append(tradeDTOs, models.NewTradeDTO(trade))
	}

	logger.Debug("Retrieved trades", map[string]interface{}{
		"asset_id": assetID,
		"count":    len(tradeDTOs),
		"limit":    limit,
	})

	writeJSON(w, http.StatusOK, models.GetTradesResponse{
		BaseResponse: models.OK(""),
		AssetID:      assetID,
		Trades:       tradeDTOs,
		Count:        len(tradeDTOs),
	})
}
