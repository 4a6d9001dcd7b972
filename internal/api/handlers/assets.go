package handlers

import (
	"net/http"

	"github.com/PxPatel/auction-engine/internal/api/models"
)

// GetAssetHandler returns an asset with its last traded price
func (eh *EngineHolder) GetAssetHandler(w http.ResponseWriter, r *http.Request) {
	asset, err := eh.Engine.Asset(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErrorResponse(w, errorFromEngine(err))
		return
	}

	writeJSON(w, http.StatusOK, models.GetAssetResponse{
		BaseResponse: models.OK(""),
		Asset:        models.NewAssetDTO(asset),
	})
}
