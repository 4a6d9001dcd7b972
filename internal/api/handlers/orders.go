package handlers

import (
	"net/http"

	"github.com/PxPatel/auction-engine/internal/api/models"
	"github.com/PxPatel/auction-engine/internal/logger"
)

// SubmitOrderHandler handles single order submission
func (eh *EngineHolder) SubmitOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitOrderRequest

	// Parse request body
	if httpErr := decodeJSON(r, &req); httpErr != nil {
		writeErrorResponse(w, httpErr)
		return
	}

	// Validate request
	if httpErr := req.Validate(); httpErr != nil {
		writeErrorResponse(w, httpErr)
		return
	}

	orderReq, err := req.ToOrderRequest()
	if err != nil {
		writeErrorResponse(w, errorFromEngine(err))
		return
	}

	result, err := eh.Engine.Submit(r.Context(), orderReq)
	if err != nil {
		writeErrorResponse(w, errorFromEngine(err))
		return
	}

	logger.Info("Order submitted successfully", map[string]interface{}{
		"order_id": result.Order.ID,
		"asset_id": result.Order.AssetID,
		"owner_id": result.Order.OwnerID,
		"side":     result.Order.Side,
		"trades":   len(result.Trades),
	})

	writeJSON(w, http.StatusOK, models.NewMatchResultResponse("Order submitted successfully", result))
}

// BatchOrderHandler handles batch order submission. Orders are submitted
// one after the other; each gets its own result.
func (eh *EngineHolder) BatchOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req models.BatchOrderRequest

	// Parse request body
	if httpErr := decodeJSON(r, &req); httpErr != nil {
		writeErrorResponse(w, httpErr)
		return
	}

	// Validate batch request
	if httpErr := req.Validate(eh.Limits.MaxBatchSize); httpErr != nil {
		writeErrorResponse(w, httpErr)
		return
	}

	results := make([]models.BatchOrderResult, len(req.Orders))
	summary := models.BatchOrderSummary{Total: len(req.Orders)}

	for i := range req.Orders {
		result := models.BatchOrderResult{Index: i}

		httpErr := req.Orders[i].Validate()
		if httpErr == nil {
			orderReq, err := req.Orders[i].ToOrderRequest()
			if err == nil {
				matched, submitErr := eh.Engine.Submit(r.Context(), orderReq)
				if submitErr == nil {
					result.Success = true
					result.OrderID = matched.Order.ID
					result.RemainingSize = matched.RemainingSize
					for j := range matched.Trades {
						result.Trades = append(result.Trades, models.NewTradeDTO(&matched.Trades[j]))
					}
					summary.Trades += len(matched.Trades)
				} else {
					httpErr = errorFromEngine(submitErr)
				}
			} else {
				httpErr = errorFromEngine(err)
			}
		}

		if httpErr != nil {
			result.Error = &httpErr.Error
			summary.Failed++
		} else {
			summary.Successful++
		}
		results[i] = result
	}

	logger.Info("Batch order processed", map[string]interface{}{
		"total":      summary.Total,
		"successful": summary.Successful,
		"failed":     summary.Failed,
		"trades":     summary.Trades,
	})

	writeJSON(w, http.StatusOK, models.BatchOrderResponse{
		BaseResponse: models.OK(""),
		Results:      results,
		Summary:      summary,
	})
}

// GetOrderHandler returns one order
func (eh *EngineHolder) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")

	order, err := eh.Engine.Order(r.Context(), orderID)
	if err != nil {
		writeErrorResponse(w, errorFromEngine(err))
		return
	}

	dto := models.NewOrderDTO(order)
	writeJSON(w, http.StatusOK, models.GetOrderResponse{
		BaseResponse: models.OK(""),
		Order:        &dto,
	})
}

// AmendOrderHandler changes price, side or size of an order and rematches it
func (eh *EngineHolder) AmendOrderHandler(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")

	var req models.AmendOrderRequest
	if httpErr := decodeJSON(r, &req); httpErr != nil {
		writeErrorResponse(w, httpErr)
		return
	}
	if httpErr := req.Validate(); httpErr != nil {
		writeErrorResponse(w, httpErr)
		return
	}

	amendment, err := req.ToAmendment()
	if err != nil {
		writeErrorResponse(w, errorFromEngine(err))
		return
	}

	result, err := eh.Engine.Amend(r.Context(), orderID, amendment)
	if err != nil {
		writeErrorResponse(w, errorFromEngine(err))
		return
	}

	logger.Info("Order amended successfully", map[string]interface{}{
		"order_id": orderID,
		"trades":   len(result.Trades),
	})

	writeJSON(w, http.StatusOK, models.NewMatchResultResponse("Order amended successfully", result))
}

// CancelOrderHandler handles order cancellation
func (eh *EngineHolder) CancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")

	order, err := eh.Engine.Cancel(r.Context(), orderID)
	if err != nil {
		writeErrorResponse(w, errorFromEngine(err))
		return
	}

	logger.Info("Order cancelled successfully", map[string]interface{}{
		"order_id": orderID,
	})

	dto := models.NewOrderDTO(order)
	writeJSON(w, http.StatusOK, models.GetOrderResponse{
		BaseResponse: models.OK("Order cancelled successfully"),
		Order:        &dto,
	})
}

// MatchOrderHandler runs a matching pass for a stored order
func (eh *EngineHolder) MatchOrderHandler(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")

	result, err := eh.Engine.SubmitOrUpdate(r.Context(), orderID)
	if err != nil {
		writeErrorResponse(w, errorFromEngine(err))
		return
	}

	writeJSON(w, http.StatusOK, models.NewMatchResultResponse("Matching pass committed", result))
}
