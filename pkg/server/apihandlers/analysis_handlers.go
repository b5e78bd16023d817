package apihandlers

import (
	"net/http"

	"github.com/vitrinhq/vitrin/pkg/analysis"
	"github.com/vitrinhq/vitrin/pkg/models"
	"github.com/vitrinhq/vitrin/pkg/server/handlertools"
)

// GetProductAnalysisHandler godoc
//
//	@Summary		Analyzes a product's reviews
//	@Description	Returns the product with its average sentiment, label counts and a summary of its reviews.
//	@Description	Products without reviews return 204 No Content.
//	@Tags			analysis
//	@Produce		json
//	@Param			productId	path		int	true	"Product ID"
//	@Success		200			{object}	models.ProductAnalysis
//	@Success		204			"No Content"
//	@Failure		404			{object}	APIError	"Not Found"
//	@Failure		503			{object}	APIError	"Upstream Service Unavailable"
//	@Failure		500			{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/products/{productId}/analysis [get]
func GetProductAnalysisHandler(appState *models.AppState) http.HandlerFunc {
	analyzer := analysis.NewReviewAnalyzer(appState)
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := handlertools.IDFromURL(r, w, "productId")
		if !ok {
			return
		}

		result, err := analyzer.Analyze(r.Context(), productID)
		if err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}

		if err := handlertools.EncodeJSON(w, result); err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}
