package apihandlers

import (
	"net/http"

	"github.com/vitrinhq/vitrin/pkg/catalog"
	"github.com/vitrinhq/vitrin/pkg/models"
	"github.com/vitrinhq/vitrin/pkg/server/handlertools"
)

// ListReviewsHandler godoc
//
//	@Summary	Returns the reviews of a product
//	@Tags		review
//	@Produce	json
//	@Param		productId	path	int	true	"Product ID"
//	@Success	200			{array}	models.Review
//	@Failure	404			{object}	APIError	"Not Found"
//	@Failure	500			{object}	APIError	"Internal Server Error"
//	@Security	Bearer
//	@Router		/api/v1/products/{productId}/reviews [get]
func ListReviewsHandler(appState *models.AppState) http.HandlerFunc {
	reviews := catalog.NewReviewService(appState)
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := handlertools.IDFromURL(r, w, "productId")
		if !ok {
			return
		}

		list, err := reviews.List(r.Context(), productID)
		if err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []models.Review{}
		}

		if err := handlertools.EncodeJSON(w, list); err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// CreateReviewHandler godoc
//
//	@Summary		Adds a review to a product
//	@Description	The review's sentiment is classified before it is stored.
//	@Tags			review
//	@Accept			json
//	@Produce		json
//	@Param			productId	path		int							true	"Product ID"
//	@Param			review		body		models.CreateReviewRequest	true	"Review"
//	@Success		201			{object}	models.Review
//	@Failure		400			{object}	APIError	"Bad Request"
//	@Failure		404			{object}	APIError	"Not Found"
//	@Failure		503			{object}	APIError	"Upstream Service Unavailable"
//	@Failure		500			{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/products/{productId}/reviews [post]
func CreateReviewHandler(appState *models.AppState) http.HandlerFunc {
	reviews := catalog.NewReviewService(appState)
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := handlertools.IDFromURL(r, w, "productId")
		if !ok {
			return
		}

		var req models.CreateReviewRequest
		if !decodeRequest(w, r, &req) {
			return
		}

		review, err := reviews.Create(r.Context(), productID, &req)
		if err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := handlertools.EncodeJSON(w, review); err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// GetReviewHandler godoc
//
//	@Summary	Returns a review
//	@Tags		review
//	@Produce	json
//	@Param		productId	path		int	true	"Product ID"
//	@Param		reviewId	path		int	true	"Review ID"
//	@Success	200			{object}	models.Review
//	@Failure	404			{object}	APIError	"Not Found"
//	@Failure	500			{object}	APIError	"Internal Server Error"
//	@Security	Bearer
//	@Router		/api/v1/products/{productId}/reviews/{reviewId} [get]
func GetReviewHandler(appState *models.AppState) http.HandlerFunc {
	reviews := catalog.NewReviewService(appState)
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := handlertools.IDFromURL(r, w, "productId")
		if !ok {
			return
		}
		reviewID, ok := handlertools.IDFromURL(r, w, "reviewId")
		if !ok {
			return
		}

		review, err := reviews.Get(r.Context(), productID, reviewID)
		if err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}

		if err := handlertools.EncodeJSON(w, review); err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// UpdateReviewHandler godoc
//
//	@Summary		Updates a review
//	@Description	Sentiment is reclassified only when the content changes.
//	@Tags			review
//	@Accept			json
//	@Produce		json
//	@Param			productId	path		int							true	"Product ID"
//	@Param			reviewId	path		int							true	"Review ID"
//	@Param			review		body		models.UpdateReviewRequest	true	"Review fields"
//	@Success		200			{object}	models.Review
//	@Failure		400			{object}	APIError	"Bad Request"
//	@Failure		404			{object}	APIError	"Not Found"
//	@Failure		503			{object}	APIError	"Upstream Service Unavailable"
//	@Failure		500			{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/products/{productId}/reviews/{reviewId} [put]
func UpdateReviewHandler(appState *models.AppState) http.HandlerFunc {
	reviews := catalog.NewReviewService(appState)
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := handlertools.IDFromURL(r, w, "productId")
		if !ok {
			return
		}
		reviewID, ok := handlertools.IDFromURL(r, w, "reviewId")
		if !ok {
			return
		}

		var req models.UpdateReviewRequest
		if !decodeRequest(w, r, &req) {
			return
		}

		review, err := reviews.Update(r.Context(), productID, reviewID, &req)
		if err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}

		if err := handlertools.EncodeJSON(w, review); err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// DeleteReviewHandler godoc
//
//	@Summary	Deletes a review
//	@Tags		review
//	@Param		productId	path		int		true	"Product ID"
//	@Param		reviewId	path		int		true	"Review ID"
//	@Success	200			{string}	string	"OK"
//	@Failure	404			{object}	APIError	"Not Found"
//	@Failure	500			{object}	APIError	"Internal Server Error"
//	@Security	Bearer
//	@Router		/api/v1/products/{productId}/reviews/{reviewId} [delete]
func DeleteReviewHandler(appState *models.AppState) http.HandlerFunc {
	reviews := catalog.NewReviewService(appState)
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := handlertools.IDFromURL(r, w, "productId")
		if !ok {
			return
		}
		reviewID, ok := handlertools.IDFromURL(r, w, "reviewId")
		if !ok {
			return
		}

		if err := reviews.Delete(r.Context(), productID, reviewID); err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
