package apihandlers

import (
	"net/http"

	"github.com/vitrinhq/vitrin/pkg/catalog"
	"github.com/vitrinhq/vitrin/pkg/models"
	"github.com/vitrinhq/vitrin/pkg/server/handlertools"
)

// CreateProductHandler godoc
//
//	@Summary		Creates a product
//	@Description	A description is generated when none is given. The product is embedded before it is stored.
//	@Tags			product
//	@Accept			json
//	@Produce		json
//	@Param			product	body		models.CreateProductRequest	true	"Product"
//	@Success		201		{object}	models.Product
//	@Failure		400		{object}	APIError	"Bad Request"
//	@Failure		404		{object}	APIError	"Category Not Found"
//	@Failure		503		{object}	APIError	"Upstream Service Unavailable"
//	@Failure		500		{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/products [post]
func CreateProductHandler(appState *models.AppState) http.HandlerFunc {
	products := catalog.NewProductService(appState)
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateProductRequest
		if !decodeRequest(w, r, &req) {
			return
		}

		product, err := products.Create(r.Context(), &req)
		if err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := handlertools.EncodeJSON(w, product); err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// GetProductHandler godoc
//
//	@Summary	Returns a product by ID
//	@Tags		product
//	@Produce	json
//	@Param		productId	path		int	true	"Product ID"
//	@Success	200			{object}	models.Product
//	@Failure	404			{object}	APIError	"Not Found"
//	@Failure	500			{object}	APIError	"Internal Server Error"
//	@Security	Bearer
//	@Router		/api/v1/products/{productId} [get]
func GetProductHandler(appState *models.AppState) http.HandlerFunc {
	products := catalog.NewProductService(appState)
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := handlertools.IDFromURL(r, w, "productId")
		if !ok {
			return
		}

		product, err := products.Get(r.Context(), productID)
		if err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}

		if err := handlertools.EncodeJSON(w, product); err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// UpdateProductHandler godoc
//
//	@Summary		Updates a product
//	@Description	Only the fields present in the request are changed. The embedding is regenerated.
//	@Tags			product
//	@Accept			json
//	@Produce		json
//	@Param			productId	path		int							true	"Product ID"
//	@Param			product		body		models.UpdateProductRequest	true	"Product fields"
//	@Success		200			{object}	models.Product
//	@Failure		400			{object}	APIError	"Bad Request"
//	@Failure		404			{object}	APIError	"Not Found"
//	@Failure		503			{object}	APIError	"Upstream Service Unavailable"
//	@Failure		500			{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/products/{productId} [put]
func UpdateProductHandler(appState *models.AppState) http.HandlerFunc {
	products := catalog.NewProductService(appState)
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := handlertools.IDFromURL(r, w, "productId")
		if !ok {
			return
		}

		var req models.UpdateProductRequest
		if !decodeRequest(w, r, &req) {
			return
		}

		product, err := products.Update(r.Context(), productID, &req)
		if err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}

		if err := handlertools.EncodeJSON(w, product); err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// DeleteProductHandler godoc
//
//	@Summary		Deletes a product
//	@Description	The product's reviews are deleted with it.
//	@Tags			product
//	@Param			productId	path		int		true	"Product ID"
//	@Success		200			{string}	string	"OK"
//	@Failure		404			{object}	APIError	"Not Found"
//	@Failure		500			{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/products/{productId} [delete]
func DeleteProductHandler(appState *models.AppState) http.HandlerFunc {
	products := catalog.NewProductService(appState)
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := handlertools.IDFromURL(r, w, "productId")
		if !ok {
			return
		}

		if err := products.Delete(r.Context(), productID); err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
