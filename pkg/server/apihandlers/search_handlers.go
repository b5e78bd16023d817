package apihandlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vitrinhq/vitrin/pkg/models"
	"github.com/vitrinhq/vitrin/pkg/search"
	"github.com/vitrinhq/vitrin/pkg/server/handlertools"
)

// SearchProductsHandler godoc
//
//	@Summary		Searches products by meaning
//	@Description	Returns the products closest to the search text, most similar first.
//	@Description	The limit may also be passed as a query parameter.
//	@Tags			search
//	@Accept			json
//	@Produce		json
//	@Param			limit	query		int							false	"Limit the number of results returned"
//	@Param			search	body		models.ProductSearchRequest	true	"Search request"
//	@Success		200		{object}	models.ProductSearchResponse
//	@Failure		400		{object}	APIError	"Bad Request"
//	@Failure		503		{object}	APIError	"Upstream Service Unavailable"
//	@Failure		500		{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/products/search [post]
func SearchProductsHandler(appState *models.AppState) http.HandlerFunc {
	searcher := search.NewProductSearcher(appState)
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := handlertools.IntFromQuery[int](r, "limit")
		if err != nil {
			handlertools.RenderError(w, err, http.StatusBadRequest)
			return
		}

		var req models.ProductSearchRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		if limit > 0 {
			req.Limit = limit
		}

		results, err := searcher.Search(r.Context(), &req)
		if err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}

		if err := handlertools.EncodeJSON(w, results); err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// voiceSearchMaxMemory is the part of a voice search upload kept in memory.
// Larger uploads spill to temporary files.
const voiceSearchMaxMemory = 8 << 20

// VoiceSearchProductsHandler godoc
//
//	@Summary		Searches products by a spoken query
//	@Description	Transcribes the uploaded recording and searches products with the transcript.
//	@Tags			search
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file		formData	file	true	"Recorded query, e.g. audio/webm"
//	@Param			limit		query		int		false	"Limit the number of results returned"
//	@Param			category_id	query		int		false	"Only search products in this category"
//	@Success		200			{object}	models.ProductSearchResponse
//	@Failure		400			{object}	APIError	"Bad Request"
//	@Failure		413			{object}	APIError	"Request Entity Too Large"
//	@Failure		503			{object}	APIError	"Upstream Service Unavailable"
//	@Failure		500			{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/products/voice_search [post]
func VoiceSearchProductsHandler(appState *models.AppState) http.HandlerFunc {
	searcher := search.NewProductSearcher(appState)
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := handlertools.IntFromQuery[int](r, "limit")
		if err != nil {
			handlertools.RenderError(w, err, http.StatusBadRequest)
			return
		}
		categoryID, err := handlertools.IntFromQuery[int64](r, "category_id")
		if err != nil {
			handlertools.RenderError(w, err, http.StatusBadRequest)
			return
		}

		audio, err := readAudio(r)
		if err != nil {
			handlertools.RenderError(w, err, http.StatusBadRequest)
			return
		}

		results, err := searcher.VoiceSearch(
			r.Context(),
			audio,
			&models.ProductSearchRequest{Limit: limit, CategoryID: categoryID},
		)
		if err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}

		if err := handlertools.EncodeJSON(w, results); err != nil {
			handlertools.RenderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// readAudio reads the file form field of a multipart request.
func readAudio(r *http.Request) (models.Audio, error) {
	if err := r.ParseMultipartForm(voiceSearchMaxMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return models.Audio{}, err
		}
		return models.Audio{}, fmt.Errorf("%w: unable to parse form: %w", models.ErrBadRequest, err)
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return models.Audio{}, models.NewValidationError("file", "is required")
		}
		return models.Audio{}, fmt.Errorf("%w: unable to read file: %w", models.ErrBadRequest, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return models.Audio{}, fmt.Errorf("%w: unable to read file: %w", models.ErrBadRequest, err)
	}

	return models.Audio{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
