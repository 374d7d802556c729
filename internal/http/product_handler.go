package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/products-api/internal/domain"
	"github.com/fjod/products-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const WelcomeMessage = "Welcome to the Products API!"

type ProductService interface {
	Create(ctx context.Context, fields domain.ProductFields) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	FindByTitle(ctx context.Context, title string) (*domain.Product, error)
	Update(ctx context.Context, id string, update domain.ProductUpdate) (*domain.Product, error)
	Delete(ctx context.Context, id string) (*domain.Product, error)
}

type ProductHandler struct {
	service ProductService
	timeout time.Duration
	log     *zap.SugaredLogger
}

func NewProductHandler(svc ProductService, timeout time.Duration, log *zap.SugaredLogger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		timeout: timeout,
		log:     log,
	}
}

// Welcome godoc
// @Summary      Service banner
// @Produce      plain
// @Success      200  {string}  string
// @Router       / [get]
func (h *ProductHandler) Welcome(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(WelcomeMessage))
}

// Create godoc
// @Summary      Create a product
// @Accept       json
// @Produce      json
// @Param        product  body      createProductRequest  true  "Product fields"
// @Success      200      {object}  domain.Product
// @Failure      500      {object}  ValidationError
// @Router       /products [post]
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	log := h.requestLog(r)

	body, err := decodeBody(r.Body)
	if err != nil {
		log.Errorw("create product: bad body", "error", err)
		respondJSON(w, log, http.StatusInternalServerError, RawError{Name: "Error", Message: err.Error()})
		return
	}

	fields, err := parseCreate(body)
	if err != nil {
		log.Errorw("create product: validation failed", "error", err)
		var verr *ValidationError
		if errors.As(err, &verr) {
			respondJSON(w, log, http.StatusInternalServerError, verr)
			return
		}
		respondJSON(w, log, http.StatusInternalServerError, RawError{Name: "Error", Message: err.Error()})
		return
	}

	product, err := h.service.Create(ctx, fields)
	if err != nil {
		log.Errorw("create product failed", "error", err)
		respondJSON(w, log, http.StatusInternalServerError, RawError{Name: "Error", Message: err.Error()})
		return
	}

	respondJSON(w, log, http.StatusOK, product)
}

// List godoc
// @Summary      List all products
// @Produce      json
// @Success      200  {array}   domain.Product
// @Failure      500  {object}  ErrorResponse
// @Router       /products [get]
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	log := h.requestLog(r)

	products, err := h.service.List(ctx)
	if err != nil {
		log.Errorw("Error fetching products", "error", err)
		respondError(w, log, http.StatusInternalServerError, "Error fetching products")
		return
	}
	if products == nil {
		products = []domain.Product{}
	}

	respondJSON(w, log, http.StatusOK, products)
}

// FindByTitle godoc
// @Summary      Find one product by exact title
// @Produce      json
// @Param        title  query     string  true  "Product title"
// @Success      200    {object}  domain.Product
// @Failure      404    {object}  ErrorResponse
// @Failure      500    {object}  ErrorResponse
// @Router       /products/one [get]
func (h *ProductHandler) FindByTitle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	log := h.requestLog(r)

	query := r.URL.Query()
	if !query.Has("title") {
		// Without a title the lookup filters on a null title, which no stored product has.
		respondError(w, log, http.StatusNotFound, "Product not found")
		return
	}
	title := query.Get("title")
	product, err := h.service.FindByTitle(ctx, title)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(w, log, http.StatusNotFound, "Product not found")
			return
		}
		log.Errorw("Error fetching product", "title", title, "error", err)
		respondError(w, log, http.StatusInternalServerError, "Error fetching product")
		return
	}

	respondJSON(w, log, http.StatusOK, product)
}

// Update godoc
// @Summary      Update a product
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Product id"
// @Param        product  body      createProductRequest  true  "Fields to set"
// @Success      200      {object}  domain.Product
// @Failure      404      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /products/{id} [put]
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	log := h.requestLog(r)
	id := chi.URLParam(r, "id")

	body, err := decodeBody(r.Body)
	if err != nil {
		log.Errorw("update product: bad body", "id", id, "error", err)
		respondError(w, log, http.StatusInternalServerError, "Error updating product")
		return
	}
	log.Debugw("update product request", "id", id, "body", body)

	update, err := parseUpdate(body)
	if err != nil {
		log.Errorw("update product: cast failed", "id", id, "error", err)
		respondError(w, log, http.StatusInternalServerError, "Error updating product")
		return
	}

	product, err := h.service.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(w, log, http.StatusNotFound, "Product not found")
			return
		}
		log.Errorw("Error updating product", "id", id, "error", err)
		respondError(w, log, http.StatusInternalServerError, "Error updating product")
		return
	}

	respondJSON(w, log, http.StatusOK, product)
}

// Delete godoc
// @Summary      Delete a product
// @Produce      json
// @Param        id   path      string  true  "Product id"
// @Success      200  {object}  DeleteResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /products/{id} [delete]
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	log := h.requestLog(r)
	id := chi.URLParam(r, "id")

	product, err := h.service.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(w, log, http.StatusNotFound, "Product not found")
			return
		}
		log.Errorw("Error deleting product", "id", id, "error", err)
		respondError(w, log, http.StatusInternalServerError, "Error deleting product")
		return
	}

	respondJSON(w, log, http.StatusOK, DeleteResponse{
		Message:  "Product deleted successfully",
		Products: product,
	})
}

func (h *ProductHandler) requestLog(r *http.Request) *zap.SugaredLogger {
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		return h.log.With("request_id", reqID)
	}
	return h.log
}
