package http

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	domcart "example.com/cartstore/app/internal/domain/cart"
	cartuc "example.com/cartstore/app/internal/usecase/cart"
)

type addCartItemRequest struct {
	// ID is checked for duplicates; it defaults to the item's own id.
	ID   json.RawMessage `json:"id"`
	Item json.RawMessage `json:"item" validate:"required"`
}

type updateQuantityRequest struct {
	Quantity *float64 `json:"quantity" validate:"required"`
}

type priceResponse struct {
	Total    *float64 `json:"total"`
	IsNumber bool     `json:"is_number"`
}

func (a *API) requestLog(r *http.Request) logrus.FieldLogger {
	log := a.log
	if claims := getClaims(r.Context()); claims != nil {
		log = log.WithField("subject", claims.Subject)
	}
	return log
}

func (a *API) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	item, err := domcart.ParseItem(req.Item)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	id := item.ID()
	if len(req.ID) > 0 {
		if id, err = domcart.ParseIdentifier(req.ID); err != nil {
			handleDomainError(w, err)
			return
		}
	}

	outcome, err := a.cartSvc.AddToCart(r.Context(), item, id)
	if err != nil {
		a.requestLog(r).WithError(err).Error("add to cart failed")
		handleDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if outcome == domcart.AlreadyExists {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]string{"status": outcome.String()})
}

func (a *API) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathIdentifier(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	outcome, err := a.cartSvc.RemoveFromCart(r.Context(), id)
	if err != nil {
		a.requestLog(r).WithError(err).Error("remove from cart failed")
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": outcome.String()})
}

func (a *API) handleGetCart(w http.ResponseWriter, r *http.Request) {
	c, err := a.cartSvc.GetCart(r.Context())
	if err != nil {
		a.requestLog(r).WithError(err).Error("get cart failed")
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": c})
}

func (a *API) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := pathIdentifier(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	var req updateQuantityRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	outcome, err := a.cartSvc.UpdateQuantity(r.Context(), id, *req.Quantity)
	if err != nil {
		a.requestLog(r).WithError(err).Error("update quantity failed")
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": outcome.String()})
}

func (a *API) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	tax, err := queryNumber(r, "tax")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	delivery, err := queryNumber(r, "delivery")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	total, err := a.cartSvc.GetPrice(r.Context(), cartuc.Charges{Tax: tax, Delivery: delivery})
	if err != nil {
		a.requestLog(r).WithError(err).Error("get price failed")
		handleDomainError(w, err)
		return
	}

	resp := priceResponse{}
	if !math.IsNaN(total) && !math.IsInf(total, 0) {
		resp.Total = &total
		resp.IsNumber = true
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := a.cartSvc.ClearCart(r.Context()); err != nil {
		a.requestLog(r).WithError(err).Error("clear cart failed")
		handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathIdentifier reads the {id} segment. chi matches on RawPath when the
// request carries one, and only then is the segment still escaped.
func pathIdentifier(r *http.Request) (domcart.Identifier, error) {
	raw := chi.URLParam(r, "id")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(raw)
		if err != nil {
			return domcart.Identifier{}, err
		}
		raw = unescaped
	}
	return domcart.ParseIdentifierText(raw), nil
}

func queryNumber(r *http.Request, key string) (float64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.New("query parameter " + key + " must be a number")
	}
	return f, nil
}
