package httpapi

import (
	"net/http"

	"resaletracker/backend/internal/domain"
	"resaletracker/backend/internal/lifecycle"
)

type listingRequest struct {
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Note         string `json:"note"`
	PhotoRef     string `json:"photoRef"`
	DateAdded    string `json:"dateAdded"`
	EndDate      string `json:"endDate"`
	Confirmed    bool   `json:"confirmed"`
}

func (a *API) listingInput(r *http.Request, req listingRequest) (domain.ListingInput, error) {
	dateAdded, err := a.parseDate("dateAdded", req.DateAdded)
	if err != nil {
		return domain.ListingInput{}, err
	}
	endDate, err := a.parseDate("endDate", req.EndDate)
	if err != nil {
		return domain.ListingInput{}, err
	}
	return domain.ListingInput{
		CategoryID:   req.CategoryID,
		CategoryName: req.CategoryName,
		Name:         req.Name,
		Description:  req.Description,
		Note:         req.Note,
		PhotoRef:     req.PhotoRef,
		DateAdded:    dateAdded,
		EndDate:      endDate,
		Confirmed:    req.Confirmed || confirmed(r),
	}, nil
}

func (a *API) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"categories": a.service.Listings().Categories()})
	case http.MethodPost:
		var req domain.CategoryInput
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		category, err := a.service.Listings().CreateCategory(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"category": category})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCategoryActions(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitAction(w, r, "/api/v1/categories/", "category id required")
	if !ok {
		return
	}
	listings := a.service.Listings()

	switch {
	case action == "suggestion" && r.Method == http.MethodGet:
		dateAdded, err := a.parseDate("date_added", r.URL.Query().Get("date_added"))
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		suggestion, err := listings.SuggestEndDate(id, dateAdded)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"suggestion": suggestion})
	case action == "" && r.Method == http.MethodPatch:
		var req domain.CategoryInput
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		category, err := listings.UpdateCategory(r.Context(), id, req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"category": category})
	case action == "" && r.Method == http.MethodDelete:
		removed, err := listings.DeleteCategory(r.Context(), id)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id, "listings_removed": removed})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleListings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter := lifecycle.ListingFilter{
			CategoryID: r.URL.Query().Get("category_id"),
			State:      domain.ListingState(r.URL.Query().Get("state")),
		}
		writeJSON(w, http.StatusOK, map[string]any{"listings": a.service.Listings().Listings(filter)})
	case http.MethodPost:
		var req listingRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		in, err := a.listingInput(r, req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		listing, err := a.service.Listings().CreateListing(r.Context(), in)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		view, _ := a.service.Listings().View(listing.ID)
		writeJSON(w, http.StatusCreated, map[string]any{"listing": view})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleListingSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": a.service.Listings().Summary()})
}

func (a *API) handleListingActions(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitAction(w, r, "/api/v1/listings/", "listing id required")
	if !ok {
		return
	}
	listings := a.service.Listings()

	switch {
	case action == "" && r.Method == http.MethodGet:
		view, err := listings.View(id)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"listing": view})
	case action == "" && r.Method == http.MethodPatch:
		var req listingRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		in, err := a.listingInput(r, req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		result, err := listings.EditListing(r.Context(), id, in)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		view, _ := listings.View(id)
		writeJSON(w, http.StatusOK, map[string]any{"listing": view, "resurrected": result.Resurrected})
	case action == "" && r.Method == http.MethodDelete:
		if err := listings.DeleteListing(r.Context(), id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case action == "end" && r.Method == http.MethodPost:
		if _, err := listings.EndListing(r.Context(), id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		view, _ := listings.View(id)
		writeJSON(w, http.StatusOK, map[string]any{"listing": view})
	case action == "sell" && r.Method == http.MethodPost:
		var req domain.SaleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		result, err := a.service.SellListing(r.Context(), id, req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	default:
		writeMethodNotAllowed(w)
	}
}
