package httpapi

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"resaletracker/backend/internal/domain"
	"resaletracker/backend/internal/ledger"
	"resaletracker/backend/internal/store"
)

type periodView struct {
	domain.Period
	Totals map[string]domain.CategoryTotals `json:"totals"`
}

func withTotals(p domain.Period) periodView {
	totals := make(map[string]domain.CategoryTotals, len(p.Categories))
	for _, c := range p.Categories {
		totals[c.ID] = ledger.AggregateCategoryTotals(c)
	}
	return periodView{Period: p, Totals: totals}
}

func (a *API) handlePeriods(w http.ResponseWriter, r *http.Request) {
	book := a.service.Ledger()
	switch r.Method {
	case http.MethodGet:
		current, _ := book.CurrentPeriod()
		writeJSON(w, http.StatusOK, map[string]any{"periods": book.Periods(), "current_period_id": current.ID})
	case http.MethodPost:
		var req domain.PeriodInput
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		period, err := book.CreatePeriod(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"period": period})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCurrentPeriod(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	current, ok := a.service.Ledger().CurrentPeriod()
	if !ok {
		a.writeServiceError(w, store.Missing("period", "current"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"period": withTotals(current)})
}

type upsertCategoryRequest struct {
	Category      domain.SoldCategoryInput `json:"category"`
	Subcategories []domain.SubcategoryRow  `json:"subcategories"`
}

func (a *API) handlePeriodActions(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitAction(w, r, "/api/v1/periods/", "period id required")
	if !ok {
		return
	}
	book := a.service.Ledger()

	switch {
	case action == "" && r.Method == http.MethodGet:
		period, found := book.Period(id)
		if !found {
			a.writeServiceError(w, store.Missing("period", id))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"period": withTotals(period)})
	case action == "" && r.Method == http.MethodPatch:
		var req domain.PeriodInput
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		period, err := book.UpdatePeriod(r.Context(), id, req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"period": period})
	case action == "" && r.Method == http.MethodDelete:
		if err := book.RemovePeriod(r.Context(), id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		current, _ := book.CurrentPeriod()
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id, "current_period_id": current.ID})
	case action == "current" && r.Method == http.MethodPost:
		if err := book.SetCurrentPeriod(r.Context(), id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"current_period_id": id})
	case action == "totals" && r.Method == http.MethodGet:
		totals, err := book.PeriodTotals(id)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"totals": totals})
	case action == "export" && r.Method == http.MethodGet:
		period, found := book.Period(id)
		if !found {
			a.writeServiceError(w, store.Missing("period", id))
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"ledger-%s.csv\"", period.ID))
		w.WriteHeader(http.StatusOK)
		if err := book.ExportCSV(w, id); err != nil {
			a.logger.Error("csv export failed mid-stream", zap.String("period_id", id), zap.Error(err))
		}
	case action == "categories" && r.Method == http.MethodPost:
		var req upsertCategoryRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		category, err := book.UpsertCategory(r.Context(), id, req.Category, req.Subcategories)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"category": category,
			"totals":   ledger.AggregateCategoryTotals(category),
		})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSoldCategoryActions(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitAction(w, r, "/api/v1/sold-categories/", "category id required")
	if !ok {
		return
	}
	book := a.service.Ledger()

	switch {
	case action == "" && r.Method == http.MethodDelete:
		if err := book.DeleteCategory(r.Context(), id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case action == "move" && r.Method == http.MethodPost:
		var req struct {
			ToPeriodID string `json:"toPeriodId"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		category, err := book.MoveCategory(r.Context(), id, req.ToPeriodID)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"category": category})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSubcategoryActions(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitAction(w, r, "/api/v1/subcategories/", "subcategory id required")
	if !ok {
		return
	}
	book := a.service.Ledger()

	switch {
	case action == "records" && r.Method == http.MethodPost:
		var req domain.SoldRecordInput
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		record, err := book.AddSoldRecord(r.Context(), id, req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"record": record})
	case action == "merge" && r.Method == http.MethodPost:
		var req struct {
			IntoID string `json:"intoId"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		merged, err := book.MergeSubcategories(r.Context(), id, req.IntoID)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"subcategory": merged})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleRecordActions(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitAction(w, r, "/api/v1/records/", "record id required")
	if !ok {
		return
	}
	book := a.service.Ledger()

	switch {
	case action == "" && r.Method == http.MethodPatch:
		var req domain.SoldRecordInput
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		record, err := book.UpdateSoldRecord(r.Context(), id, req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"record": record})
	case action == "" && r.Method == http.MethodDelete:
		if err := book.DeleteSoldRecord(r.Context(), id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case action == "move" && r.Method == http.MethodPost:
		var req domain.MoveRecordRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		dest, err := book.MoveRecord(r.Context(), id, req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"subcategory": dest})
	default:
		writeMethodNotAllowed(w)
	}
}
