package api

import (
	"net/http"

	"github.com/profilegen/profilegen-api/internal/api/shared"
	"github.com/profilegen/profilegen-api/internal/kpi"
	"github.com/profilegen/profilegen-api/internal/org"
)

// OrgHandler serves read-only views of the organization index and the KPI
// context resolver.
type OrgHandler struct {
	index    *org.Index
	resolver *kpi.Resolver
}

// NewOrgHandler creates a new OrgHandler.
func NewOrgHandler(index *org.Index, resolver *kpi.Resolver) *OrgHandler {
	return &OrgHandler{
		index:    index,
		resolver: resolver,
	}
}

// SearchUnits handles GET /api/org/search?q= requests.
func (h *OrgHandler) SearchUnits(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Query parameter q is required")
		return
	}

	units, err := h.index.Search(query)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	results := make([]UnitResponse, 0, len(units))
	for _, unit := range units {
		results = append(results, unitToResponse(unit))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, results)
}

// GetUnits handles GET /api/org/units requests. Without a path parameter it
// lists every unit; with one it returns that unit's detail including full
// position data.
func (h *OrgHandler) GetUnits(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		h.listUnits(w, r)
		return
	}

	unit, err := h.index.FindByPath(path)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	detail := UnitDetailResponse{
		Path:      unit.PathKey(),
		Parent:    unit.ParentKey(),
		Name:      unit.Name,
		Level:     unit.Level,
		Positions: make([]PositionResponse, 0, len(unit.Positions)),
	}
	for _, name := range unit.Positions {
		pos, err := h.index.FindPosition(unit.PathKey(), name)
		if err != nil {
			shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
			return
		}
		detail.Positions = append(detail.Positions, PositionResponse{
			Name:      pos.Name,
			Display:   pos.DisplayName(),
			Seniority: pos.Seniority,
			Category:  string(pos.Category),
		})
	}

	shared.RespondWithJSON(w, r, http.StatusOK, detail)
}

// listUnits writes every indexed unit ordered by path.
func (h *OrgHandler) listUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.index.Units()
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	results := make([]UnitResponse, 0, len(units))
	for _, unit := range units {
		results = append(results, unitToResponse(unit))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, results)
}

// ResolveContext handles GET /api/org/resolve?path= requests, exposing the
// cascading KPI resolution for diagnostics.
func (h *OrgHandler) ResolveContext(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Query parameter path is required")
		return
	}

	resolution, err := h.resolver.Resolve(path)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resolutionToResponse(resolution))
}
