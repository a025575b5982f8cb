package handlers

import (
	"net/http"

	"github.com/snapwatch/worker/internal/application/usecases"
	"github.com/snapwatch/worker/internal/ports"
)

// DiscoverHandler serves sitemap-based page discovery
type DiscoverHandler struct {
	discover *usecases.DiscoverPages
}

func NewDiscoverHandler(discover *usecases.DiscoverPages) *DiscoverHandler {
	return &DiscoverHandler{discover: discover}
}

type discoverPagesRequest struct {
	Domain   string `json:"domain"`
	MaxPages int    `json:"max_pages,omitempty"`
}

type discoverPagesResponse struct {
	Success    bool                   `json:"success"`
	Pages      []ports.DiscoveredPage `json:"pages"`
	TotalFound int                    `json:"total_found"`
}

// Discover handles POST /discover-pages
func (h *DiscoverHandler) Discover(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[discoverPagesRequest](r, w)
	if !ok {
		return
	}

	out, err := h.discover.Execute(r.Context(), usecases.DiscoverPagesInput{
		Domain:   req.Domain,
		MaxPages: req.MaxPages,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	pages := out.Pages
	if pages == nil {
		pages = []ports.DiscoveredPage{}
	}
	respondJSON(w, discoverPagesResponse{
		Success:    true,
		Pages:      pages,
		TotalFound: out.TotalFound,
	}, http.StatusOK)
}
