// Lead HTTP handlers.
//
//   - GET /leads   (paginated, most recent first)
//
// Leads are captured automatically by the public chat path; this endpoint
// only reads them back for the company admin.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cobaltline/assistly-backend/internal/domain"
)

// ListLeadsResponse wraps a page of captured leads.
type ListLeadsResponse struct {
	Leads      []domain.Lead `json:"leads"`
	Pagination Pagination    `json:"pagination"`
}

// ListLeads godoc
// @ID          listLeads
// @Summary     List captured leads (paginated)
// @Tags        Leads
// @Produce     json
// @Security    BearerAuth
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(10)
// @Success     200  {object}  handlers.ListLeadsResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Company not found"
// @Router      /leads [get]
func (h *Handlers) ListLeads(c *gin.Context) {
	page, pageSize := clampPagination(c)
	leads, total, err := h.leads.ListPage(c.Request.Context(), userID(c), page, pageSize)
	if err != nil {
		mapError(c, err)
		return
	}
	ok(c, http.StatusOK, ListLeadsResponse{
		Leads:      leads,
		Pagination: newPagination(page, pageSize, total),
	})
}
