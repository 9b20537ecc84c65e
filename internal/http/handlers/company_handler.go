// Company HTTP handlers.
//
//   - POST /companies                  (register the caller's company)
//   - GET  /companies/me               (fetch it)
//   - PUT  /companies/me               (update profile fields)
//   - PUT  /companies/me/description   (update description, retrains)
//
// The description endpoint is separate from the profile one on purpose: a
// description change resets the fine-tuned model and starts a new training
// cycle, which callers should opt into explicitly.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cobaltline/assistly-backend/internal/domain"
	"github.com/cobaltline/assistly-backend/internal/services"
)

// CompanyRequest is the JSON payload for creating or updating a company.
type CompanyRequest struct {
	Name        string `json:"name" example:"Acme Rockets"`
	Industry    string `json:"industry" example:"aerospace"`
	Email       string `json:"email" example:"hello@acme.example"`
	Phone       string `json:"phone" example:"+1 555 0100"`
	Address     string `json:"address" example:"1 Launch Pad"`
	Description string `json:"description" example:"We build rockets."`
	Tone        string `json:"tone" example:"professional"`
}

// UpdateDescriptionRequest is the JSON payload for the description endpoint.
type UpdateDescriptionRequest struct {
	Description string `json:"description" binding:"required" example:"We build reusable rockets."`
}

// CompanyView is the client-safe projection of a company. The training state
// is exposed as a label, never as the raw model reference.
type CompanyView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Industry    string `json:"industry,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	Description string `json:"description,omitempty"`
	Tone        string `json:"tone"`
	ModelStatus string `json:"model_status"`
}

func companyView(c *domain.Company) CompanyView {
	return CompanyView{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Industry:    c.Industry,
		Email:       c.Email,
		Phone:       c.Phone,
		Address:     c.Address,
		Description: c.Description,
		Tone:        c.Tone,
		ModelStatus: domain.ParseModelReference(c.ModelRef).State.String(),
	}
}

func companyInput(req CompanyRequest) services.CompanyInput {
	return services.CompanyInput{
		Name:        req.Name,
		Industry:    req.Industry,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		Description: req.Description,
		Tone:        req.Tone,
	}
}

// CreateCompany godoc
// @ID          createCompany
// @Summary     Register the caller's company
// @Description Creates the company, derives its slug, and starts training when a description is supplied.
// @Tags        Companies
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  handlers.CompanyRequest  true  "Company payload"
// @Success     201  {object}  handlers.CompanyView
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Company already registered"
// @Router      /companies [post]
func (h *Handlers) CreateCompany(c *gin.Context) {
	var req CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "company name required")
		return
	}
	company, err := h.companies.Create(c.Request.Context(), userID(c), companyInput(req))
	if err != nil {
		mapError(c, err)
		return
	}
	ok(c, http.StatusCreated, companyView(company))
}

// GetMyCompany godoc
// @ID          getMyCompany
// @Summary     Fetch the caller's company
// @Tags        Companies
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.CompanyView
// @Failure     404  {object}  handlers.ErrorResponse  "Company not found"
// @Router      /companies/me [get]
func (h *Handlers) GetMyCompany(c *gin.Context) {
	company, err := h.companies.GetMine(c.Request.Context(), userID(c))
	if err != nil {
		mapError(c, err)
		return
	}
	ok(c, http.StatusOK, companyView(company))
}

// UpdateMyCompany godoc
// @ID          updateMyCompany
// @Summary     Update profile fields
// @Description Updates non-description fields. The slug and the trained model never change here.
// @Tags        Companies
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  handlers.CompanyRequest  true  "Fields to update (empty fields are ignored)"
// @Success     200  {object}  handlers.CompanyView
// @Failure     404  {object}  handlers.ErrorResponse  "Company not found"
// @Router      /companies/me [put]
func (h *Handlers) UpdateMyCompany(c *gin.Context) {
	var req CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	company, err := h.companies.UpdateProfile(c.Request.Context(), userID(c), companyInput(req))
	if err != nil {
		mapError(c, err)
		return
	}
	ok(c, http.StatusOK, companyView(company))
}

// UpdateMyDescription godoc
// @ID          updateMyDescription
// @Summary     Update the company description
// @Description Replaces the description, discards the current fine-tuned model, and starts a fresh training cycle.
// @Tags        Companies
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  handlers.UpdateDescriptionRequest  true  "New description"
// @Success     200  {object}  handlers.CompanyView
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Company not found"
// @Router      /companies/me/description [put]
func (h *Handlers) UpdateMyDescription(c *gin.Context) {
	var req UpdateDescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Description) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "description required")
		return
	}
	company, err := h.companies.UpdateDescription(c.Request.Context(), userID(c), req.Description)
	if err != nil {
		mapError(c, err)
		return
	}
	ok(c, http.StatusOK, companyView(company))
}
