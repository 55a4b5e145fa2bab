package identity

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	repo Repository
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{repo: NewRepository(db)}
}

// CreateMapping godoc
// @Summary      Register identity mapping
// @Description  Links an external UUID to a canonical farmer key. Admin only.
// @Tags         identity
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      CreateMappingRequest  true  "Mapping"
// @Success      201   {object}  Mapping
// @Failure      400   {object}  gin.H
// @Failure      500   {object}  gin.H
// @Router       /admin/identity-mappings [post]
func (h *Handler) CreateMapping(c *gin.Context) {
	var req CreateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "external_id must be a UUID and canonical_key positive"})
		return
	}

	m, err := h.repo.AddMapping(c.Request.Context(), req.ExternalID, req.CanonicalKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store mapping"})
		return
	}

	c.JSON(http.StatusCreated, m)
}
