package catalog

import (
	"net/http"

	"farmfuzion/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	repo Repository
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{repo: NewRepository(db)}
}

// ListListings godoc
// @Summary      Browse active listings
// @Tags         market
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Listing
// @Failure      500  {object}  gin.H
// @Router       /market/listings [get]
func (h *Handler) ListListings(c *gin.Context) {
	listings, err := h.repo.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch listings"})
		return
	}

	c.JSON(http.StatusOK, listings)
}

// CreateListing godoc
// @Summary      Create listing
// @Tags         market
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      CreateListingRequest  true  "Listing"
// @Success      201   {object}  Listing
// @Failure      400   {object}  gin.H
// @Failure      500   {object}  gin.H
// @Router       /market/listings [post]
func (h *Handler) CreateListing(c *gin.Context) {
	farmerID, ok := auth.GetFarmerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, unit, positive unit_price_cents and quantity are required"})
		return
	}

	listing, err := h.repo.Create(c.Request.Context(), farmerID, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create listing"})
		return
	}

	c.JSON(http.StatusCreated, listing)
}

// MyListings godoc
// @Summary      List own listings
// @Tags         market
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Listing
// @Failure      500  {object}  gin.H
// @Router       /market/my-listings [get]
func (h *Handler) MyListings(c *gin.Context) {
	farmerID, ok := auth.GetFarmerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	listings, err := h.repo.ListByFarmer(c.Request.Context(), farmerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch listings"})
		return
	}

	c.JSON(http.StatusOK, listings)
}
