package cart

import (
	"errors"
	"net/http"
	"strconv"

	"farmfuzion/internal/auth"
	"farmfuzion/internal/catalog"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// AddItem godoc
// @Summary      Add listing to cart
// @Description  Adds or merges a line in the buyer's active cart for the listing's seller.
// @Tags         cart
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      AddItemRequest  true  "Item"
// @Success      201   {object}  AddItemResponse
// @Failure      400   {object}  gin.H
// @Failure      404   {object}  gin.H
// @Failure      500   {object}  gin.H
// @Router       /cart/items [post]
func (h *Handler) AddItem(c *gin.Context) {
	buyerID, ok := auth.GetFarmerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "listing_id and positive quantity are required"})
		return
	}

	cart, item, err := h.svc.AddItem(c.Request.Context(), buyerID, req.ListingID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrListingNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
		case errors.Is(err, catalog.ErrInsufficientStock):
			c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient stock"})
		case errors.Is(err, ErrListingNotSellable), errors.Is(err, ErrOwnListing):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add item"})
		}
		return
	}

	c.JSON(http.StatusCreated, AddItemResponse{CartID: cart.ID, ItemID: item.ID})
}

// RemoveItem godoc
// @Summary      Remove cart item
// @Tags         cart
// @Security     BearerAuth
// @Produce      json
// @Param        itemID  path      int  true  "Cart item ID"
// @Success      200     {object}  gin.H
// @Failure      404     {object}  gin.H
// @Failure      500     {object}  gin.H
// @Router       /cart/items/{itemID} [delete]
func (h *Handler) RemoveItem(c *gin.Context) {
	buyerID, ok := auth.GetFarmerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	itemID, err := strconv.Atoi(c.Param("itemID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item ID"})
		return
	}

	if err := h.svc.RemoveItem(c.Request.Context(), buyerID, itemID); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "cart item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "item removed"})
}

// ViewCarts godoc
// @Summary      View active carts
// @Description  Returns the buyer's active carts with computed line and cart totals.
// @Tags         cart
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  gin.H
// @Failure      500  {object}  gin.H
// @Router       /cart [get]
func (h *Handler) ViewCarts(c *gin.Context) {
	buyerID, ok := auth.GetFarmerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	views, err := h.svc.ViewCarts(c.Request.Context(), buyerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load carts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"carts": views})
}
