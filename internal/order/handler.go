package order

import (
	"errors"
	"net/http"
	"strconv"

	"farmfuzion/internal/auth"
	"farmfuzion/internal/catalog"
	"farmfuzion/internal/logger"
	"farmfuzion/internal/wallet"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func orderIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("orderID"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return 0, false
	}
	return id, true
}

// Checkout godoc
// @Summary      Convert a cart into an order
// @Description  Atomically reserves stock, snapshots prices and closes the cart.
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CheckoutRequest  true  "Checkout payload"
// @Success      201      {object}  CheckoutResponse
// @Failure      400      {object}  gin.H
// @Failure      404      {object}  gin.H
// @Router       /orders/checkout [post]
func (h *Handler) Checkout(c *gin.Context) {
	buyerID, ok := auth.GetFarmerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, _, err := h.svc.Checkout(c.Request.Context(), buyerID, req.CartID, req.ShippingAddress, req.PaymentMethod)
	if err != nil {
		switch {
		case errors.Is(err, ErrCartNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "cart not found"})
		case errors.Is(err, ErrEmptyCart):
			c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty"})
		case errors.Is(err, catalog.ErrInsufficientStock):
			c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient stock"})
		default:
			logger.Errorf("checkout failed for buyer %d: %v", buyerID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "checkout failed"})
		}
		return
	}

	c.JSON(http.StatusCreated, CheckoutResponse{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		TotalCents:  o.TotalCents,
	})
}

// PayOrder godoc
// @Summary      Pay a pending order from the wallet
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        orderID  path      int  true  "Order ID"
// @Success      200      {object}  gin.H
// @Failure      400      {object}  gin.H
// @Failure      504      {object}  gin.H
// @Router       /orders/{orderID}/pay [post]
func (h *Handler) PayOrder(c *gin.Context) {
	payerID, ok := auth.GetFarmerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	o, err := h.svc.PayOrder(c.Request.Context(), payerID, orderID)
	if err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		case errors.Is(err, ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "not your order"})
		case errors.Is(err, ErrNotPending):
			c.JSON(http.StatusBadRequest, gin.H{"error": "order is not pending payment"})
		case errors.Is(err, wallet.ErrInsufficientFunds):
			c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient funds"})
		case errors.Is(err, ErrPaymentTimeout):
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "payment timed out, please retry"})
		default:
			logger.Errorf("pay order %d failed: %v", orderID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "payment failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment_status": o.PaymentStatus, "order": o})
}

// UpdateStatus godoc
// @Summary      Advance an order's status
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        orderID  path      int                  true  "Order ID"
// @Param        request  body      UpdateStatusRequest  true  "New status"
// @Success      200      {object}  gin.H
// @Failure      403      {object}  gin.H
// @Router       /orders/{orderID}/status [patch]
func (h *Handler) UpdateStatus(c *gin.Context) {
	sellerID, ok := auth.GetFarmerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, err := h.svc.UpdateStatus(c.Request.Context(), sellerID, orderID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		case errors.Is(err, ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "not your sale"})
		case errors.Is(err, ErrInvalidTransition):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status transition"})
		default:
			logger.Errorf("update status for order %d failed: %v", orderID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "status update failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": o})
}

// ListOrders returns the caller's purchases.
func (h *Handler) ListOrders(c *gin.Context) {
	buyerID, ok := auth.GetFarmerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	orders, err := h.svc.ListForBuyer(c.Request.Context(), buyerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// ListSales returns orders where the caller is the seller.
func (h *Handler) ListSales(c *gin.Context) {
	sellerID, ok := auth.GetFarmerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	orders, err := h.svc.ListForSeller(c.Request.Context(), sellerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sales"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
