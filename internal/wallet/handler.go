package wallet

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"farmfuzion/internal/identity"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc      Service
	resolver *identity.Resolver
}

func NewHandler(svc Service, resolver *identity.Resolver) *Handler {
	return &Handler{svc: svc, resolver: resolver}
}

func (h *Handler) resolveOrAbort(c *gin.Context, identifier string) (int, bool) {
	key, err := h.resolver.Resolve(c.Request.Context(), identifier)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidIdentifier):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account identifier"})
		case errors.Is(err, identity.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve account"})
		}
		return 0, false
	}
	return key, true
}

// GetBalance godoc
// @Summary      Wallet balance
// @Description  Returns the cached balance for the resolved account.
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Param        account  path      string  true  "Account identifier (numeric or UUID)"
// @Success      200      {object}  gin.H
// @Failure      404      {object}  gin.H
// @Failure      500      {object}  gin.H
// @Router       /wallet/{account}/balance [get]
func (h *Handler) GetBalance(c *gin.Context) {
	farmerID, ok := h.resolveOrAbort(c, c.Param("account"))
	if !ok {
		return
	}

	balance, err := h.svc.GetBalance(c.Request.Context(), farmerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance_cents": balance})
}

// ListTransactions godoc
// @Summary      Wallet history
// @Description  Newest-first transaction history, filterable by type and time range.
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Param        account  path      string  true   "Account identifier"
// @Param        type     query     string  false  "Transaction type"
// @Param        from     query     string  false  "Start datetime (RFC3339)"
// @Param        to       query     string  false  "End datetime (RFC3339)"
// @Success      200      {object}  gin.H
// @Failure      400      {object}  gin.H
// @Failure      500      {object}  gin.H
// @Router       /wallet/{account}/transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	farmerID, ok := h.resolveOrAbort(c, c.Param("account"))
	if !ok {
		return
	}

	filter := TxFilter{Type: c.Query("type")}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	if fromStr := c.Query("from"); fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from format, use RFC3339"})
			return
		}
		filter.From = &from
	}
	if toStr := c.Query("to"); toStr != "" {
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to format, use RFC3339"})
			return
		}
		filter.To = &to
	}

	txs, err := h.svc.ListTransactions(c.Request.Context(), farmerID, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

// TopUp godoc
// @Summary      Top up wallet
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      TopUpRequest  true  "Top-up"
// @Success      200   {object}  gin.H
// @Failure      400   {object}  gin.H
// @Failure      500   {object}  gin.H
// @Router       /wallet/topup [post]
func (h *Handler) TopUp(c *gin.Context) {
	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount_cents must be positive and account/method are required"})
		return
	}

	farmerID, ok := h.resolveOrAbort(c, req.Account)
	if !ok {
		return
	}

	t, err := h.svc.TopUp(c.Request.Context(), farmerID, req.AmountCents, req.Method, req.IdempotencyKey)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount_cents must be positive"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to top up wallet"})
		return
	}

	resp := gin.H{"transaction": t}
	if req.Method == "mpesa" && req.PhoneNumber != "" {
		resp["phone_number"] = req.PhoneNumber
	}
	c.JSON(http.StatusOK, resp)
}

// Withdraw godoc
// @Summary      Withdraw funds
// @Description  Reserves the amount immediately; completion is confirmed asynchronously.
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      WithdrawRequest  true  "Withdrawal"
// @Success      200   {object}  gin.H
// @Failure      400   {object}  gin.H
// @Failure      500   {object}  gin.H
// @Router       /wallet/withdraw [post]
func (h *Handler) Withdraw(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount_cents must be positive and account/destination/method are required"})
		return
	}

	farmerID, ok := h.resolveOrAbort(c, req.Account)
	if !ok {
		return
	}

	t, err := h.svc.Withdraw(c.Request.Context(), farmerID, req.AmountCents, req.Destination, req.Method)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount_cents must be positive"})
		case errors.Is(err, ErrInsufficientFunds):
			c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient funds"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to withdraw"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": t})
}

// Transfer godoc
// @Summary      Transfer funds
// @Description  confirm=false returns a non-mutating quote; confirm=true executes.
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      TransferRequest  true  "Transfer"
// @Success      200   {object}  gin.H
// @Failure      400   {object}  gin.H
// @Failure      404   {object}  gin.H
// @Failure      500   {object}  gin.H
// @Router       /wallet/transfer [post]
func (h *Handler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount_cents must be positive and account/destination are required"})
		return
	}

	fromID, ok := h.resolveOrAbort(c, req.Account)
	if !ok {
		return
	}
	toID, ok := h.resolveOrAbort(c, req.Destination)
	if !ok {
		return
	}

	if !req.Confirm {
		quote, err := h.svc.TransferPreview(c.Request.Context(), fromID, toID, req.AmountCents)
		if err != nil {
			if errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrInvalidAmount) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare transfer"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"preview": true, "quote": quote})
		return
	}

	t, err := h.svc.TransferExecute(c.Request.Context(), fromID, toID, req.AmountCents)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to execute transfer"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"executed": true, "transaction": t})
}
