package server

import (
	"context"
	"net/http"

	"farmfuzion/internal/auth"
	"farmfuzion/internal/cart"
	"farmfuzion/internal/catalog"
	"farmfuzion/internal/config"
	"farmfuzion/internal/identity"
	"farmfuzion/internal/order"
	"farmfuzion/internal/payout"
	"farmfuzion/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	config *config.Config
	srv    *http.Server
}

func New(db *sqlx.DB, cfg *config.Config, payoutService *payout.Service) *Server {
	router := gin.Default()
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))

	resolver := identity.NewResolver(identity.NewRepository(db))

	walletRepo := wallet.NewRepository(db)
	walletSvc := wallet.NewService(walletRepo, payoutService)
	walletHandler := wallet.NewHandler(walletSvc, resolver)

	catalogRepo := catalog.NewRepository(db)
	catalogHandler := catalog.NewHandler(db)

	cartSvc := cart.NewService(cart.NewRepository(db), catalogRepo)
	cartHandler := cart.NewHandler(cartSvc)

	orderRepo := order.NewRepository(db, catalogRepo)
	orderSvc := order.NewService(orderRepo, walletSvc, cfg.PaymentTimeout)
	orderHandler := order.NewHandler(orderSvc)

	identityHandler := identity.NewHandler(db)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/wallet/:account/balance", walletHandler.GetBalance)
		protected.GET("/wallet/:account/transactions", walletHandler.ListTransactions)
		protected.POST("/wallet/topup", walletHandler.TopUp)
		protected.POST("/wallet/withdraw", walletHandler.Withdraw)
		protected.POST("/wallet/transfer", walletHandler.Transfer)

		protected.GET("/market/listings", catalogHandler.ListListings)
		protected.POST("/market/listings", catalogHandler.CreateListing)
		protected.GET("/market/my-listings", catalogHandler.MyListings)

		protected.POST("/cart/items", cartHandler.AddItem)
		protected.DELETE("/cart/items/:itemID", cartHandler.RemoveItem)
		protected.GET("/cart", cartHandler.ViewCarts)

		protected.POST("/orders/checkout", orderHandler.Checkout)
		protected.POST("/orders/:orderID/pay", orderHandler.PayOrder)
		protected.PATCH("/orders/:orderID/status", orderHandler.UpdateStatus)
		protected.GET("/orders", orderHandler.ListOrders)
		protected.GET("/orders/sales", orderHandler.ListSales)
	}

	adminMiddleware := auth.RequireRole("admin")
	admin := router.Group("/admin")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.POST("/identity-mappings", identityHandler.CreateMapping)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())

	return &Server{
		router: router,
		db:     db,
		config: cfg,
	}
}

func (s *Server) Start(port string) error {
	s.srv = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
