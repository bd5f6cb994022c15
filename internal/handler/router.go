package handler

import (
	"context"

	"marketplace-be/internal/address"
	"marketplace-be/internal/auth"
	"marketplace-be/internal/metrics"
	"marketplace-be/internal/middleware"
	"marketplace-be/internal/order"
	"marketplace-be/internal/product"
	"marketplace-be/internal/user"
	"marketplace-be/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type Services struct {
	Users     user.Service
	Products  product.Service
	Addresses address.Service
	Orders    order.Service
}

type RouterConfig struct {
	Tokens      *auth.TokenManager
	Revocations *auth.Revocations
	Metrics     *metrics.Metrics
	Limiter     *middleware.RateLimiter
	CORSOrigin  string
	// SecureCookie marks the access_token cookie Secure. Off for local http.
	SecureCookie bool
	// Ready backs /health. Nil means always ready.
	Ready func(ctx context.Context) error
}

type Handler struct {
	svc          Services
	tokens       *auth.TokenManager
	secureCookie bool
	ready        func(ctx context.Context) error
}

func NewRouter(cfg RouterConfig, svc Services) *gin.Engine {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		validation.RegisterRules(v)
	}

	h := &Handler{
		svc:          svc,
		tokens:       cfg.Tokens,
		secureCookie: cfg.SecureCookie,
		ready:        cfg.Ready,
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}

	r := gin.New()
	r.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Metrics(cfg.Metrics),
	)
	if cfg.CORSOrigin != "" {
		r.Use(middleware.CORS(cfg.CORSOrigin))
	}

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))

	authn := middleware.Authenticate(cfg.Tokens, cfg.Revocations)
	buyerOnly := middleware.RequireRole(auth.RoleBuyer)
	sellerOnly := middleware.RequireRole(auth.RoleSeller)

	var limit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.Limiter != nil {
		limit = cfg.Limiter.Middleware()
	}

	authGroup := r.Group("/auth", limit)
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/logout", authn, h.Logout)
	}

	products := r.Group("/products", authn, limit)
	{
		products.GET("", h.ListProducts)
		products.GET("/:id", h.GetProduct)
	}

	seller := r.Group("/seller", authn, limit, sellerOnly)
	{
		seller.GET("", h.ListMyProducts)
		seller.POST("", h.CreateProduct)
		seller.PUT("/:id", h.UpdateProduct)
		seller.DELETE("/:id", h.DeleteProduct)

		seller.GET("/orders", h.ListSellerOrders)
		seller.PUT("/orderStatus/:orderId", h.UpdateItemStatus)
	}

	addresses := r.Group("/address", authn, limit)
	{
		addresses.GET("", h.ListAddresses)
		addresses.POST("", h.CreateAddress)
		addresses.PUT("/:id", h.UpdateAddress)
		addresses.DELETE("/:id", h.DeleteAddress)
	}

	orders := r.Group("/orders", authn, limit, buyerOnly)
	{
		orders.POST("", h.CreateOrder)
		orders.GET("", h.ListOrders)
		orders.PUT("/cancel/:id", h.CancelOrder)
		orders.PUT("/:id", h.EditOrder)
		orders.GET("/:id/history", h.OrderHistory)
	}

	return r
}
