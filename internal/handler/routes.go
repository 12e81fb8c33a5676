package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/flicky/storefront/internal/middleware"
	"github.com/flicky/storefront/internal/model"
)

type Handlers struct {
	Health  *HealthHandler
	Auth    *AuthHandler
	Product *ProductHandler
	Cart    *CartHandler
	Order   *OrderHandler
	Admin   *AdminHandler
}

// Register mounts every route on r. authn guards everything that needs a session.
func Register(r *gin.Engine, h Handlers, authn gin.HandlerFunc) {
	if h.Health != nil {
		r.GET("/healthz", h.Health.Healthz)
		r.GET("/readyz", h.Health.Readyz)
	}

	v1 := r.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/signup", h.Auth.SignUp)
		auth.POST("/login", h.Auth.SignIn)
		auth.POST("/logout", authn, h.Auth.SignOut)
		auth.GET("/session", authn, h.Auth.Session)

		products := v1.Group("/products")
		products.GET("", h.Product.List)
		products.GET("/:id", h.Product.GetByID)

		cart := v1.Group("/cart", authn)
		cart.GET("", h.Cart.GetCart)
		cart.GET("/events", h.Cart.Events)
		cart.POST("/lines", h.Cart.AddLine)
		cart.PATCH("/lines/:index/quantity", h.Cart.SetQuantity)
		cart.PATCH("/lines/:index/size", h.Cart.ChangeSize)
		cart.DELETE("/lines/:index", h.Cart.RemoveLine)

		orders := v1.Group("/orders", authn)
		orders.POST("", h.Order.PlaceOrder)
		orders.GET("", h.Order.ListMine)
		orders.POST("/:id/cancel", h.Order.Cancel)

		admin := v1.Group("/admin", authn, middleware.RequireRole(model.RoleAdmin))
		admin.GET("/products", h.Admin.ListProducts)
		admin.POST("/products", h.Admin.CreateProduct)
		admin.PUT("/products/:id", h.Admin.UpdateProduct)
		admin.PATCH("/products/:id/stock", h.Admin.UpdateStock)
		admin.DELETE("/products/:id", h.Admin.DeleteProduct)
		admin.GET("/orders", h.Admin.ListOrders)
		admin.PATCH("/orders/:id/status", h.Admin.SetStatus)
		admin.DELETE("/orders/:id", h.Admin.DeleteOrder)
	}
}
