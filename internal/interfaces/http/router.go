package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/inventory"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/recipe"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/sales"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	StockUC      *inventory.StockUseCase
	AdjustmentUC *inventory.AdjustmentUseCase
	LowStockUC   *inventory.LowStockUseCase
	SaleUC       *sales.SaleUseCase
	ReceiptUC    *sales.ReceiptUseCase
	RecipeUC     *recipe.UseCase
	JWTSecret    string
	Log          zerolog.Logger
	// Ping verifica el almacenamiento para /health; nil = siempre ok.
	Ping func(ctx context.Context) error
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", healthHandler(deps.Ping))

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Stock
	stockHandler := NewStockHandler(deps.StockUC, deps.AdjustmentUC, deps.LowStockUC, deps.Log)
	stock := protected.Group("/stock")
	stock.Post("/", RequireRole(RoleAdmin, RoleBodeguero), stockHandler.Create)
	stock.Get("/", stockHandler.List)
	stock.Get("/low", RequireRole(RoleAdmin, RoleBodeguero), stockHandler.LowStock)
	stock.Get("/:id", stockHandler.GetByID)
	stock.Get("/:id/adjustments", RequireRole(RoleAdmin, RoleBodeguero), stockHandler.AdjustmentHistory)
	stock.Patch("/:id", RequireRole(RoleAdmin, RoleBodeguero), stockHandler.Update)
	stock.Delete("/:id", RequireRole(RoleAdmin), stockHandler.Delete)

	// Ajustes manuales
	inv := protected.Group("/inventory")
	inv.Post("/adjustments", RequireRole(RoleAdmin, RoleBodeguero), stockHandler.ApplyAdjustment)
	inv.Get("/adjustments", RequireRole(RoleAdmin, RoleBodeguero), stockHandler.ListAdjustments)

	// Ventas
	saleHandler := NewSaleHandler(deps.SaleUC, deps.ReceiptUC, deps.Log)
	salesGroup := protected.Group("/sales")
	salesGroup.Post("/", RequireRole(RoleAdmin, RoleVendedor), saleHandler.Create)
	salesGroup.Get("/", saleHandler.List)
	salesGroup.Get("/:id", saleHandler.GetByID)
	salesGroup.Get("/:id/totals", saleHandler.Totals)
	salesGroup.Get("/:id/receipt", saleHandler.Receipt)
	salesGroup.Post("/:id/cancel", RequireRole(RoleAdmin), saleHandler.Cancel)

	// Recetas
	recipeHandler := NewRecipeHandler(deps.RecipeUC, deps.Log)
	recipes := protected.Group("/recipes")
	recipes.Post("/", RequireRole(RoleAdmin), recipeHandler.Define)
	recipes.Get("/", recipeHandler.List)
	recipes.Get("/:productId", recipeHandler.GetByProduct)
	recipes.Delete("/:id", RequireRole(RoleAdmin), recipeHandler.Deactivate)
}

func healthHandler(ping func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "error": err.Error()})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
