package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/PROCLCGIT/pandora-sub000/internal/plugins/audit"
	"github.com/PROCLCGIT/pandora-sub000/internal/plugins/media"
	"github.com/PROCLCGIT/pandora-sub000/internal/plugins/products"
)

// healthTimeout bounds each dependency ping of the health check.
const healthTimeout = 2 * time.Second

// RegisterRoutes wires the plugins together and registers every route.
// This is the single place where routes are aggregated.
func (a *App) RegisterRoutes() {
	e := a.Echo
	mcfg := a.Config.Media

	e.GET("/healthz", a.health)

	// Stored media is served from the storage root under the public prefix
	// so every emitted URL dereferences.
	if prefix := strings.TrimSuffix(mcfg.PublicURLPrefix, "/"); strings.HasPrefix(prefix, "/") {
		e.Static(prefix, mcfg.StorageRoot)
	}

	// --- Plugins ---
	productRepo := products.NewProductRepository(a.DB)

	auditService := audit.NewAuditService(audit.NewAuditRepository(a.DB))
	auditHandler := audit.NewHandler(auditService, productRepo)

	store := media.NewStore(mcfg.StorageRoot)
	var cache media.PathCache = media.NopPathCache{}
	if mcfg.ScanRepair {
		cache = media.NewRedisPathCache(a.Redis, mcfg.URLCacheTTL)
	}
	resolver := media.NewResolver(store, mcfg.PublicURLPrefix, mcfg.ScanRepair, cache)
	mediaRepo := media.NewMediaRepository(a.DB)
	mediaService := media.NewMediaService(mcfg, mediaRepo, productRepo, store, resolver, cache, auditService)
	mediaHandler := media.NewHandler(mediaService)

	a.janitor = media.NewJanitor(mediaRepo, store, mcfg.JanitorGrace)

	// --- API Routes ---
	api := e.Group("/api/v1/productos")
	media.RegisterRoutes(api, mediaHandler, mcfg.ImagePolicy.MaxBytes, mcfg.DocumentPolicy.MaxBytes)
	audit.RegisterRoutes(api, auditHandler)
}

// health pings MariaDB and, when configured, Redis.
func (a *App) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	status := map[string]string{"status": "ok", "database": "ok"}
	code := http.StatusOK

	if err := a.DB.PingContext(ctx); err != nil {
		status["database"] = "unavailable"
		status["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}
	if a.Redis != nil {
		status["redis"] = "ok"
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			// The cache is optional; reads fall back to scanning.
			status["redis"] = "unavailable"
			status["status"] = "degraded"
		}
	}
	return c.JSON(code, status)
}
