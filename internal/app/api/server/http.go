package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fatflowers/courseshop/docs"
	"github.com/fatflowers/courseshop/internal/app/api/handlers"
	"github.com/fatflowers/courseshop/internal/app/service/access"
	"github.com/fatflowers/courseshop/internal/app/service/checkout"
	"github.com/fatflowers/courseshop/internal/app/service/statistics"
	subsvc "github.com/fatflowers/courseshop/internal/app/service/subscription"
	"github.com/fatflowers/courseshop/internal/app/service/tenantdir"
	"github.com/fatflowers/courseshop/internal/app/service/webhook"
	cfgpkg "github.com/fatflowers/courseshop/pkg/config"
	"github.com/fatflowers/courseshop/pkg/types"

	mw "github.com/fatflowers/courseshop/internal/app/api/middleware"

	metrics "github.com/fatflowers/courseshop/pkg/metrics"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

type routeParams struct {
	fx.In

	Lc       fx.Lifecycle
	Log      *zap.SugaredLogger
	Cfg      *cfgpkg.Config
	DB       *gorm.DB
	Tenants  *tenantdir.Service
	Access   *access.Service
	Checkout *checkout.Service
	Subs     *subsvc.Service
	Stats    *statistics.Service
	Webhooks *webhook.Service
}

func registerRoutes(r *gin.Engine, p routeParams) {
	log := p.Log
	// Prometheus metrics
	if p.Cfg != nil && p.Cfg.MetricsAddr != "" {
		prom := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			Subsystem: "http",
			Logger:    log,
		})
		prom.Use(r)
		msrv := prom.Server(p.Cfg.MetricsAddr)
		p.Lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					if err := msrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Errorw("metrics_server_failed", "addr", msrv.Addr, "err", err)
					}
				}()
				log.Infow("metrics started", "addr", msrv.Addr)
				return nil
			},
			OnStop: msrv.Shutdown,
		})
	}

	var pinger handlers.Pinger
	if sqlDB, err := p.DB.DB(); err == nil {
		pinger = sqlDB
	}

	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))
	handlers.RegisterHealthRoutes(pub, pinger)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Provider callbacks authenticate by signature, not by tenant or bearer token
	hooks := r.Group("/api/v1/webhooks")
	hooks.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))
	handlers.RegisterWebhookRoutes(hooks, p.Webhooks, log)

	apiV1 := r.Group("/api/v1")
	apiV1.Use(
		mw.RequestLoggerMiddleware(log),
		mw.AccessLogMiddleware(log),
		mw.TenantMiddleware(p.Tenants, log),
		mw.AuthMiddleware(p.Access, log),
	)

	handlers.RegisterCheckoutRoutes(apiV1.Group("/", mw.RequireTenant()), p.Checkout, log)

	tenant := apiV1.Group("/tenant",
		mw.RequireTenant(),
		mw.RequireRole(types.UserRoleOwner, types.UserRoleSuperadmin),
		mw.RequireTenantScope(log),
	)
	handlers.RegisterTenantRoutes(tenant, p.Checkout, p.Subs, p.Stats, log)

	admin := apiV1.Group("/admin", mw.RequireRole(types.UserRoleSuperadmin))
	handlers.RegisterAdminRoutes(admin, p.Tenants, p.Access, p.Stats, log)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
