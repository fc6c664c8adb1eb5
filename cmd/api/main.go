package main

// @title           Courseshop Backend API
// @version         1.0
// @description     Multi-tenant course storefront payments: checkout, settlement, plan subscriptions and payout onboarding.
// @termsOfService  http://example.com/terms/

// @contact.name   API Support
// @contact.url    http://www.example.com/support
// @contact.email  support@example.com

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8888
// @BasePath  /

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization

import (
	"context"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/fatflowers/courseshop/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	a := fx.New(
		app.Module,
		fx.WithLogger(func(l *zap.SugaredLogger) fxevent.Logger {
			zl := &fxevent.ZapLogger{Logger: l.Desugar().Named("fx")}
			zl.UseLogLevel(zap.DebugLevel)
			return zl
		}),
	)
	// The configured logger may not exist yet if wiring failed.
	fallback := zap.NewExample().Sugar()

	startCtx, cancel := context.WithTimeout(context.Background(), app.DefaultStartTimeout)
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		fallback.Errorw("courseshop failed to start", "err", err)
		return 1
	}

	sig := <-a.Wait()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
	defer cancelStop()
	if err := a.Stop(stopCtx); err != nil {
		fallback.Errorw("courseshop failed to stop cleanly", "signal", sig.Signal, "err", err)
		return 1
	}
	return sig.ExitCode
}
