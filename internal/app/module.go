package app

import (
	"time"

	"github.com/fatflowers/courseshop/internal/app/api/server"
	"github.com/fatflowers/courseshop/internal/app/service/access"
	"github.com/fatflowers/courseshop/internal/app/service/checkout"
	"github.com/fatflowers/courseshop/internal/app/service/connect"
	notificationlog "github.com/fatflowers/courseshop/internal/app/service/notification_log"
	"github.com/fatflowers/courseshop/internal/app/service/settlement"
	"github.com/fatflowers/courseshop/internal/app/service/statistics"
	"github.com/fatflowers/courseshop/internal/app/service/subscription"
	"github.com/fatflowers/courseshop/internal/app/service/tenantdir"
	"github.com/fatflowers/courseshop/internal/app/service/webhook"
	"github.com/fatflowers/courseshop/internal/platform/cache"
	"github.com/fatflowers/courseshop/internal/platform/db"
	stripeclient "github.com/fatflowers/courseshop/internal/platform/stripe"
	"github.com/fatflowers/courseshop/pkg/config"
	"github.com/fatflowers/courseshop/pkg/logger"

	"go.uber.org/fx"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

// Platform is everything below the service layer; the CLI reuses it.
var Platform = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	cache.Module,
)

var Module = fx.Options(
	Platform,
	stripeclient.Module,
	server.Module,
	tenantdir.Module,
	access.Module,
	checkout.Module,
	settlement.Module,
	subscription.Module,
	connect.Module,
	notificationlog.Module,
	webhook.Module,
	statistics.Module,
)
