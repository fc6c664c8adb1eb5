package notification_log

import (
	"context"
	"sync"

	"github.com/fatflowers/courseshop/internal/models"
	"github.com/fatflowers/courseshop/pkg/logctx"
	"github.com/fatflowers/courseshop/pkg/tool"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
	wg  sync.WaitGroup
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Save asynchronously persists a webhook delivery log. Nil input is ignored.
func (s *Service) Save(ctx context.Context, entry *models.WebhookDeliveryLog) {
	if entry == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = tool.GenerateUUIDV7()
	}
	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.db.WithContext(bg).Create(entry).Error; err != nil {
			logctx.FromCtx(bg, s.log).Errorw("webhook_delivery_log_save_failed",
				"event_id", entry.EventID, "status", entry.Status, "error", err)
		}
	}()
}

// Wait blocks until every pending Save has finished.
func (s *Service) Wait() { s.wg.Wait() }

// ListByEvent returns the deliveries recorded for one provider event, oldest first.
func (s *Service) ListByEvent(ctx context.Context, eventID string) ([]*models.WebhookDeliveryLog, error) {
	var out []*models.WebhookDeliveryLog
	err := s.db.WithContext(ctx).Where("event_id = ?", eventID).Order("created_at, id").Find(&out).Error
	return out, err
}

var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, s *Service) {
		lc.Append(fx.Hook{OnStop: func(context.Context) error {
			s.Wait()
			return nil
		}})
	}),
)
