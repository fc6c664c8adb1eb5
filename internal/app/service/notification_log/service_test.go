package notification_log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/courseshop/internal/models"
	"github.com/fatflowers/courseshop/internal/platform/db/dbtest"
)

func TestSave_PersistsAsynchronously(t *testing.T) {
	gdb := dbtest.New(t)
	svc := New(gdb, zap.NewNop().Sugar())
	ctx, cancel := context.WithCancel(context.Background())

	svc.Save(ctx, &models.WebhookDeliveryLog{Channel: "billing", EventID: "evt_1", EventType: "account.updated", Status: models.WebhookDeliveryStatusReceived})
	svc.Save(ctx, nil)
	cancel()
	svc.Save(ctx, &models.WebhookDeliveryLog{Channel: "billing", EventID: "evt_1", EventType: "account.updated", Status: models.WebhookDeliveryStatusHandled})
	svc.Wait()

	rows, err := svc.ListByEvent(context.Background(), "evt_1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		require.NotEmpty(t, r.ID)
	}
	statuses := []models.WebhookDeliveryStatus{rows[0].Status, rows[1].Status}
	require.ElementsMatch(t, []models.WebhookDeliveryStatus{models.WebhookDeliveryStatusReceived, models.WebhookDeliveryStatusHandled}, statuses)
}
