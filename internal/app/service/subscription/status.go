package subscription

import (
	"errors"
	"fmt"

	"github.com/fatflowers/courseshop/pkg/types"
)

var ErrUnmappedStatus = errors.New("unmapped provider subscription status")

// statusTable must cover every types.ProviderSubscriptionStatuses value.
var statusTable = map[types.ProviderSubscriptionStatus]types.SubscriptionStatus{
	types.ProviderStatusIncomplete:        types.SubscriptionStatusUnpaid,
	types.ProviderStatusIncompleteExpired: types.SubscriptionStatusCanceled,
	types.ProviderStatusTrialing:          types.SubscriptionStatusTrialing,
	types.ProviderStatusActive:            types.SubscriptionStatusActive,
	types.ProviderStatusPastDue:           types.SubscriptionStatusPastDue,
	types.ProviderStatusCanceled:          types.SubscriptionStatusCanceled,
	types.ProviderStatusUnpaid:            types.SubscriptionStatusUnpaid,
	types.ProviderStatusPaused:            types.SubscriptionStatusPastDue,
}

// MapStatus translates a provider status. Unknown statuses are an error.
func MapStatus(s types.ProviderSubscriptionStatus) (types.SubscriptionStatus, error) {
	st, ok := statusTable[s]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnmappedStatus, s)
	}
	return st, nil
}
