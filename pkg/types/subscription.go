package types

// SubscriptionStatus is the internal platform-plan subscription state of a tenant.
type SubscriptionStatus string

const (
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid   SubscriptionStatus = "unpaid"
)

// Live reports whether the tenant currently holds (or is about to hold) a plan,
// in which case a new plan checkout is refused.
func (s SubscriptionStatus) Live() bool {
	return s == SubscriptionStatusTrialing || s == SubscriptionStatusActive || s == SubscriptionStatusPastDue
}

type SubscriptionEventType string

const (
	SubscriptionEventCreated SubscriptionEventType = "subscription.created"
	SubscriptionEventUpdated SubscriptionEventType = "subscription.updated"
	SubscriptionEventDeleted SubscriptionEventType = "subscription.deleted"
)

// ProviderSubscriptionStatus is a subscription status as reported by the
// billing provider. Every value must have an entry in the lifecycle mapping.
type ProviderSubscriptionStatus string

const (
	ProviderStatusIncomplete        ProviderSubscriptionStatus = "incomplete"
	ProviderStatusIncompleteExpired ProviderSubscriptionStatus = "incomplete_expired"
	ProviderStatusTrialing          ProviderSubscriptionStatus = "trialing"
	ProviderStatusActive            ProviderSubscriptionStatus = "active"
	ProviderStatusPastDue           ProviderSubscriptionStatus = "past_due"
	ProviderStatusCanceled          ProviderSubscriptionStatus = "canceled"
	ProviderStatusUnpaid            ProviderSubscriptionStatus = "unpaid"
	ProviderStatusPaused            ProviderSubscriptionStatus = "paused"
)

func ProviderSubscriptionStatuses() []ProviderSubscriptionStatus {
	return []ProviderSubscriptionStatus{
		ProviderStatusIncomplete,
		ProviderStatusIncompleteExpired,
		ProviderStatusTrialing,
		ProviderStatusActive,
		ProviderStatusPastDue,
		ProviderStatusCanceled,
		ProviderStatusUnpaid,
		ProviderStatusPaused,
	}
}
