package types

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// PaymentMetadata keys embedded into the provider checkout session and read
// back by settlement.
const (
	MetadataPaymentID = "payment_id"
	MetadataTenantID  = "tenant_id"
	MetadataUserID    = "user_id"
	MetadataCourseIDs = "course_ids"
)
