package types

type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
)

// ConnectStatus is the payout capability state of a tenant's connected account.
type ConnectStatus string

const (
	ConnectStatusNotStarted ConnectStatus = "not_started"
	ConnectStatusPending    ConnectStatus = "pending"
	ConnectStatusActive     ConnectStatus = "active"
	ConnectStatusRestricted ConnectStatus = "restricted"
)

type UserRole string

const (
	UserRoleSuperadmin UserRole = "superadmin"
	UserRoleOwner      UserRole = "owner"
	UserRoleAdmin      UserRole = "admin"
	UserRoleStudent    UserRole = "student"
)

type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
	CourseStatusArchived  CourseStatus = "archived"
)
