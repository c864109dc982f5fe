package principal

import "time"

// Principal is the management view of a user account: password hash never
// leaves the repository layer here.
type Principal struct {
	ID           int64
	TenantID     *int64
	Username     string
	IsActive     bool
	IsSuperAdmin bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
