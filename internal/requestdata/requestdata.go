package requestdata

import (
	"context"

	"github.com/google/uuid"
)

type tenantKeyType struct{}
type staffKeyType struct{}

var tenantKey = tenantKeyType{}
var staffKey = staffKeyType{}

// TenantContext is the resolved identity of a public SDK submission. It is
// populated by the API key middleware and threaded explicitly through every
// core call; handlers must never reach persistence without one.
type TenantContext struct {
	OrganizationID   uuid.UUID
	OrganizationName string
	ApplicationID    uuid.UUID
	ApplicationName  string
	APIKeyID         uuid.UUID
}

func WithTenant(ctx context.Context, tc *TenantContext) context.Context {
	return context.WithValue(ctx, tenantKey, tc)
}

func GetTenant(ctx context.Context) *TenantContext {
	if tc, ok := ctx.Value(tenantKey).(*TenantContext); ok {
		return tc
	}
	return nil
}

// StaffData identifies an authenticated dashboard user on the internal surface.
type StaffData struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Email          string
}

func WithStaff(ctx context.Context, sd *StaffData) context.Context {
	return context.WithValue(ctx, staffKey, sd)
}

func GetStaff(ctx context.Context) *StaffData {
	if sd, ok := ctx.Value(staffKey).(*StaffData); ok {
		return sd
	}
	return nil
}
