// Package invcommon provides context management utilities for the inventory
// service: the acting user and the active change plan travel on the request
// context and are consumed by the db and core packages.
package invcommon

import (
	"context"

	"github.com/google/uuid"
)

type ctxKeyType string

const (
	ctxUserIdKey     ctxKeyType = "InventoryUserId"
	ctxChangePlanKey ctxKeyType = "InventoryChangePlanId"
)

// SetUserIdInContext sets the acting user's identifier in the context. The
// identifier is opaque; it is used only for attribution on archival records
// and in logs.
func SetUserIdInContext(ctx context.Context, userId string) context.Context {
	return context.WithValue(ctx, ctxUserIdKey, userId)
}

// UserIdFromContext retrieves the acting user's identifier, or "".
func UserIdFromContext(ctx context.Context) string {
	if userId, ok := ctx.Value(ctxUserIdKey).(string); ok {
		return userId
	}
	return ""
}

// SetChangePlanInContext marks the given change plan as active for the
// request. uuid.Nil means no plan is active.
func SetChangePlanInContext(ctx context.Context, planId uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxChangePlanKey, planId)
}

// ChangePlanFromContext retrieves the active change plan, or uuid.Nil.
func ChangePlanFromContext(ctx context.Context) uuid.UUID {
	if planId, ok := ctx.Value(ctxChangePlanKey).(uuid.UUID); ok {
		return planId
	}
	return uuid.Nil
}
