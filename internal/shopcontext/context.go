package shopcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// ShopContextKey is the request context key for the active shop ID.
type ShopContextKey struct{}

// UserContextKey is the request context key for the acting user ID.
type UserContextKey struct{}

// WithShopID stores the shop ID in the context.
func WithShopID(ctx context.Context, shopID int64) context.Context {
	return context.WithValue(ctx, ShopContextKey{}, shopID)
}

// WithUserID stores the acting user ID in the context.
func WithUserID(ctx context.Context, userID snowflake.ID) context.Context {
	return context.WithValue(ctx, UserContextKey{}, userID)
}

// ShopIDFromContext returns the shop ID from context, if set.
func ShopIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	return parseID(ctx.Value(ShopContextKey{}))
}

// UserIDFromContext returns the acting user ID from context, if set.
func UserIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	return parseID(ctx.Value(UserContextKey{}))
}

func parseID(value any) (snowflake.ID, bool) {
	switch typed := value.(type) {
	case int64:
		return snowflake.ID(typed), true
	case snowflake.ID:
		return typed, true
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil {
			return parsed, true
		}
	}
	return 0, false
}
