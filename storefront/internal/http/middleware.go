package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const CartIDHeader = "X-Cart-ID"

type ctxKey int

const cartIDKey ctxKey = iota

// CartIDMiddleware binds the request to the cart named by X-Cart-ID. A
// request without one starts a new cart; the id is echoed back so the
// client can keep using it.
func CartIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cartID := strings.TrimSpace(r.Header.Get(CartIDHeader))
		if cartID == "" {
			cartID = uuid.NewString()
		}

		w.Header().Set(CartIDHeader, cartID)
		ctx := context.WithValue(r.Context(), cartIDKey, cartID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getCartIDFromContext(ctx context.Context) string {
	if cartID, ok := ctx.Value(cartIDKey).(string); ok {
		return cartID
	}
	return ""
}
