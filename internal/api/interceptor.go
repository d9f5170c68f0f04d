package api

import (
	"context"
)

// HandlerFunc represents the next handler in an interceptor chain.
type HandlerFunc func(ctx context.Context, req any) (res any, err error)

// UnaryInterceptor wraps handler execution.
//
// The handler parameter is the next handler in the chain. Interceptors can:
//   - Inspect/modify the request before calling handler
//   - Inspect/modify the response after calling handler
//   - Short-circuit by returning an error without calling handler
//   - Add values to context using context.WithValue
type UnaryInterceptor func(ctx context.Context, req any, info *RouteInfo, handler HandlerFunc) (res any, err error)

// chainInterceptors combines multiple interceptors into a single one.
// The first interceptor in the slice is the outer-most one (runs first).
func chainInterceptors(interceptors []UnaryInterceptor) UnaryInterceptor {
	if len(interceptors) == 0 {
		return nil
	}
	if len(interceptors) == 1 {
		return interceptors[0]
	}
	return func(ctx context.Context, req any, info *RouteInfo, handler HandlerFunc) (any, error) {
		// Chain: i[0] -> i[1] -> ... -> handler
		chain := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			current := interceptors[i]
			next := chain
			chain = func(ctx context.Context, req any) (any, error) {
				return current(ctx, req, info, next)
			}
		}
		return chain(ctx, req)
	}
}
