package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/santosoadam/coursemarket/api/web"
	"github.com/santosoadam/coursemarket/api/weberr"
	"github.com/santosoadam/coursemarket/rate"
)

// RateLimit rejects clients exceeding the per-address budget. Meant for the
// auth endpoints, which are the only unauthenticated write surface.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}

			if !lim.Check(host) {
				err := errors.New("rate limit exceeded")
				return weberr.NewError(err, err.Error(), http.StatusTooManyRequests)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
