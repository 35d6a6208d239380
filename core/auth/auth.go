package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/santosoadam/coursemarket/api/web"
	"github.com/santosoadam/coursemarket/api/weberr"
	"github.com/santosoadam/coursemarket/core/claims"
)

const (
	sessionUserID = "user_id"
	sessionRole   = "role"
)

// LoadAndSave runs every request through the session manager and promotes a
// logged-in session to claims in the context.
func LoadAndSave(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var err error

			hh := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c := r.Context()
				if id := sm.GetString(c, sessionUserID); id != "" {
					c = claims.Set(c, claims.Claims{
						UserID: id,
						Role:   sm.GetString(c, sessionRole),
					})
				}
				err = handler(c, w, r)
			})

			sm.LoadAndSave(hh).ServeHTTP(w, r.WithContext(ctx))
			return err
		}
		return h
	}
	return m
}

func Authenticate(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if _, err := claims.Get(ctx); err != nil {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func Instructor(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if _, err := claims.Get(ctx); err != nil {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}
			if !claims.IsInstructor(ctx) {
				return weberr.Forbidden(errors.New("instructor role required"))
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func Admin(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if _, err := claims.Get(ctx); err != nil {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}
			if !claims.IsAdmin(ctx) {
				return weberr.Forbidden(errors.New("admin role required"))
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// login binds the session to the user after a successful credential check.
func login(ctx context.Context, sm *scs.SessionManager, userID string, role string) error {
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}
	sm.Put(ctx, sessionUserID, userID)
	sm.Put(ctx, sessionRole, role)
	return nil
}
