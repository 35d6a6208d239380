package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/santosoadam/coursemarket/api/web"
	"github.com/santosoadam/coursemarket/api/weberr"
	"github.com/santosoadam/coursemarket/core/claims"
	"github.com/santosoadam/coursemarket/core/user"
	"github.com/santosoadam/coursemarket/validate"
)

type SignupNew struct {
	Name     string `json:"name" validate:"required,min=2,max=80"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginNew struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func HandleSignup(db *sqlx.DB, sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var sn SignupNew
		if err := web.Decode(w, r, &sn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(sn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(sn.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}

		now := time.Now().UTC()
		hs := string(hash)
		usr := user.User{
			ID:           validate.GenerateID(),
			Name:         sn.Name,
			Email:        sn.Email,
			PasswordHash: &hs,
			AvatarURL:    "/avatar.svg",
			Role:         claims.RoleSubscriber,
			AuthProvider: user.ProviderEmail,
			Interests:    []string{},
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := user.Create(ctx, db, usr); err != nil {
			if errors.Is(err, user.ErrAlreadyExists) {
				return weberr.NewError(err, err.Error(), http.StatusConflict)
			}
			return fmt.Errorf("creating user: %w", err)
		}

		if err := login(ctx, sm, usr.ID, usr.Role); err != nil {
			return fmt.Errorf("binding session: %w", err)
		}

		return web.Respond(ctx, w, usr, http.StatusCreated)
	}
}

func HandleLogin(db *sqlx.DB, sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var ln LoginNew
		if err := web.Decode(w, r, &ln); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(ln); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		usr, err := user.FetchByEmail(ctx, db, ln.Email)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return weberr.NotAuthorized(errors.New("wrong credentials"))
			}
			return fmt.Errorf("fetching user by email: %w", err)
		}

		if usr.PasswordHash == nil {
			return weberr.NotAuthorized(errors.New("account uses an external login provider"))
		}

		if err := bcrypt.CompareHashAndPassword([]byte(*usr.PasswordHash), []byte(ln.Password)); err != nil {
			return weberr.NotAuthorized(errors.New("wrong credentials"))
		}

		if err := login(ctx, sm, usr.ID, usr.Role); err != nil {
			return fmt.Errorf("binding session: %w", err)
		}

		return web.Respond(ctx, w, usr, http.StatusOK)
	}
}

func HandleLogout(sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := sm.Destroy(ctx); err != nil {
			return fmt.Errorf("destroying session: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
