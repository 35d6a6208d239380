package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/santosoadam/coursemarket/api/web"
	"github.com/santosoadam/coursemarket/api/weberr"
	"github.com/santosoadam/coursemarket/core/claims"
	"github.com/santosoadam/coursemarket/core/instructor"
	"github.com/santosoadam/coursemarket/database"
	"github.com/santosoadam/coursemarket/validate"
)

func HandleShowCurrent(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		usr, err := Fetch(ctx, db, clm.UserID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching user[%s]: %w", clm.UserID, err)
		}

		return web.Respond(ctx, w, usr, http.StatusOK)
	}
}

func HandleUpdateProfile(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var up ProfileUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(up); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if err := UpdateProfile(ctx, db, clm.UserID, up); err != nil {
			return fmt.Errorf("updating profile of user[%s]: %w", clm.UserID, err)
		}

		usr, err := Fetch(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("fetching updated user[%s]: %w", clm.UserID, err)
		}

		return web.Respond(ctx, w, usr, http.StatusOK)
	}
}

// HandleBecomeInstructor upgrades the current user and opens an empty
// instructor profile for earnings and payouts.
func HandleBecomeInstructor(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		if _, err := instructor.FetchByUser(ctx, db, clm.UserID); err == nil {
			err := errors.New("already an instructor")
			return weberr.NewError(err, err.Error(), http.StatusConflict)
		} else if !errors.Is(err, instructor.ErrNotFound) {
			return fmt.Errorf("checking instructor profile: %w", err)
		}

		now := time.Now().UTC()
		ins := instructor.Instructor{
			ID:        validate.GenerateID(),
			UserID:    clm.UserID,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			if err := instructor.Create(ctx, tx, ins); err != nil {
				return fmt.Errorf("creating instructor profile: %w", err)
			}

			if err := UpdateRole(ctx, tx, clm.UserID, claims.RoleInstructor); err != nil {
				return fmt.Errorf("promoting user: %w", err)
			}

			return nil
		})

		if err != nil {
			return fmt.Errorf("upgrading user[%s] to instructor: %w", clm.UserID, err)
		}

		return web.Respond(ctx, w, ins, http.StatusCreated)
	}
}
