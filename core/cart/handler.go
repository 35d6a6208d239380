package cart

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
	"github.com/santosoadam/coursemarket/core/course"
	"github.com/santosoadam/coursemarket/core/enrollment"
	"github.com/santosoadam/coursemarket/validate"
)

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		items, err := FetchItems(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("fetching cart: %w", err)
		}

		courses := make([]course.Course, 0, len(items))
		for _, it := range items {
			c, err := course.Fetch(ctx, db, it.CourseID)
			if err != nil {
				return fmt.Errorf("fetching course[%s]: %w", it.CourseID, err)
			}
			courses = append(courses, c)
		}

		return web.Respond(ctx, w, courses, http.StatusOK)
	}
}

func HandleCreateItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var in ItemNew
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		crs, err := course.Fetch(ctx, db, in.CourseID)
		if err != nil {
			if errors.Is(err, course.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching course[%s]: %w", in.CourseID, err)
		}

		enrolled, err := enrollment.Exists(ctx, db, clm.UserID, crs.ID)
		if err != nil {
			return fmt.Errorf("checking enrollment: %w", err)
		}
		if enrolled {
			err := errors.New("already enrolled in this course")
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		it := Item{
			UserID:    clm.UserID,
			CourseID:  crs.ID,
			CreatedAt: time.Now().UTC(),
		}

		if err := AddItem(ctx, db, it); err != nil {
			return fmt.Errorf("adding course[%s] to cart: %w", crs.ID, err)
		}

		return web.Respond(ctx, w, it, http.StatusCreated)
	}
}

func HandleDeleteItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		if err := RemoveItem(ctx, db, clm.UserID, courseID); err != nil {
			return fmt.Errorf("removing course[%s] from cart: %w", courseID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		if err := Delete(ctx, db, clm.UserID); err != nil {
			return fmt.Errorf("flushing cart: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
