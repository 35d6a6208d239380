package course

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
	"github.com/santosoadam/coursemarket/core/enrollment"
	"github.com/santosoadam/coursemarket/core/instructor"
	"github.com/santosoadam/coursemarket/validate"
)

// ownedCourse authorizes the current user as the instructor of the course.
func ownedCourse(ctx context.Context, db *sqlx.DB, courseID string) (Course, error) {
	clm, err := claims.Get(ctx)
	if err != nil {
		return Course{}, weberr.NotAuthorized(errors.New("user not authenticated"))
	}

	crs, err := Fetch(ctx, db, courseID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Course{}, weberr.NotFound(err)
		}
		return Course{}, fmt.Errorf("fetching course[%s]: %w", courseID, err)
	}

	if claims.IsAdmin(ctx) {
		return crs, nil
	}

	ins, err := instructor.FetchByUser(ctx, db, clm.UserID)
	if err != nil || ins.ID != crs.InstructorID {
		return Course{}, weberr.Forbidden(errors.New("course belongs to another instructor"))
	}
	return crs, nil
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var cn CourseNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		ins, err := instructor.FetchByUser(ctx, db, clm.UserID)
		if err != nil {
			return weberr.Forbidden(errors.New("only instructors can create courses"))
		}

		now := time.Now().UTC()
		crs := Course{
			ID:           validate.GenerateID(),
			InstructorID: ins.ID,
			Title:        cn.Title,
			Slug:         Slugify(cn.Title),
			Subtitle:     cn.Subtitle,
			Description:  cn.Description,
			Category:     cn.Category,
			Language:     cn.Language,
			Level:        cn.Level,
			Pricing:      cn.Pricing,
			Currency:     cn.Currency,
			Price:        cn.Price,
			CoverURL:     cn.CoverURL,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if crs.Language == "" {
			crs.Language = "en"
		}
		if crs.Level == "" {
			crs.Level = "All Levels"
		}
		if crs.CoverURL == "" {
			crs.CoverURL = "/course_cover.svg"
		}
		if crs.Pricing == PricingFree {
			crs.Price = 0
			crs.Currency = "IDR"
		}

		if err := Create(ctx, db, crs); err != nil {
			if errors.Is(err, ErrTitleTaken) {
				return weberr.NewError(err, err.Error(), http.StatusConflict)
			}
			return fmt.Errorf("creating course: %w", err)
		}

		return web.Respond(ctx, w, crs, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		crs, err := ownedCourse(ctx, db, courseID)
		if err != nil {
			return err
		}

		var up CourseUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(up); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if err := Update(ctx, db, crs.ID, up); err != nil {
			if errors.Is(err, ErrTitleTaken) {
				return weberr.NewError(err, err.Error(), http.StatusConflict)
			}
			return fmt.Errorf("updating course[%s]: %w", crs.ID, err)
		}

		updated, err := Fetch(ctx, db, crs.ID)
		if err != nil {
			return fmt.Errorf("fetching updated course[%s]: %w", crs.ID, err)
		}

		return web.Respond(ctx, w, updated, http.StatusOK)
	}
}

func HandlePublish(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		crs, err := ownedCourse(ctx, db, courseID)
		if err != nil {
			return err
		}

		if err := SetPublished(ctx, db, crs.ID, true); err != nil {
			return fmt.Errorf("publishing course[%s]: %w", crs.ID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courses, err := List(ctx, db, web.QueryParam(r, "category"))
		if err != nil {
			return fmt.Errorf("listing courses: %w", err)
		}

		return web.Respond(ctx, w, courses, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		slug := web.Param(r, "slug")

		crs, err := FetchBySlug(ctx, db, slug)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching course[%s]: %w", slug, err)
		}

		if !crs.Published {
			if _, err := ownedCourse(ctx, db, crs.ID); err != nil {
				return weberr.NotFound(errors.New("course not published"))
			}
		}

		return web.Respond(ctx, w, crs, http.StatusOK)
	}
}

// HandleListOwned lists the courses the current user is enrolled in.
func HandleListOwned(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courses, err := ListEnrolled(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("listing enrolled courses: %w", err)
		}

		return web.Respond(ctx, w, courses, http.StatusOK)
	}
}

// HandleListTaught lists the courses published or drafted by the current
// instructor.
func HandleListTaught(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		ins, err := instructor.FetchByUser(ctx, db, clm.UserID)
		if err != nil {
			return weberr.Forbidden(errors.New("not an instructor"))
		}

		courses, err := ListByInstructor(ctx, db, ins.ID)
		if err != nil {
			return fmt.Errorf("listing taught courses: %w", err)
		}

		return web.Respond(ctx, w, courses, http.StatusOK)
	}
}

// HandleEnrollFree grants access to a free course. Paid courses must go
// through the payment flow.
func HandleEnrollFree(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		crs, err := Fetch(ctx, db, courseID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching course[%s]: %w", courseID, err)
		}

		if !crs.Published {
			return weberr.NotFound(errors.New("course not published"))
		}

		if crs.Pricing != PricingFree {
			err := errors.New("this course must be purchased")
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		enr := enrollment.Enrollment{
			UserID:     clm.UserID,
			CourseID:   crs.ID,
			EnrolledAt: time.Now().UTC(),
		}

		if err := enrollment.Create(ctx, db, enr); err != nil {
			return fmt.Errorf("enrolling user[%s] in free course[%s]: %w", clm.UserID, crs.ID, err)
		}

		return web.Respond(ctx, w, enr, http.StatusCreated)
	}
}
