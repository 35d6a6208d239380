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
	"github.com/santosoadam/coursemarket/validate"
)

// editTarget builds the explicit edit target from the request path.
func editTarget(r *http.Request) (EditTarget, error) {
	t := EditTarget{
		CourseID:  web.Param(r, "course_id"),
		ChapterID: web.Param(r, "chapter_id"),
		ContentID: web.Param(r, "content_id"),
	}

	for _, id := range []string{t.CourseID, t.ChapterID, t.ContentID} {
		if id == "" {
			continue
		}
		if err := validate.CheckID(id); err != nil {
			return EditTarget{}, weberr.BadRequest(err)
		}
	}
	return t, nil
}

func HandleCreateChapter(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		target, err := editTarget(r)
		if err != nil {
			return err
		}

		crs, err := ownedCourse(ctx, db, target.CourseID)
		if err != nil {
			return err
		}

		var cn ChapterNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		now := time.Now().UTC()
		ch := Chapter{
			ID:        validate.GenerateID(),
			CourseID:  crs.ID,
			Index:     cn.Index,
			Title:     cn.Title,
			CreatedAt: now,
			UpdatedAt: now,
			Contents:  []Content{},
		}

		if err := CreateChapter(ctx, db, ch); err != nil {
			return fmt.Errorf("creating chapter in course[%s]: %w", crs.ID, err)
		}

		return web.Respond(ctx, w, ch, http.StatusCreated)
	}
}

func HandleUpdateChapter(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		target, err := editTarget(r)
		if err != nil {
			return err
		}

		if _, err := ownedCourse(ctx, db, target.CourseID); err != nil {
			return err
		}

		var up ChapterNew
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(up); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if err := UpdateChapter(ctx, db, target, up); err != nil {
			if errors.Is(err, ErrChapterMissing) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("updating chapter[%s]: %w", target.ChapterID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleDeleteChapter(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		target, err := editTarget(r)
		if err != nil {
			return err
		}

		if _, err := ownedCourse(ctx, db, target.CourseID); err != nil {
			return err
		}

		if err := DeleteChapter(ctx, db, target); err != nil {
			if errors.Is(err, ErrChapterMissing) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("deleting chapter[%s]: %w", target.ChapterID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleCreateContent(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		target, err := editTarget(r)
		if err != nil {
			return err
		}

		if _, err := ownedCourse(ctx, db, target.CourseID); err != nil {
			return err
		}

		var cn ContentNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := checkContent(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		now := time.Now().UTC()
		ct := Content{
			ID:          validate.GenerateID(),
			ChapterID:   target.ChapterID,
			Index:       cn.Index,
			Title:       cn.Title,
			Class:       cn.Class,
			EmbedURL:    cn.EmbedURL,
			TextContent: cn.TextContent,
			Duration:    cn.Duration,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := CreateContent(ctx, db, ct); err != nil {
			return fmt.Errorf("creating content in chapter[%s]: %w", target.ChapterID, err)
		}

		return web.Respond(ctx, w, ct, http.StatusCreated)
	}
}

func HandleUpdateContent(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		target, err := editTarget(r)
		if err != nil {
			return err
		}

		if _, err := ownedCourse(ctx, db, target.CourseID); err != nil {
			return err
		}

		var up ContentNew
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := checkContent(up); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if err := UpdateContent(ctx, db, target, up); err != nil {
			if errors.Is(err, ErrContentMissing) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("updating content[%s]: %w", target.ContentID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleDeleteContent(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		target, err := editTarget(r)
		if err != nil {
			return err
		}

		if _, err := ownedCourse(ctx, db, target.CourseID); err != nil {
			return err
		}

		if err := DeleteContent(ctx, db, target); err != nil {
			if errors.Is(err, ErrContentMissing) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("deleting content[%s]: %w", target.ContentID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleShowCurriculum returns the curriculum of a course. Lecture embeds and
// text bodies are stripped unless the caller is enrolled or teaches the
// course.
func HandleShowCurriculum(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
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

		chapters, err := FetchCurriculum(ctx, db, crs.ID)
		if err != nil {
			return fmt.Errorf("fetching curriculum of course[%s]: %w", crs.ID, err)
		}

		if !canAccessContent(ctx, db, crs) {
			for i := range chapters {
				for j := range chapters[i].Contents {
					chapters[i].Contents[j].EmbedURL = ""
					chapters[i].Contents[j].TextContent = ""
				}
			}
		}

		return web.Respond(ctx, w, chapters, http.StatusOK)
	}
}

func canAccessContent(ctx context.Context, db *sqlx.DB, crs Course) bool {
	clm, err := claims.Get(ctx)
	if err != nil {
		return false
	}

	if _, err := ownedCourse(ctx, db, crs.ID); err == nil {
		return true
	}

	enrolled, err := enrollment.Exists(ctx, db, clm.UserID, crs.ID)
	return err == nil && enrolled
}

func checkContent(cn ContentNew) error {
	if err := validate.Check(cn); err != nil {
		return err
	}

	switch cn.Class {
	case ClassLecture, ClassQuiz:
		if cn.EmbedURL == "" {
			return fmt.Errorf("%s content requires an embed URL", cn.Class)
		}
	case ClassText:
		if cn.TextContent == "" {
			return errors.New("Text content requires a body")
		}
	}
	return nil
}
