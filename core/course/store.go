package course

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrNotFound       = errors.New("course not found")
	ErrTitleTaken     = errors.New("a course with this title already exists")
	ErrChapterMissing = errors.New("chapter not found")
	ErrContentMissing = errors.New("content not found")
)

const uniqueViolation = "23505"

func Create(ctx context.Context, e sqlx.ExtContext, crs Course) error {
	const q = `
	INSERT INTO courses
		(course_id, instructor_id, title, slug, subtitle, description, category,
		 language, level, pricing, currency, price, cover_url, published, created_at, updated_at)
	VALUES
		(:course_id, :instructor_id, :title, :slug, :subtitle, :description, :category,
		 :language, :level, :pricing, :currency, :price, :cover_url, :published, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, e, q, crs); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrTitleTaken
		}
		return fmt.Errorf("inserting course: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, e sqlx.ExtContext, id string) (Course, error) {
	const q = `SELECT * FROM courses WHERE course_id = $1`
	return fetchOne(ctx, e, q, id)
}

func FetchBySlug(ctx context.Context, e sqlx.ExtContext, slug string) (Course, error) {
	const q = `SELECT * FROM courses WHERE slug = $1`
	return fetchOne(ctx, e, q, slug)
}

func fetchOne(ctx context.Context, e sqlx.ExtContext, q string, arg any) (Course, error) {
	var crs Course
	if err := sqlx.GetContext(ctx, e, &crs, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Course{}, ErrNotFound
		}
		return Course{}, fmt.Errorf("selecting course: %w", err)
	}
	return crs, nil
}

func List(ctx context.Context, e sqlx.ExtContext, category string) ([]Course, error) {
	q := `SELECT * FROM courses WHERE published ORDER BY created_at DESC`
	args := []any{}
	if category != "" {
		q = `SELECT * FROM courses WHERE published AND category = $1 ORDER BY created_at DESC`
		args = append(args, category)
	}

	courses := []Course{}
	if err := sqlx.SelectContext(ctx, e, &courses, q, args...); err != nil {
		return nil, fmt.Errorf("selecting courses: %w", err)
	}
	return courses, nil
}

func ListByInstructor(ctx context.Context, e sqlx.ExtContext, instructorID string) ([]Course, error) {
	const q = `SELECT * FROM courses WHERE instructor_id = $1 ORDER BY created_at DESC`

	courses := []Course{}
	if err := sqlx.SelectContext(ctx, e, &courses, q, instructorID); err != nil {
		return nil, fmt.Errorf("selecting instructor courses: %w", err)
	}
	return courses, nil
}

func ListEnrolled(ctx context.Context, e sqlx.ExtContext, userID string) ([]Course, error) {
	const q = `
	SELECT c.* FROM courses c
	JOIN enrollments en ON en.course_id = c.course_id
	WHERE en.user_id = $1
	ORDER BY en.enrolled_at DESC`

	courses := []Course{}
	if err := sqlx.SelectContext(ctx, e, &courses, q, userID); err != nil {
		return nil, fmt.Errorf("selecting enrolled courses: %w", err)
	}
	return courses, nil
}

func Update(ctx context.Context, e sqlx.ExtContext, id string, up CourseUp) error {
	const q = `
	UPDATE courses SET
		title       = COALESCE($2, title),
		slug        = COALESCE($3, slug),
		subtitle    = COALESCE($4, subtitle),
		description = COALESCE($5, description),
		category    = COALESCE($6, category),
		language    = COALESCE($7, language),
		level       = COALESCE($8, level),
		pricing     = COALESCE($9, pricing),
		currency    = COALESCE($10, currency),
		price       = COALESCE($11, price),
		cover_url   = COALESCE($12, cover_url),
		updated_at  = now(),
		version     = version + 1
	WHERE course_id = $1`

	var slug *string
	if up.Title != nil {
		s := Slugify(*up.Title)
		slug = &s
	}

	_, err := e.ExecContext(ctx, q, id,
		up.Title, slug, up.Subtitle, up.Description, up.Category,
		up.Language, up.Level, up.Pricing, up.Currency, up.Price, up.CoverURL)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrTitleTaken
		}
		return fmt.Errorf("updating course: %w", err)
	}
	return nil
}

func SetPublished(ctx context.Context, e sqlx.ExtContext, id string, published bool) error {
	const q = `UPDATE courses SET published = $2, updated_at = now(), version = version + 1 WHERE course_id = $1`

	if _, err := e.ExecContext(ctx, q, id, published); err != nil {
		return fmt.Errorf("publishing course: %w", err)
	}
	return nil
}

func CreateChapter(ctx context.Context, e sqlx.ExtContext, ch Chapter) error {
	const q = `
	INSERT INTO chapters (chapter_id, course_id, index, title, created_at, updated_at)
	VALUES (:chapter_id, :course_id, :index, :title, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, e, q, ch); err != nil {
		return fmt.Errorf("inserting chapter: %w", err)
	}
	return nil
}

func UpdateChapter(ctx context.Context, e sqlx.ExtContext, target EditTarget, up ChapterNew) error {
	const q = `
	UPDATE chapters SET index = $3, title = $4, updated_at = now()
	WHERE chapter_id = $1 AND course_id = $2`

	res, err := e.ExecContext(ctx, q, target.ChapterID, target.CourseID, up.Index, up.Title)
	if err != nil {
		return fmt.Errorf("updating chapter: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrChapterMissing
	}
	return nil
}

func DeleteChapter(ctx context.Context, e sqlx.ExtContext, target EditTarget) error {
	const q = `DELETE FROM chapters WHERE chapter_id = $1 AND course_id = $2`

	res, err := e.ExecContext(ctx, q, target.ChapterID, target.CourseID)
	if err != nil {
		return fmt.Errorf("deleting chapter: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrChapterMissing
	}
	return nil
}

func CreateContent(ctx context.Context, e sqlx.ExtContext, ct Content) error {
	const q = `
	INSERT INTO contents
		(content_id, chapter_id, index, title, class, embed_url, text_content, duration, created_at, updated_at)
	VALUES
		(:content_id, :chapter_id, :index, :title, :class, :embed_url, :text_content, :duration, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, e, q, ct); err != nil {
		return fmt.Errorf("inserting content: %w", err)
	}
	return nil
}

func UpdateContent(ctx context.Context, e sqlx.ExtContext, target EditTarget, up ContentNew) error {
	const q = `
	UPDATE contents SET
		index = $3, title = $4, class = $5, embed_url = $6, text_content = $7, duration = $8, updated_at = now()
	WHERE content_id = $1 AND chapter_id = $2`

	res, err := e.ExecContext(ctx, q, target.ContentID, target.ChapterID,
		up.Index, up.Title, up.Class, up.EmbedURL, up.TextContent, up.Duration)
	if err != nil {
		return fmt.Errorf("updating content: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrContentMissing
	}
	return nil
}

func DeleteContent(ctx context.Context, e sqlx.ExtContext, target EditTarget) error {
	const q = `DELETE FROM contents WHERE content_id = $1 AND chapter_id = $2`

	res, err := e.ExecContext(ctx, q, target.ContentID, target.ChapterID)
	if err != nil {
		return fmt.Errorf("deleting content: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrContentMissing
	}
	return nil
}

// FetchCurriculum returns the ordered chapters of a course with their
// content items attached.
func FetchCurriculum(ctx context.Context, e sqlx.ExtContext, courseID string) ([]Chapter, error) {
	const qc = `SELECT * FROM chapters WHERE course_id = $1 ORDER BY index`

	chapters := []Chapter{}
	if err := sqlx.SelectContext(ctx, e, &chapters, qc, courseID); err != nil {
		return nil, fmt.Errorf("selecting chapters: %w", err)
	}
	if len(chapters) == 0 {
		return chapters, nil
	}

	ids := make([]string, 0, len(chapters))
	for _, ch := range chapters {
		ids = append(ids, ch.ID)
	}

	const qt = `SELECT * FROM contents WHERE chapter_id = ANY($1) ORDER BY index`

	contents := []Content{}
	if err := sqlx.SelectContext(ctx, e, &contents, qt, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("selecting contents: %w", err)
	}

	byChapter := make(map[string][]Content, len(chapters))
	for _, ct := range contents {
		byChapter[ct.ChapterID] = append(byChapter[ct.ChapterID], ct)
	}
	for i := range chapters {
		chapters[i].Contents = byChapter[chapters[i].ID]
		if chapters[i].Contents == nil {
			chapters[i].Contents = []Content{}
		}
	}
	return chapters, nil
}
