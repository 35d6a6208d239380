package test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseLifecycle(t *testing.T) {
	te, teardown := NewTestEnv(t, "course_lifecycle")
	defer teardown()

	require.NoError(t, te.Signup("Tia Teach", "tia@example.com", "gopher123"))
	require.NoError(t, te.Login("tia@example.com", "gopher123"))

	code, err := te.postJSON(http.MethodPost, "/users/instructor", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, code)

	require.NoError(t, te.Logout())
	require.NoError(t, te.Login("tia@example.com", "gopher123"))

	var crs struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	code, err = te.postJSON(http.MethodPost, "/courses", map[string]any{
		"title":       "Go From Scratch",
		"description": "Everything from syntax to concurrency.",
		"category":    "Programming",
		"pricing":     "Free",
		"level":       "Beginner",
	}, &crs)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, code)
	require.NotEmpty(t, crs.Slug)

	// Unpublished courses stay out of the public listing.
	var listed []struct {
		ID string `json:"id"`
	}
	code, err = te.getJSON("/courses", &listed)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, listed)

	var chapter struct {
		ID string `json:"id"`
	}
	code, err = te.postJSON(http.MethodPost, "/courses/"+crs.ID+"/chapters", map[string]any{
		"title": "Getting Started",
	}, &chapter)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, code)

	code, err = te.postJSON(http.MethodPost, "/courses/"+crs.ID+"/chapters/"+chapter.ID+"/contents", map[string]any{
		"title": "Installing Go",
		"class": "Lecture",
		"embedUrl": "https://videos.example.com/installing-go",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, code)

	code, err = te.postJSON(http.MethodPost, "/courses/"+crs.ID+"/publish", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, code)

	code, err = te.getJSON("/courses", &listed)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, listed, 1)
	assert.Equal(t, crs.ID, listed[0].ID)

	require.NoError(t, te.Logout())
	require.NoError(t, te.Signup("Sam Student", "sam@example.com", "gopher123"))

	// Course detail is public through the slug.
	var shown struct {
		ID      string `json:"id"`
		Pricing string `json:"pricing"`
	}
	code, err = te.getJSON("/courses/"+crs.Slug, &shown)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, crs.ID, shown.ID)
	assert.Equal(t, "Free", shown.Pricing)

	code, err = te.postJSON(http.MethodPut, "/cart/items", map[string]string{
		"courseId": crs.ID,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, code)

	code, err = te.postJSON(http.MethodPost, "/courses/"+crs.ID+"/enroll", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, code)

	ids := enrolledCourses(t, te)
	assert.Equal(t, []string{crs.ID}, ids)

	// Enrolling makes the course unaddable to the cart.
	code, err = te.postJSON(http.MethodPut, "/cart/items", map[string]string{
		"courseId": crs.ID,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestCurriculumRedaction(t *testing.T) {
	te, teardown := NewTestEnv(t, "course_redaction")
	defer teardown()

	require.NoError(t, te.Signup("Tia Teach", "tia2@example.com", "gopher123"))
	require.NoError(t, te.Login("tia2@example.com", "gopher123"))

	code, err := te.postJSON(http.MethodPost, "/users/instructor", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, code)

	require.NoError(t, te.Logout())
	require.NoError(t, te.Login("tia2@example.com", "gopher123"))

	var crs struct {
		ID string `json:"id"`
	}
	code, err = te.postJSON(http.MethodPost, "/courses", map[string]any{
		"title":       "Locked Lessons",
		"description": "Paid content behind enrollment.",
		"category":    "Programming",
		"pricing":     "Paid",
		"currency":    "IDR",
		"price":       50000,
		"level":       "Intermediate",
	}, &crs)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, code)

	var chapter struct {
		ID string `json:"id"`
	}
	code, err = te.postJSON(http.MethodPost, "/courses/"+crs.ID+"/chapters", map[string]any{
		"title": "Secrets",
	}, &chapter)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, code)

	code, err = te.postJSON(http.MethodPost, "/courses/"+crs.ID+"/chapters/"+chapter.ID+"/contents", map[string]any{
		"title": "The Lesson",
		"class": "Lecture",
		"embedUrl": "https://videos.example.com/the-lesson",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, code)

	code, err = te.postJSON(http.MethodPost, "/courses/"+crs.ID+"/publish", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, code)

	type content struct {
		Title string `json:"title"`
		Embed string `json:"embedUrl"`
	}
	type chapterView struct {
		Title    string    `json:"title"`
		Contents []content `json:"contents"`
	}

	// The owner sees the embeds.
	var curriculum []chapterView
	code, err = te.getJSON("/courses/"+crs.ID+"/curriculum", &curriculum)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, curriculum, 1)
	require.Len(t, curriculum[0].Contents, 1)
	assert.NotEmpty(t, curriculum[0].Contents[0].Embed)

	// A visitor sees the outline with the embeds stripped.
	require.NoError(t, te.Logout())

	code, err = te.getJSON("/courses/"+crs.ID+"/curriculum", &curriculum)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, curriculum, 1)
	require.Len(t, curriculum[0].Contents, 1)
	assert.Equal(t, "The Lesson", curriculum[0].Contents[0].Title)
	assert.Empty(t, curriculum[0].Contents[0].Embed)
}
