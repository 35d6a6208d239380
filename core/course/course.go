package course

import (
	"strings"
	"time"
	"unicode"
)

const (
	PricingFree = "Free"
	PricingPaid = "Paid"
)

const (
	ClassLecture = "Lecture"
	ClassQuiz    = "Quiz"
	ClassText    = "Text"
)

type Course struct {
	ID           string    `json:"id" db:"course_id"`
	InstructorID string    `json:"instructorId" db:"instructor_id"`
	Title        string    `json:"title" db:"title"`
	Slug         string    `json:"slug" db:"slug"`
	Subtitle     string    `json:"subtitle" db:"subtitle"`
	Description  string    `json:"description" db:"description"`
	Category     string    `json:"category" db:"category"`
	Language     string    `json:"language" db:"language"`
	Level        string    `json:"level" db:"level"`
	Pricing      string    `json:"pricing" db:"pricing"`
	Currency     string    `json:"currency" db:"currency"`
	Price        int64     `json:"price" db:"price"`
	CoverURL     string    `json:"coverUrl" db:"cover_url"`
	Published    bool      `json:"published" db:"published"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
	Version      int       `json:"-" db:"version"`
}

type CourseNew struct {
	Title       string `json:"title" validate:"required,min=3,max=100"`
	Subtitle    string `json:"subtitle" validate:"omitempty,min=10,max=200"`
	Description string `json:"description"`
	Category    string `json:"category" validate:"required"`
	Language    string `json:"language" validate:"omitempty,bcp47_language_tag"`
	Level       string `json:"level" validate:"omitempty,oneof=Beginner Intermediate Expert 'All Levels'"`
	Pricing     string `json:"pricing" validate:"required,oneof=Free Paid"`
	Currency    string `json:"currency" validate:"required_if=Pricing Paid,omitempty,oneof=IDR USD"`
	Price       int64  `json:"price" validate:"required_if=Pricing Paid,omitempty,gte=0"`
	CoverURL    string `json:"coverUrl" validate:"omitempty,url"`
}

type CourseUp struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=100"`
	Subtitle    *string `json:"subtitle" validate:"omitempty,min=10,max=200"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Language    *string `json:"language" validate:"omitempty,bcp47_language_tag"`
	Level       *string `json:"level" validate:"omitempty,oneof=Beginner Intermediate Expert 'All Levels'"`
	Pricing     *string `json:"pricing" validate:"omitempty,oneof=Free Paid"`
	Currency    *string `json:"currency" validate:"omitempty,oneof=IDR USD"`
	Price       *int64  `json:"price" validate:"omitempty,gte=0"`
	CoverURL    *string `json:"coverUrl" validate:"omitempty,url"`
}

type Chapter struct {
	ID        string    `json:"id" db:"chapter_id"`
	CourseID  string    `json:"courseId" db:"course_id"`
	Index     int       `json:"index" db:"index"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Contents []Content `json:"contents" db:"-"`
}

type ChapterNew struct {
	Index int    `json:"index" validate:"gte=0"`
	Title string `json:"title" validate:"required,min=3,max=80"`
}

type Content struct {
	ID          string    `json:"id" db:"content_id"`
	ChapterID   string    `json:"chapterId" db:"chapter_id"`
	Index       int       `json:"index" db:"index"`
	Title       string    `json:"title" db:"title"`
	Class       string    `json:"class" db:"class"`
	EmbedURL    string    `json:"embedUrl,omitempty" db:"embed_url"`
	TextContent string    `json:"textContent,omitempty" db:"text_content"`
	Duration    string    `json:"duration,omitempty" db:"duration"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

type ContentNew struct {
	Index       int    `json:"index" validate:"gte=0"`
	Title       string `json:"title" validate:"required,min=3,max=80"`
	Class       string `json:"class" validate:"required,oneof=Lecture Quiz Text"`
	EmbedURL    string `json:"embedUrl" validate:"omitempty,url"`
	TextContent string `json:"textContent"`
	Duration    string `json:"duration"`
}

// EditTarget pins down exactly which part of a curriculum a write addresses.
// Handlers build it from the request path so there is no ambient notion of a
// "currently edited" chapter or lecture.
type EditTarget struct {
	CourseID  string
	ChapterID string
	ContentID string
}

func Slugify(title string) string {
	var b strings.Builder
	prevDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		case !prevDash:
			b.WriteByte('-')
			prevDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
