package course

import (
	"time"

	"github.com/tshola/ngoma/core"
)

// Collection names
const (
	Collection        = "courses"
	LessonCollection  = "lessons"
	CommentCollection = "comments"
)

type Course struct {
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"` // eg. "afrobeat", "salsa", "hiphop"
	TrainerKey  string    `json:"trainer_key"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c Course) RecordKey() string { return c.Key }

type Lesson struct {
	Key         string    `json:"key"`
	CourseKey   string    `json:"course_key"`
	Title       string    `json:"title"`
	VideoURL    string    `json:"video_url"`
	DurationSec int       `json:"duration_sec"`
	OrderIndex  int       `json:"order_index"` // position within the course
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (l Lesson) RecordKey() string { return l.Key }

// Comment is soft-deleted on moderation so the record (and its key) survives.
type Comment struct {
	Key       string    `json:"key"`
	CourseKey string    `json:"course_key"`
	AuthorKey string    `json:"author_key"`
	Body      string    `json:"body"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c Comment) RecordKey() string { return c.Key }

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Category    string `json:"category" validate:"required"`
	TrainerKey  string `json:"trainer_key" validate:"required"`
}

func (nc *NewCourse) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Category = core.CleanString(nc.Category, true /* lower */)
	return core.Validate.Struct(nc)
}

// NewLesson contains information needed to add a Lesson to a Course.
type NewLesson struct {
	CourseKey   string `json:"course_key" validate:"required"`
	Title       string `json:"title" validate:"required"`
	VideoURL    string `json:"video_url" validate:"required,url"`
	DurationSec int    `json:"duration_sec" validate:"gt=0"`
	OrderIndex  int    `json:"order_index" validate:"gte=0"`
}

func (nl *NewLesson) Validate() error {
	nl.Title = core.CleanString(nl.Title)
	return core.Validate.Struct(nl)
}

// NewComment contains information needed to comment on a Course.
type NewComment struct {
	CourseKey string `json:"course_key" validate:"required"`
	AuthorKey string `json:"author_key" validate:"required"`
	Body      string `json:"body" validate:"required,max=2000"`
}

func (nc *NewComment) Validate() error {
	nc.Body = core.CleanString(nc.Body)
	return core.Validate.Struct(nc)
}
