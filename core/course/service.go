package course

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tshola/ngoma/core"
	"github.com/tshola/ngoma/core/collection"
	"github.com/tshola/ngoma/core/member"
)

var (
	// errors
	ErrNotFound        = errors.New("course not found")
	ErrLessonNotFound  = errors.New("lesson not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrNotAllowed      = errors.New("not enough rights")
)

type Service struct {
	courses  *collection.Manager[Course]
	lessons  *collection.Manager[Lesson]
	comments *collection.Manager[Comment]
	log      core.Logger
}

func NewService(
	courses *collection.Manager[Course],
	lessons *collection.Manager[Lesson],
	comments *collection.Manager[Comment],
	log core.Logger,
) *Service {
	return &Service{courses: courses, lessons: lessons, comments: comments, log: log}
}

// Load reconciles the three collections against the remote store. An empty
// remote collection is not a failure; whatever is cached locally stays.
func (svc *Service) Load(ctx context.Context) error {
	for _, load := range []func(context.Context) error{
		svc.courses.Load, svc.lessons.Load, svc.comments.Load,
	} {
		if err := load(ctx); err != nil && !errors.Is(err, collection.ErrCloudEmpty) {
			return err
		}
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	if err := nc.Validate(); err != nil {
		return Course{}, err
	}
	now := time.Now().UTC()
	crs := Course{
		Key:         uuid.New().String(),
		Title:       nc.Title,
		Description: nc.Description,
		Category:    nc.Category,
		TrainerKey:  nc.TrainerKey,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := svc.courses.Create(ctx, crs); err != nil {
		return Course{}, err
	}
	return crs, nil
}

func (svc *Service) Get(key string) (Course, error) {
	crs, err := svc.courses.Get(key)
	if errors.Is(err, collection.ErrNotFound) {
		return Course{}, ErrNotFound
	}
	return crs, err
}

// Catalog returns published courses, most recently created first.
func (svc *Service) Catalog() []Course {
	return svc.courses.Sorted(
		func(c Course) bool { return c.IsPublished },
		func(a, b Course) bool { return a.CreatedAt.After(b.CreatedAt) },
	)
}

// QueryAll returns every course, published or not, most recent first.
func (svc *Service) QueryAll() []Course {
	return svc.courses.Sorted(nil, func(a, b Course) bool { return a.CreatedAt.After(b.CreatedAt) })
}

func (svc *Service) SetPublished(ctx context.Context, key string, published bool, by *member.Member) (Course, error) {
	if !by.Can(member.CapPublishCourses) {
		return Course{}, ErrNotAllowed
	}
	crs, err := svc.courses.Update(ctx, key, func(c Course) Course {
		c.IsPublished = published
		c.UpdatedAt = time.Now().UTC()
		return c
	})
	if errors.Is(err, collection.ErrNotFound) {
		return Course{}, ErrNotFound
	}
	return crs, err
}

// Delete hard deletes a course and cascades over its lessons and comments.
func (svc *Service) Delete(ctx context.Context, key string, by *member.Member) error {
	if !by.Can(member.CapModerateCourses) {
		return ErrNotAllowed
	}
	if err := svc.courses.Delete(ctx, key); err != nil {
		if errors.Is(err, collection.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	for _, l := range svc.lessons.Query(func(l Lesson) bool { return l.CourseKey == key }) {
		_ = svc.lessons.Delete(ctx, l.Key)
	}
	for _, c := range svc.comments.Query(func(c Comment) bool { return c.CourseKey == key }) {
		_ = svc.comments.Delete(ctx, c.Key)
	}
	return nil
}

func (svc *Service) AddLesson(ctx context.Context, nl NewLesson) (Lesson, error) {
	if err := nl.Validate(); err != nil {
		return Lesson{}, err
	}
	if _, err := svc.Get(nl.CourseKey); err != nil {
		return Lesson{}, err
	}
	now := time.Now().UTC()
	lsn := Lesson{
		Key:         uuid.New().String(),
		CourseKey:   nl.CourseKey,
		Title:       nl.Title,
		VideoURL:    nl.VideoURL,
		DurationSec: nl.DurationSec,
		OrderIndex:  nl.OrderIndex,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := svc.lessons.Create(ctx, lsn); err != nil {
		return Lesson{}, err
	}
	return lsn, nil
}

// Lessons returns a course's lessons by their explicit order index, ascending.
func (svc *Service) Lessons(courseKey string) []Lesson {
	return svc.lessons.Sorted(
		func(l Lesson) bool { return l.CourseKey == courseKey },
		func(a, b Lesson) bool { return a.OrderIndex < b.OrderIndex },
	)
}

func (svc *Service) AddComment(ctx context.Context, nc NewComment) (Comment, error) {
	if err := nc.Validate(); err != nil {
		return Comment{}, err
	}
	if _, err := svc.Get(nc.CourseKey); err != nil {
		return Comment{}, err
	}
	now := time.Now().UTC()
	cmt := Comment{
		Key:       uuid.New().String(),
		CourseKey: nc.CourseKey,
		AuthorKey: nc.AuthorKey,
		Body:      nc.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := svc.comments.Create(ctx, cmt); err != nil {
		return Comment{}, err
	}
	return cmt, nil
}

// Comments returns a course's visible comments, most recent first.
func (svc *Service) Comments(courseKey string) []Comment {
	return svc.comments.Sorted(
		func(c Comment) bool { return c.CourseKey == courseKey && !c.Deleted },
		func(a, b Comment) bool { return a.CreatedAt.After(b.CreatedAt) },
	)
}

// ModerateComment soft deletes a comment; the record stays so the key is never
// reused and moderation is auditable.
func (svc *Service) ModerateComment(ctx context.Context, key string, by *member.Member) error {
	if !by.Can(member.CapModerateCourses) {
		return ErrNotAllowed
	}
	_, err := svc.comments.Update(ctx, key, func(c Comment) Comment {
		c.Deleted = true
		c.UpdatedAt = time.Now().UTC()
		return c
	})
	if errors.Is(err, collection.ErrNotFound) {
		return ErrCommentNotFound
	}
	return err
}

// LastError exposes the first non-nil remote sync failure across the three
// collections.
func (svc *Service) LastError() error {
	for _, err := range []error{svc.courses.LastError(), svc.lessons.LastError(), svc.comments.LastError()} {
		if err != nil {
			return err
		}
	}
	return nil
}
