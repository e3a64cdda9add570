package course

import (
	_ "embed"
	"log"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed sample_catalog.yaml
var sampleCatalogYAML []byte

type (
	sampleCourse struct {
		Key         string    `yaml:"key"`
		Title       string    `yaml:"title"`
		Description string    `yaml:"description"`
		Category    string    `yaml:"category"`
		TrainerKey  string    `yaml:"trainer_key"`
		CreatedAt   time.Time `yaml:"created_at"`
	}

	sampleLesson struct {
		Key         string    `yaml:"key"`
		CourseKey   string    `yaml:"course_key"`
		Title       string    `yaml:"title"`
		VideoURL    string    `yaml:"video_url"`
		DurationSec int       `yaml:"duration_sec"`
		OrderIndex  int       `yaml:"order_index"`
		CreatedAt   time.Time `yaml:"created_at"`
	}

	sampleCatalog struct {
		Courses []sampleCourse `yaml:"courses"`
		Lessons []sampleLesson `yaml:"lessons"`
	}
)

var sample sampleCatalog

func init() {
	if err := yaml.Unmarshal(sampleCatalogYAML, &sample); err != nil {
		log.Fatalf("course: decoding sample catalog: %v", err)
	}
}

// SampleCourses is the built-in catalog shown when neither the local cache nor
// the remote store has any course yet (fresh install, offline first run).
func SampleCourses() []Course {
	courses := make([]Course, 0, len(sample.Courses))
	for _, sc := range sample.Courses {
		courses = append(courses, Course{
			Key:         sc.Key,
			Title:       sc.Title,
			Description: sc.Description,
			Category:    sc.Category,
			TrainerKey:  sc.TrainerKey,
			IsPublished: true,
			CreatedAt:   sc.CreatedAt,
			UpdatedAt:   sc.CreatedAt,
		})
	}
	return courses
}

// SampleLessons returns the lessons belonging to the built-in catalog.
func SampleLessons() []Lesson {
	lessons := make([]Lesson, 0, len(sample.Lessons))
	for _, sl := range sample.Lessons {
		lessons = append(lessons, Lesson{
			Key:         sl.Key,
			CourseKey:   sl.CourseKey,
			Title:       sl.Title,
			VideoURL:    sl.VideoURL,
			DurationSec: sl.DurationSec,
			OrderIndex:  sl.OrderIndex,
			CreatedAt:   sl.CreatedAt,
			UpdatedAt:   sl.CreatedAt,
		})
	}
	return lessons
}
