package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tshola/ngoma/core/collection"
	"github.com/tshola/ngoma/core/course"
)

// seed pushes the built-in sample catalog to the remote store so a fresh
// deployment has something to show.
func (cli *commandLine) seed() error {
	ctx := context.Background()

	var n int
	for _, crs := range course.SampleCourses() {
		data, err := json.Marshal(crs)
		if err != nil {
			return err
		}
		if err := cli.remote.Put(ctx, course.Collection, collection.Document{Key: crs.Key, Data: data}); err != nil {
			return err
		}
		n++
	}
	for _, lsn := range course.SampleLessons() {
		data, err := json.Marshal(lsn)
		if err != nil {
			return err
		}
		if err := cli.remote.Put(ctx, course.LessonCollection, collection.Document{Key: lsn.Key, Data: data}); err != nil {
			return err
		}
		n++
	}
	fmt.Printf("seeded %d documents\n", n)
	return nil
}
