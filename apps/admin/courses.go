package main

import (
	"context"
	"fmt"
)

type courseSyncer interface {
	SyncCourses(ctx context.Context) (int, error)
}

// syncCourses refreshes the stored course overviews from the catalog.
func (cli *commandLine) syncCourses() error {
	n, err := cli.courses.SyncCourses(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("%d course run(s) synced\n", n)
	return nil
}
