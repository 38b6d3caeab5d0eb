package appfs

import (
	"io/fs"
	"testing"
)

func TestFS(t *testing.T) {
	files := []string{
		"migrations/00001_create_users.sql",
		"migrations/00005_add_certificates_notified_status.sql",
		"templates/email/_base.gohtml",
		"templates/email/_base.txt",
		"templates/email/task_dead_letter.gohtml",
		"templates/email/task_dead_letter.txt",
	}
	for _, name := range files {
		t.Run(name, func(t *testing.T) {
			if _, err := fs.Stat(FS, name); err != nil {
				t.Errorf("Stat(%q) error = %v", name, err)
			}
		})
	}
}
