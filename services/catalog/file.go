package catalogsvc

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/masomo-credentials/core/program"
)

// FileCatalog reads program definitions from a YAML file, for deployments without a catalog service.
type FileCatalog struct {
	path string
}

type catalogFile struct {
	Programs []program.Definition            `yaml:"programs"`
	Courses  map[string][]program.CourseRun `yaml:"courses"`
}

var _ program.Catalog = (*FileCatalog)(nil)

func NewFileCatalog(path string) *FileCatalog {
	return &FileCatalog{path: path}
}

func (c *FileCatalog) load() (catalogFile, error) {
	var f catalogFile
	data, err := os.ReadFile(c.path)
	if err != nil {
		return f, errors.Wrap(err, "reading catalog file")
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, errors.Wrapf(err, "parsing %s", c.path)
	}
	return f, nil
}

func (c *FileCatalog) Programs(ctx context.Context) ([]program.Definition, error) {
	f, err := c.load()
	if err != nil {
		return nil, err
	}
	if f.Programs == nil {
		return []program.Definition{}, nil
	}
	return f.Programs, nil
}

func (c *FileCatalog) CourseRunsForCourse(ctx context.Context, courseUUID string) ([]program.CourseRun, error) {
	f, err := c.load()
	if err != nil {
		return nil, err
	}
	return f.Courses[courseUUID], nil
}
