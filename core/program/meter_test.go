package program

import (
	"reflect"
	"testing"
	"time"

	"github.com/trezcool/masomo-credentials/core/certificate"
	"github.com/trezcool/masomo-credentials/core/course"
)

const (
	courseA = "course-v1:Org+A+2021"
	courseB = "course-v1:Org+B+2021"
	courseC = "course-v1:Org+C+2021"
)

func passed(key string, mode course.Mode, earned time.Time) certificate.Record {
	return certificate.Record{CourseKey: key, Mode: mode, Status: certificate.StatusDownloadable, ModifiedAt: earned}
}

func TestCompletedPrograms(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2021, 6, d, 0, 0, 0, 0, time.UTC) }
	cad := day(28)

	progAB := Definition{UUID: "p-ab", Units: []Unit{{CourseKey: courseA}, {CourseKey: courseB}}}
	progC := Definition{UUID: "p-c", Units: []Unit{{CourseKey: courseC, Modes: []course.Mode{course.ModeVerified}}}}
	empty := Definition{UUID: "p-empty"}
	programs := []Definition{progAB, progC, empty}

	overviews := map[string]course.Overview{
		courseA: {Key: courseA, SelfPaced: true},
		courseB: {Key: courseB, DisplayBehavior: course.DisplayEndWithDate, CertificateAvailableDate: &cad},
	}

	tests := []struct {
		name    string
		records []certificate.Record
		want    map[string]time.Time
	}{
		{name: "nothing passed", want: map[string]time.Time{}},
		{
			name:    "only A passed",
			records: []certificate.Record{passed(courseA, course.ModeHonor, day(1))},
			want:    map[string]time.Time{},
		},
		{
			name:    "A passed, B not passing",
			records: []certificate.Record{passed(courseA, course.ModeHonor, day(1)), {CourseKey: courseB, Mode: course.ModeHonor, Status: certificate.StatusNotPassing}},
			want:    map[string]time.Time{},
		},
		{
			name:    "A and B passed: latest available date",
			records: []certificate.Record{passed(courseA, course.ModeHonor, day(1)), passed(courseB, course.ModeHonor, day(2))},
			want:    map[string]time.Time{"p-ab": cad},
		},
		{
			name:    "B and A passed in reverse order",
			records: []certificate.Record{passed(courseB, course.ModeHonor, day(2)), passed(courseA, course.ModeHonor, day(1))},
			want:    map[string]time.Time{"p-ab": cad},
		},
		{
			name:    "unit mode not accepted",
			records: []certificate.Record{passed(courseC, course.ModeHonor, day(3))},
			want:    map[string]time.Time{},
		},
		{
			name:    "unit mode accepted, no overview",
			records: []certificate.Record{passed(courseC, course.ModeVerified, day(3))},
			want:    map[string]time.Time{"p-c": day(3)},
		},
		{
			name:    "audit never counts",
			records: []certificate.Record{passed(courseA, course.ModeAudit, day(1)), passed(courseB, course.ModeHonor, day(2))},
			want:    map[string]time.Time{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := make(map[string]certificate.Record, len(tt.records))
			for _, r := range tt.records {
				records[r.CourseKey] = r
			}
			if got := CompletedPrograms(programs, records, overviews); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CompletedPrograms() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompletedPrograms_ConcreteScenario(t *testing.T) {
	courseX := "course-v1:Org+X+2021"
	courseY := "course-v1:Org+Y+2021"
	xDate := time.Date(2021, 1, 10, 0, 0, 0, 0, time.UTC)
	yDate := time.Date(2021, 2, 20, 0, 0, 0, 0, time.UTC)

	p := Definition{UUID: "P", Units: []Unit{
		{CourseKey: courseX, Modes: []course.Mode{course.ModeHonor}},
		{CourseKey: courseY, Modes: []course.Mode{course.ModeVerified}},
	}}
	records := map[string]certificate.Record{
		courseX: passed(courseX, course.ModeHonor, xDate),
		courseY: passed(courseY, course.ModeVerified, yDate),
	}

	got := CompletedPrograms([]Definition{p}, records, nil)
	want := map[string]time.Time{"P": yDate}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CompletedPrograms() = %v, want %v", got, want)
	}
}

func TestContainingCourse(t *testing.T) {
	programs := []Definition{
		{UUID: "z", Units: []Unit{{CourseKey: courseA}}},
		{UUID: "b", Units: []Unit{{CourseKey: courseB}}},
		{UUID: "a", Units: []Unit{{CourseKey: courseB}, {CourseKey: courseA}}},
	}
	tests := []struct {
		name      string
		courseKey string
		want      []string
	}{
		{name: "sorted", courseKey: courseA, want: []string{"a", "z"}},
		{name: "none", courseKey: courseC, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainingCourse(programs, tt.courseKey); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ContainingCourse() = %v, want %v", got, tt.want)
			}
		})
	}
}
