package certificate

import (
	"testing"
	"time"

	"github.com/trezcool/masomo-credentials/core/course"
)

func TestDecideStatus(t *testing.T) {
	passing := &GradeResult{LetterGrade: "Pass", PercentGrade: 0.8, Passing: true}
	failing := &GradeResult{PercentGrade: 0.3}

	tests := []struct {
		name string
		elig Eligibility
		want Status
	}{
		{name: "restricted wins", elig: Eligibility{Mode: course.ModeHonor, Enrolled: true, Grade: passing, Allowlisted: true, Restricted: true}, want: StatusRestricted},
		{name: "invalidated", elig: Eligibility{Mode: course.ModeHonor, Enrolled: true, Grade: passing, Invalidated: true}, want: StatusUnavailable},
		{name: "invalidated beats allowlist", elig: Eligibility{Mode: course.ModeHonor, Enrolled: true, Allowlisted: true, Invalidated: true}, want: StatusUnavailable},
		{name: "not enrolled", elig: Eligibility{Mode: course.ModeHonor, Grade: passing}, want: StatusUnavailable},
		{name: "audit track", elig: Eligibility{Mode: course.ModeAudit, Enrolled: true, Grade: passing}, want: StatusUnavailable},
		{name: "allowlisted without grade", elig: Eligibility{Mode: course.ModeHonor, Enrolled: true, Allowlisted: true}, want: StatusDownloadable},
		{name: "allowlisted failing grade", elig: Eligibility{Mode: course.ModeHonor, Enrolled: true, Allowlisted: true, Grade: failing}, want: StatusDownloadable},
		{name: "allowlisted unverified", elig: Eligibility{Mode: course.ModeVerified, Enrolled: true, Allowlisted: true}, want: StatusUnverified},
		{name: "no grade", elig: Eligibility{Mode: course.ModeHonor, Enrolled: true}, want: StatusUnavailable},
		{name: "passing honor", elig: Eligibility{Mode: course.ModeHonor, Enrolled: true, Grade: passing}, want: StatusDownloadable},
		{name: "passing verified, id verified", elig: Eligibility{Mode: course.ModeVerified, Enrolled: true, Grade: passing, IDVerified: true}, want: StatusDownloadable},
		{name: "passing verified, id not verified", elig: Eligibility{Mode: course.ModeVerified, Enrolled: true, Grade: passing}, want: StatusUnverified},
		{name: "passing no-id-professional", elig: Eligibility{Mode: course.ModeNoIDProfessional, Enrolled: true, Grade: passing}, want: StatusDownloadable},
		{name: "failing", elig: Eligibility{Mode: course.ModeHonor, Enrolled: true, Grade: failing}, want: StatusNotPassing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecideStatus(tt.elig); got != tt.want {
				t.Errorf("DecideStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAvailableDate(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2021, 6, d, 0, 0, 0, 0, time.UTC) }
	tPtr := func(t time.Time) *time.Time { return &t }

	earned := day(10)
	override := day(1)
	end := day(20)
	cad := day(25)

	tests := []struct {
		name     string
		overview course.Overview
		rec      Record
		want     time.Time
	}{
		{
			name:     "override wins",
			overview: course.Overview{DisplayBehavior: course.DisplayEndWithDate, CertificateAvailableDate: tPtr(cad)},
			rec:      Record{ModifiedAt: earned, DateOverride: tPtr(override)},
			want:     override,
		},
		{
			name:     "self-paced uses earned date",
			overview: course.Overview{SelfPaced: true, DisplayBehavior: course.DisplayEndWithDate, CertificateAvailableDate: tPtr(cad)},
			rec:      Record{ModifiedAt: earned},
			want:     earned,
		},
		{
			name:     "instructor-paced end_with_date",
			overview: course.Overview{DisplayBehavior: course.DisplayEndWithDate, CertificateAvailableDate: tPtr(cad), End: tPtr(end)},
			rec:      Record{ModifiedAt: earned},
			want:     cad,
		},
		{
			name:     "instructor-paced end_with_date without date",
			overview: course.Overview{DisplayBehavior: course.DisplayEndWithDate, End: tPtr(end)},
			rec:      Record{ModifiedAt: earned},
			want:     earned,
		},
		{
			name:     "instructor-paced end",
			overview: course.Overview{DisplayBehavior: course.DisplayEnd, CertificateAvailableDate: tPtr(cad), End: tPtr(end)},
			rec:      Record{ModifiedAt: earned},
			want:     end,
		},
		{
			name:     "instructor-paced early_no_info",
			overview: course.Overview{DisplayBehavior: course.DisplayEarlyNoInfo, CertificateAvailableDate: tPtr(cad), End: tPtr(end)},
			rec:      Record{ModifiedAt: earned},
			want:     earned,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AvailableDate(tt.overview, tt.rec)
			if !got.Equal(tt.want) {
				t.Errorf("AvailableDate() = %v, want %v", got, tt.want)
			}
			if again := AvailableDate(tt.overview, tt.rec); !again.Equal(got) {
				t.Errorf("AvailableDate() not deterministic: %v then %v", got, again)
			}
		})
	}
}

func TestStatus_Predicates(t *testing.T) {
	for _, s := range AllStatuses {
		if !s.Valid() {
			t.Errorf("%s.Valid() = false", s)
		}
		if got, want := s.IsPassing(), s == StatusDownloadable; got != want {
			t.Errorf("%s.IsPassing() = %v, want %v", s, got, want)
		}
		if got, want := s.IsInteresting(), s == StatusDownloadable || s == StatusNotPassing; got != want {
			t.Errorf("%s.IsInteresting() = %v, want %v", s, got, want)
		}
	}
	if Status("lol").Valid() {
		t.Error(`Status("lol").Valid() = true`)
	}
}
