package award

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/events"
	"github.com/trezcool/masomo-credentials/core/task"
)

// TasksFor maps an event to the tasks it triggers. It performs no I/O.
func TasksFor(e events.Event, s Settings) []task.Descriptor {
	switch ev := e.(type) {
	case events.CertificateAwarded:
		ds := []task.Descriptor{awardCourse(ev.Certificate)}
		if s.ProgramCertificatesEnabled {
			ds = append(ds, task.Descriptor{Name: TaskAwardProgramCertificates, Args: LearnerArgs{Username: ev.Username}})
		}
		return ds
	case events.CertificateChanged:
		return []task.Descriptor{awardCourse(ev.Certificate)}
	case events.CertificateRevoked:
		ds := []task.Descriptor{awardCourse(ev.Certificate)}
		if s.ProgramCertificatesEnabled {
			ds = append(ds, task.Descriptor{
				Name: TaskRevokeProgramCertificates,
				Args: CourseArgs{Username: ev.Username, CourseKey: ev.CourseKey},
			})
		}
		return ds
	case events.ExamAttemptRejected:
		return []task.Descriptor{{
			Name: TaskInvalidateCertificate,
			Args: InvalidateArgs{Username: ev.Username, CourseKey: ev.CourseKey, AttemptID: ev.AttemptID, Reason: ev.Reason},
		}}
	case events.CourseCertificateConfigChanged:
		return []task.Descriptor{{Name: TaskUpdateCourseCertificateConfig, Args: CourseConfigArgs{CourseKey: ev.CourseKey}}}
	}
	return nil
}

func awardCourse(c events.Certificate) task.Descriptor {
	return task.Descriptor{Name: TaskAwardCourseCertificate, Args: CourseArgs{Username: c.Username, CourseKey: c.CourseKey}}
}

// Triggers enqueues the tasks of the events it receives.
type Triggers struct {
	queue    task.Queue
	settings Settings
	logger   core.Logger
}

var _ events.Handler = (*Triggers)(nil)

func NewTriggers(queue task.Queue, settings Settings, logger core.Logger) *Triggers {
	return &Triggers{queue: queue, settings: settings, logger: logger}
}

// Subscribe registers the triggers on every event type they handle.
func (tr *Triggers) Subscribe(bus *events.Bus) {
	for _, t := range []events.Type{
		events.TypeCertificateAwarded,
		events.TypeCertificateChanged,
		events.TypeCertificateRevoked,
		events.TypeExamAttemptRejected,
		events.TypeCourseCertificateConfigChanged,
	} {
		bus.Subscribe(t, tr)
	}
}

func (tr *Triggers) HandleEvent(ctx context.Context, e events.Event) error {
	for _, d := range TasksFor(e, tr.settings) {
		if err := tr.queue.Enqueue(ctx, d); err != nil {
			return errors.Wrapf(err, "enqueueing %s", d.Name)
		}
		tr.logger.Debug("enqueued " + d.Name)
	}
	return nil
}
