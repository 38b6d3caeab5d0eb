package award

import (
	"context"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/credentials"
	"github.com/trezcool/masomo-credentials/core/task"
)

// Task names.
const (
	TaskAwardProgramCertificates      = "credentials.award_program_certificates"
	TaskRevokeProgramCertificates     = "credentials.revoke_program_certificates"
	TaskAwardCourseCertificate        = "credentials.award_course_certificate"
	TaskUpdateCourseCertificateConfig = "credentials.update_course_certificate_configuration"
	TaskInvalidateCertificate         = "certificates.invalidate_certificate"
	TaskGenerateCertificate           = "certificates.generate_certificate"
)

// dispatcher decodes task arguments and injects the current credentials config into each invocation.
type dispatcher struct {
	orch       *Orchestrator
	configs    credentials.ConfigProvider
	validate   *validator.Validate
	translator ut.Translator
}

// RegisterTasks registers the orchestrator's handlers in reg.
func RegisterTasks(
	reg *task.Registry,
	orch *Orchestrator,
	configs credentials.ConfigProvider,
	validate *validator.Validate,
	translator ut.Translator,
) {
	d := &dispatcher{orch: orch, configs: configs, validate: validate, translator: translator}

	reg.Register(TaskAwardProgramCertificates, task.HandlerFunc(func(ctx context.Context, env task.Envelope) task.Result {
		var args LearnerArgs
		conf, res := d.prepare(ctx, env, &args)
		if res != nil {
			return *res
		}
		return orch.AwardProgramCertificates(ctx, conf, args, env.Attempt)
	}))

	reg.Register(TaskRevokeProgramCertificates, task.HandlerFunc(func(ctx context.Context, env task.Envelope) task.Result {
		var args CourseArgs
		conf, res := d.prepare(ctx, env, &args)
		if res != nil {
			return *res
		}
		return orch.RevokeProgramCertificates(ctx, conf, args, env.Attempt)
	}))

	reg.Register(TaskAwardCourseCertificate, task.HandlerFunc(func(ctx context.Context, env task.Envelope) task.Result {
		var args CourseArgs
		conf, res := d.prepare(ctx, env, &args)
		if res != nil {
			return *res
		}
		return orch.AwardCourseCertificate(ctx, conf, args, env.Attempt)
	}))

	reg.Register(TaskUpdateCourseCertificateConfig, task.HandlerFunc(func(ctx context.Context, env task.Envelope) task.Result {
		var args CourseConfigArgs
		conf, res := d.prepare(ctx, env, &args)
		if res != nil {
			return *res
		}
		return orch.UpdateCourseCertificateConfig(ctx, conf, args, env.Attempt)
	}))

	reg.Register(TaskInvalidateCertificate, task.HandlerFunc(func(ctx context.Context, env task.Envelope) task.Result {
		var args InvalidateArgs
		if res := d.decode(env, &args); res != nil {
			return *res
		}
		return orch.InvalidateCertificate(ctx, args, env.Attempt)
	}))

	reg.Register(TaskGenerateCertificate, task.HandlerFunc(func(ctx context.Context, env task.Envelope) task.Result {
		var args GenerateArgs
		if res := d.decode(env, &args); res != nil {
			return *res
		}
		return orch.GenerateCertificate(ctx, args, env.Attempt)
	}))
}

// decode aborts on undecodable or invalid arguments: retrying cannot fix them.
func (d *dispatcher) decode(env task.Envelope, args interface{}) *task.Result {
	if err := env.Decode(args); err != nil {
		res := task.Abort(err.Error())
		return &res
	}
	if err := d.validate.Struct(args); err != nil {
		err = core.NewValidationErrorFrom(err, d.translator)
		res := task.Abort("invalid arguments: " + describe(err))
		return &res
	}
	return nil
}

func (d *dispatcher) prepare(ctx context.Context, env task.Envelope, args interface{}) (credentials.APIConfig, *task.Result) {
	if res := d.decode(env, args); res != nil {
		return credentials.APIConfig{}, res
	}
	conf, err := d.configs.Current(ctx)
	if err != nil {
		if errors.Cause(err) == credentials.ErrNotConfigured {
			return credentials.Disabled(), nil
		}
		res := task.RetryAfter(task.Backoff(env.Attempt), "loading credentials config: "+err.Error())
		return credentials.APIConfig{}, &res
	}
	return conf, nil
}

func describe(err error) string {
	verr, ok := errors.Cause(err).(*core.ValidationError)
	if !ok || len(verr.Fields) == 0 {
		return err.Error()
	}
	s := ""
	for i, f := range verr.Fields {
		if i > 0 {
			s += "; "
		}
		s += f.Error
	}
	return s
}
