package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-credentials/core/award"
	"github.com/trezcool/masomo-credentials/core/events"
	"github.com/trezcool/masomo-credentials/core/task"
)

type (
	eventsAPI struct {
		publisher events.Publisher
		queue     task.Queue
	}

	generateRequest struct {
		Username    string `json:"username" validate:"required,username"`
		CourseKey   string `json:"course_id" validate:"required,coursekey"`
		ForcedGrade string `json:"forced_grade" validate:"max=5"`
	}

	acceptedResponse struct {
		Status string `json:"status"`
	}
)

var accepted = acceptedResponse{Status: "accepted"}

func registerEventsAPI(router *echo.Group, publisher events.Publisher, queue task.Queue) {
	api := eventsAPI{publisher: publisher, queue: queue}

	router.POST("/events/exam-attempt-rejected", api.examAttemptRejected)
	router.POST("/events/course-certificate-config", api.courseCertificateConfigChanged)
	router.POST("/certificates/generate", api.generateCertificate)
}

func (api eventsAPI) examAttemptRejected(ctx echo.Context) error {
	var e events.ExamAttemptRejected
	if err := bindAndValidate(ctx, &e); err != nil {
		return err
	}
	return api.publish(ctx, e)
}

func (api eventsAPI) courseCertificateConfigChanged(ctx echo.Context) error {
	var e events.CourseCertificateConfigChanged
	if err := bindAndValidate(ctx, &e); err != nil {
		return err
	}
	return api.publish(ctx, e)
}

func (api eventsAPI) generateCertificate(ctx echo.Context) error {
	var req generateRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	d := task.Descriptor{
		Name: award.TaskGenerateCertificate,
		Args: award.GenerateArgs{Username: req.Username, CourseKey: req.CourseKey, ForcedGrade: req.ForcedGrade},
	}
	if err := api.queue.Enqueue(ctx.Request().Context(), d); err != nil {
		return errors.Wrap(err, "enqueueing certificate generation")
	}
	return ctx.JSON(http.StatusAccepted, accepted)
}

func (api eventsAPI) publish(ctx echo.Context, e events.Event) error {
	if err := api.publisher.Publish(ctx.Request().Context(), e); err != nil {
		return errors.Wrapf(err, "publishing %s", e.EventType())
	}
	return ctx.JSON(http.StatusAccepted, accepted)
}

func bindAndValidate(ctx echo.Context, v interface{}) error {
	if err := ctx.Bind(v); err != nil {
		return err
	}
	return ctx.Validate(v)
}
