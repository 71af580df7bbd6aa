package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/access"
	"github.com/darasahq/darasa/core/homework"
	"github.com/darasahq/darasa/core/user"
)

var errSubNotFoundInCtx = errors.New("submission object not found in echo.Context")

type submissionApi struct {
	svc      *homework.Service
	userSvc  *user.Service
	validate *validator.Validate
}

func registerSubmissionAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := submissionApi{
		svc:      deps.HomeworkSvc,
		userSvc:  deps.UserSvc,
		validate: deps.Validate,
	}

	sg := g.Group("/submissions", jwt)

	sg.GET("", api.query)

	dg := sg.Group("/:id")
	dg.GET("", api.retrieve, api.gate(access.CanAccessSubmission))
	dg.POST("/grade", api.grade, api.gate(access.IsSubmissionTeacher))
	dg.PUT("/update-grade", api.updateGrade, api.gate(access.IsSubmissionTeacher))
}

func (api *submissionApi) gate(allowed func(user.User, homework.Submission) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, api.userSvc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			sub, err := api.svc.GetSubmissionByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == homework.ErrSubmissionNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding submission by ID")
			}
			if !access.CanAccessSubmission(usr, sub) {
				return errHttpNotFound
			}
			if !allowed(usr, sub) {
				return errHttpForbidden
			}
			ctx.Set(contextObjectKey, sub)
			return next(ctx)
		}
	}
}

func contextSubmission(ctx echo.Context) (homework.Submission, error) {
	sub, ok := ctx.Get(contextObjectKey).(homework.Submission)
	if !ok {
		return homework.Submission{}, errors.Wrap(errSubNotFoundInCtx, "retrieving object from context")
	}
	return sub, nil
}

// Handlers

func (api *submissionApi) query(ctx echo.Context) error {
	filter := new(homework.SubmissionFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to SubmissionFilter")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	subs, err := api.svc.QuerySubmissions(ctx.Request().Context(), usr, filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []homework.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *submissionApi) retrieve(ctx echo.Context) error {
	sub, err := contextSubmission(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) grade(ctx echo.Context) error {
	sub, err := contextSubmission(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data homework.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err = api.svc.Grade(ctx.Request().Context(), sub, usr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *submissionApi) updateGrade(ctx echo.Context) error {
	sub, err := contextSubmission(ctx)
	if err != nil {
		return err
	}

	var data homework.UpdateGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGrade")
	}
	if sub.Grade == nil {
		return homework.ErrGradeNotFound
	}
	if err := data.Validate(*sub.Grade, api.validate); err != nil {
		return err
	}

	sub, err = api.svc.UpdateGrade(ctx.Request().Context(), sub, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}
