package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/access"
	"github.com/darasahq/darasa/core/homework"
	"github.com/darasahq/darasa/core/lecture"
	"github.com/darasahq/darasa/core/user"
)

var errHwNotFoundInCtx = errors.New("homework object not found in echo.Context")

type homeworkApi struct {
	svc        *homework.Service
	lectureSvc *lecture.Service
	userSvc    *user.Service
	validate   *validator.Validate
}

func registerHomeworkAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := homeworkApi{
		svc:        deps.HomeworkSvc,
		lectureSvc: deps.LectureSvc,
		userSvc:    deps.UserSvc,
		validate:   deps.Validate,
	}

	hg := g.Group("/homework", jwt)

	hg.GET("", api.query)
	hg.POST("", api.create, roleRequired(user.RoleTeacher))

	dg := hg.Group("/:id")
	dg.GET("", api.retrieve, api.gate(access.CanAccessHomework))
	dg.PUT("", api.update, api.gate(access.IsHomeworkTeacher))
	dg.DELETE("", api.destroy, api.gate(access.IsHomeworkTeacher))
	dg.POST("/submit", api.submit, api.gate(access.IsHomeworkStudent))
	dg.GET("/submissions", api.submissions, api.gate(access.CanAccessHomework))
}

func (api *homeworkApi) gate(allowed func(user.User, homework.Homework) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, api.userSvc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			hw, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == homework.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding homework by ID")
			}
			if !access.CanAccessHomework(usr, hw) {
				return errHttpNotFound
			}
			if !allowed(usr, hw) {
				return errHttpForbidden
			}
			ctx.Set(contextObjectKey, hw)
			return next(ctx)
		}
	}
}

func contextHomework(ctx echo.Context) (homework.Homework, error) {
	hw, ok := ctx.Get(contextObjectKey).(homework.Homework)
	if !ok {
		return homework.Homework{}, errors.Wrap(errHwNotFoundInCtx, "retrieving object from context")
	}
	return hw, nil
}

// Handlers

func (api *homeworkApi) create(ctx echo.Context) error {
	var data homework.NewHomework
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewHomework")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	// the parent lecture must exist and belong to a course the caller teaches
	lec, err := api.lectureSvc.GetByID(ctx.Request().Context(), data.LectureID)
	if err != nil {
		if errors.Cause(err) == lecture.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "lecture_id", Error: "lecture not found"})
		}
		return errors.Wrap(err, "finding lecture by ID")
	}
	if !access.IsLectureTeacher(usr, lec) {
		return errHttpForbidden
	}

	hw, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating homework")
	}
	return ctx.JSON(http.StatusCreated, hw)
}

func (api *homeworkApi) query(ctx echo.Context) error {
	filter := new(homework.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	assignments, err := api.svc.Query(ctx.Request().Context(), usr, filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying homework")
	}
	if assignments == nil {
		assignments = []homework.Homework{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *homeworkApi) retrieve(ctx echo.Context) error {
	hw, err := contextHomework(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, hw)
}

func (api *homeworkApi) update(ctx echo.Context) error {
	hw, err := contextHomework(ctx)
	if err != nil {
		return err
	}

	var data homework.UpdateHomework
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateHomework")
	}
	if err := data.Validate(hw, api.validate); err != nil {
		return err
	}

	hw, err = api.svc.Update(ctx.Request().Context(), hw.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating homework")
	}
	return ctx.JSON(http.StatusOK, hw)
}

func (api *homeworkApi) destroy(ctx echo.Context) error {
	hw, err := contextHomework(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), hw.ID); err != nil {
		return errors.Wrap(err, "deleting homework")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *homeworkApi) submit(ctx echo.Context) error {
	hw, err := contextHomework(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data homework.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), hw, usr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *homeworkApi) submissions(ctx echo.Context) error {
	hw, err := contextHomework(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	filter := &homework.SubmissionFilter{HomeworkID: hw.ID}
	subs, err := api.svc.QuerySubmissions(ctx.Request().Context(), usr, filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying homework submissions")
	}
	if subs == nil {
		subs = []homework.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}
