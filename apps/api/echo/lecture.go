package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/access"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/homework"
	"github.com/darasahq/darasa/core/lecture"
	"github.com/darasahq/darasa/core/user"
)

var errLecNotFoundInCtx = errors.New("lecture object not found in echo.Context")

type lectureApi struct {
	svc         *lecture.Service
	courseSvc   *course.Service
	homeworkSvc *homework.Service
	userSvc     *user.Service
	validate    *validator.Validate
}

func registerLectureAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := lectureApi{
		svc:         deps.LectureSvc,
		courseSvc:   deps.CourseSvc,
		homeworkSvc: deps.HomeworkSvc,
		userSvc:     deps.UserSvc,
		validate:    deps.Validate,
	}

	lg := g.Group("/lectures", jwt)

	lg.GET("", api.query)
	lg.POST("", api.create, roleRequired(user.RoleTeacher))

	dg := lg.Group("/:id")
	dg.GET("", api.retrieve, api.gate(access.CanAccessLecture))
	dg.PUT("", api.update, api.gate(access.IsLectureTeacher))
	dg.DELETE("", api.destroy, api.gate(access.IsLectureTeacher))
	dg.GET("/homework", api.homework, api.gate(access.CanAccessLecture))
}

func (api *lectureApi) gate(allowed func(user.User, lecture.Lecture) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, api.userSvc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			lec, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == lecture.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding lecture by ID")
			}
			if !access.CanAccessLecture(usr, lec) {
				return errHttpNotFound
			}
			if !allowed(usr, lec) {
				return errHttpForbidden
			}
			ctx.Set(contextObjectKey, lec)
			return next(ctx)
		}
	}
}

func contextLecture(ctx echo.Context) (lecture.Lecture, error) {
	lec, ok := ctx.Get(contextObjectKey).(lecture.Lecture)
	if !ok {
		return lecture.Lecture{}, errors.Wrap(errLecNotFoundInCtx, "retrieving object from context")
	}
	return lec, nil
}

// Handlers

func (api *lectureApi) create(ctx echo.Context) error {
	var data lecture.NewLecture
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLecture")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	// the parent course must exist and be taught by the caller
	crs, err := api.courseSvc.GetByID(ctx.Request().Context(), data.CourseID)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "course_id", Error: "course not found"})
		}
		return errors.Wrap(err, "finding course by ID")
	}
	if !access.IsCourseTeacher(usr, crs) {
		return errHttpForbidden
	}

	lec, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating lecture")
	}
	return ctx.JSON(http.StatusCreated, lec)
}

func (api *lectureApi) query(ctx echo.Context) error {
	filter := new(lecture.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	lectures, err := api.svc.Query(ctx.Request().Context(), usr, filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying lectures")
	}
	if lectures == nil {
		lectures = []lecture.Lecture{}
	}
	return ctx.JSON(http.StatusOK, lectures)
}

func (api *lectureApi) retrieve(ctx echo.Context) error {
	lec, err := contextLecture(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, lec)
}

func (api *lectureApi) update(ctx echo.Context) error {
	lec, err := contextLecture(ctx)
	if err != nil {
		return err
	}

	var data lecture.UpdateLecture
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLecture")
	}
	if err := data.Validate(lec, api.validate); err != nil {
		return err
	}

	lec, err = api.svc.Update(ctx.Request().Context(), lec.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating lecture")
	}
	return ctx.JSON(http.StatusOK, lec)
}

func (api *lectureApi) destroy(ctx echo.Context) error {
	lec, err := contextLecture(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), lec.ID); err != nil {
		return errors.Wrap(err, "deleting lecture")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *lectureApi) homework(ctx echo.Context) error {
	lec, err := contextLecture(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	filter := &homework.QueryFilter{LectureID: lec.ID}
	assignments, err := api.homeworkSvc.Query(ctx.Request().Context(), usr, filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying lecture homework")
	}
	if assignments == nil {
		assignments = []homework.Homework{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}
