package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/access"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/lecture"
	"github.com/darasahq/darasa/core/user"
)

var errCrsNotFoundInCtx = errors.New("course object not found in echo.Context")

type courseApi struct {
	svc        *course.Service
	lectureSvc *lecture.Service
	userSvc    *user.Service
	validate   *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := courseApi{
		svc:        deps.CourseSvc,
		lectureSvc: deps.LectureSvc,
		userSvc:    deps.UserSvc,
		validate:   deps.Validate,
	}

	cg := g.Group("/courses", jwt)

	cg.GET("", api.query)
	cg.POST("", api.create, roleRequired(user.RoleTeacher))
	cg.GET("/available", api.available, roleRequired(user.RoleStudent))

	// detail endpoints; the gate fetches the course, hides it from
	// non-members (404) and rejects members lacking the permission (403).
	dg := cg.Group("/:id")
	dg.GET("", api.retrieve, api.gate(access.CanAccessCourse))
	dg.PUT("", api.update, api.gate(access.IsCourseOwner))
	dg.DELETE("", api.destroy, api.gate(access.IsCourseOwner))
	dg.GET("/students", api.students, api.gate(access.IsCourseTeacher))
	dg.POST("/add-student", api.addStudent, api.gate(access.IsCourseTeacher))
	dg.DELETE("/remove-student/:userID", api.removeStudent, api.gate(access.IsCourseTeacher))
	dg.POST("/add-teacher", api.addTeacher, api.gate(access.IsCourseTeacher))
	dg.DELETE("/remove-teacher/:userID", api.removeTeacher, api.gate(access.IsCourseTeacher))
	dg.GET("/lectures", api.lectures, api.gate(access.CanAccessCourse))

	// enrollment fetches the course unscoped: a student may enroll in any
	// active course they are not yet a member of.
	dg.POST("/enroll", api.enroll, api.fetch(), roleRequired(user.RoleStudent))
	dg.POST("/unenroll", api.unenroll, api.fetch(), roleRequired(user.RoleStudent))
}

// gate fetches the course at :id and authorizes the request against it.
// An absent or out-of-scope course yields 404; an in-scope course the user
// lacks permission on yields 403. The authorized snapshot is stored in the
// context for the handler.
func (api *courseApi) gate(allowed func(user.User, course.Course) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, api.userSvc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == course.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding course by ID")
			}
			if !access.CanAccessCourse(usr, crs) {
				return errHttpNotFound
			}
			if !allowed(usr, crs) {
				return errHttpForbidden
			}
			ctx.Set(contextObjectKey, crs)
			return next(ctx)
		}
	}
}

// fetch stores the course at :id in the context without a membership check.
func (api *courseApi) fetch() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == course.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding course by ID")
			}
			ctx.Set(contextObjectKey, crs)
			return next(ctx)
		}
	}
}

func contextCourse(ctx echo.Context) (course.Course, error) {
	crs, ok := ctx.Get(contextObjectKey).(course.Course)
	if !ok {
		return course.Course{}, errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}
	return crs, nil
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	crs, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	courses, err := api.svc.Query(ctx.Request().Context(), usr, filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) available(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	courses, err := api.svc.Available(ctx.Request().Context(), usr, ctx.QueryParam("search"), ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying available courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	crs, err := contextCourse(ctx)
	if err != nil {
		return err
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(crs, api.validate); err != nil {
		return err
	}

	crs, err = api.svc.Update(ctx.Request().Context(), crs.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	crs, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), crs.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	crs, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.Enroll(ctx.Request().Context(), crs, usr); err != nil {
		return err
	}
	crs, err = api.svc.GetByID(ctx.Request().Context(), crs.ID)
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) unenroll(ctx echo.Context) error {
	crs, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.Unenroll(ctx.Request().Context(), crs, usr); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) students(ctx echo.Context) error {
	crs, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.svc.Students(ctx.Request().Context(), crs, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "listing course students")
	}
	if students == nil {
		students = []user.User{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *courseApi) addStudent(ctx echo.Context) error {
	crs, err := contextCourse(ctx)
	if err != nil {
		return err
	}

	var data course.MemberRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MemberRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	member, err := api.memberUser(ctx, data.UserID)
	if err != nil {
		return err
	}
	if err := api.svc.AddStudent(ctx.Request().Context(), crs, member); err != nil {
		return err
	}
	return api.refreshedCourse(ctx, crs.ID)
}

func (api *courseApi) removeStudent(ctx echo.Context) error {
	crs, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	member, err := api.memberUser(ctx, ctx.Param("userID"))
	if err != nil {
		return err
	}
	if err := api.svc.RemoveStudent(ctx.Request().Context(), crs, member); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) addTeacher(ctx echo.Context) error {
	crs, err := contextCourse(ctx)
	if err != nil {
		return err
	}

	var data course.MemberRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MemberRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	member, err := api.memberUser(ctx, data.UserID)
	if err != nil {
		return err
	}
	if err := api.svc.AddTeacher(ctx.Request().Context(), crs, member); err != nil {
		return err
	}
	return api.refreshedCourse(ctx, crs.ID)
}

func (api *courseApi) removeTeacher(ctx echo.Context) error {
	crs, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	member, err := api.memberUser(ctx, ctx.Param("userID"))
	if err != nil {
		return err
	}
	if err := api.svc.RemoveTeacher(ctx.Request().Context(), crs, member); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) lectures(ctx echo.Context) error {
	crs, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	filter := &lecture.QueryFilter{CourseID: crs.ID}
	lectures, err := api.lectureSvc.Query(ctx.Request().Context(), usr, filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying course lectures")
	}
	if lectures == nil {
		lectures = []lecture.Lecture{}
	}
	return ctx.JSON(http.StatusOK, lectures)
}

// memberUser resolves the user a roster mutation applies to.
func (api *courseApi) memberUser(ctx echo.Context, userID string) (user.User, error) {
	member, err := api.userSvc.GetByID(ctx.Request().Context(), userID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errHttpNotFound
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	return member, nil
}

func (api *courseApi) refreshedCourse(ctx echo.Context, id string) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, crs)
}
