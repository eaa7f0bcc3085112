package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hadirapp/hadir/core"
	"github.com/hadirapp/hadir/core/attendee"
	"github.com/hadirapp/hadir/core/user"
)

type attendeeApi struct {
	svc      attendee.Service
	validate *validator.Validate
}

func registerAttendeeAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc attendee.Service, validate *validator.Validate) {
	api := attendeeApi{
		svc:      svc,
		validate: validate,
	}

	// the check-in endpoint serves the door stations; any authed role may scan
	g.POST("/checkin", api.checkin, jwt, rolesMiddleware())

	ag := g.Group("/attendees", jwt)
	staff := rolesMiddleware(user.RoleOwner, user.RoleDataEntry)
	owner := rolesMiddleware(user.RoleOwner)

	ag.POST("", api.register, staff)
	ag.POST("/import", api.bulkImport, staff)
	ag.GET("", api.query, rolesMiddleware())
	ag.GET("/stats", api.stats, rolesMiddleware())
	ag.GET("/options", api.queryOptions, rolesMiddleware())

	dg := ag.Group("/:id")
	dg.GET("", api.retrieve, rolesMiddleware())
	dg.GET("/logs", api.queryLogs, rolesMiddleware())
	dg.PUT("", api.update, staff)
	dg.DELETE("", api.softDelete, staff)
	dg.PATCH("/restore", api.restore, staff)
	dg.DELETE("/permanent", api.destroy, owner)
	dg.PATCH("/toggle-attendance", api.toggleAttendance, staff)
}

// Handlers

func (api *attendeeApi) register(ctx echo.Context) error {
	var data attendee.NewAttendee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAttendee")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	att, err := api.svc.Register(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "registering attendee")
	}
	return ctx.JSON(http.StatusCreated, att)
}

func (api *attendeeApi) bulkImport(ctx echo.Context) error {
	var data BulkImportRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkImportRequest")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	// malformed rows are skipped here; duplicate rows are skipped by the service
	var invalid int
	rows := make([]attendee.NewAttendee, 0, len(data.Attendees))
	for i := range data.Attendees {
		row := data.Attendees[i]
		if err := row.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
			switch errors.Cause(err).(type) {
			case validator.ValidationErrors, *core.ValidationError:
				invalid++
				continue
			}
			return errors.Wrap(err, "validating import row")
		}
		rows = append(rows, row)
	}

	res, err := api.svc.BulkRegister(ctx.Request().Context(), rows, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "importing attendees")
	}
	res.Skipped += invalid
	return ctx.JSON(http.StatusOK, res)
}

func (api *attendeeApi) query(ctx echo.Context) error {
	filter := new(attendee.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []attendee.Attendee{})
	}
	if trash, _ := strconv.ParseBool(ctx.QueryParam("trash")); trash {
		filter.Scope = attendee.ScopeTrash
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	attendees, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying attendees")
	}
	if attendees == nil {
		attendees = []attendee.Attendee{}
	}
	return ctx.JSON(http.StatusOK, attendees)
}

func (api *attendeeApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *attendeeApi) queryOptions(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, OptionsResponse{
		Governorates: attendee.Governorates,
		SeatPrices:   attendee.SeatPrices,
	})
}

func (api *attendeeApi) retrieve(ctx echo.Context) error {
	att, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding attendee by ID")
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *attendeeApi) queryLogs(ctx echo.Context) error {
	logs, err := api.svc.Logs(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying attendance logs")
	}
	if logs == nil {
		logs = []attendee.Log{}
	}
	return ctx.JSON(http.StatusOK, logs)
}

func (api *attendeeApi) update(ctx echo.Context) error {
	att, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding attendee by ID")
	}

	var data attendee.UpdateAttendee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAttendee")
	}
	if err := data.Validate(api.validate, att); err != nil {
		return err
	}

	att, err = api.svc.Update(ctx.Request().Context(), att.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating attendee")
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *attendeeApi) softDelete(ctx echo.Context) error {
	if err := api.svc.SoftDelete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "trashing attendee")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attendeeApi) restore(ctx echo.Context) error {
	if err := api.svc.Restore(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "restoring attendee")
	}

	att, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding attendee by ID")
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *attendeeApi) destroy(ctx echo.Context) error {
	if err := api.svc.Destroy(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting attendee")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attendeeApi) toggleAttendance(ctx echo.Context) error {
	att, err := api.svc.ToggleAttendance(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "toggling attendance")
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *attendeeApi) checkin(ctx echo.Context) error {
	var data CheckinRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckinRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	res, err := api.svc.CheckIn(ctx.Request().Context(), data.Code, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "checking in")
	}
	return ctx.JSON(http.StatusOK, res)
}

type (
	BulkImportRequest struct {
		Attendees []attendee.NewAttendee `json:"attendees"`
	}

	OptionsResponse struct {
		Governorates []string       `json:"governorates"`
		SeatPrices   map[string]int `json:"seat_prices"`
	}

	CheckinRequest struct {
		Code string `json:"code" validate:"required"`
	}
)

func (cr *CheckinRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(cr)
}
