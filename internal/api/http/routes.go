package httpapi

import (
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang/glog"

	"github.com/i474232898/weather-dashboard/internal/freshness"
	"github.com/i474232898/weather-dashboard/internal/locations"
	"github.com/i474232898/weather-dashboard/internal/settings"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

// Deps are the collaborators the routes expose.
type Deps struct {
	Controller *freshness.Controller
	Directory  *locations.Directory
	Settings   *settings.Settings

	// History is optional; without it the history endpoint answers 404.
	History *store.MemoryStore
}

// ErrorHandler renders every handler error as a JSON body.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/dashboard", func(c *fiber.Ctx) error {
		return d.renderView(c, fiber.StatusOK)
	})

	v1.Put("/dashboard/location", func(c *fiber.Ctx) error {
		var req locationRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if _, ok := d.Directory.Resolve(req.ID); !ok {
			return fiber.NewError(fiber.StatusNotFound, "unknown location")
		}

		if err := d.Controller.SetActiveLocation(c.UserContext(), req.ID); err != nil {
			glog.Errorf("api: persisting last location: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save location")
		}
		return d.renderView(c, fiber.StatusOK)
	})

	v1.Post("/dashboard/refresh", func(c *fiber.Ctx) error {
		err := d.Controller.Refresh()
		var throttled *freshness.ThrottledError
		if errors.As(err, &throttled) {
			secs := int(math.Ceil(throttled.Remaining.Seconds()))
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":             true,
				"message":           throttled.Error(),
				"retryAfterSeconds": secs,
			})
		}
		if err != nil {
			return err
		}
		return d.renderView(c, fiber.StatusAccepted)
	})

	v1.Get("/cache/:id", func(c *fiber.Ctx) error {
		entry, ok := d.Controller.Cache().Get(c.Params("id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no fresh weather cached for location")
		}
		unit := d.unit(c)
		return c.JSON(fiber.Map{
			"locationId": entry.LocationID,
			"fetchedAt":  entry.FetchedAt,
			"payload":    entry.Payload.InUnit(unit),
		})
	})

	v1.Get("/locations", func(c *fiber.Ctx) error {
		resp := fiber.Map{"saved": d.Directory.SavedLocations()}
		if home, ok := d.Directory.Home(); ok {
			resp["home"] = home
		}
		if cur, ok := d.Directory.Current(); ok {
			resp["current"] = cur
		}
		return c.JSON(resp)
	})

	v1.Get("/locations/:id/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if d.History == nil {
			return fiber.NewError(fiber.StatusNotFound, "weather history is disabled")
		}

		snapshots, err := d.History.GetRange(req.ID, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}
		unit := d.unit(c)
		for i := range snapshots {
			snapshots[i] = snapshots[i].InUnit(unit)
		}
		return c.JSON(fiber.Map{
			"locationId": req.ID,
			"from":       req.From,
			"to":         req.To,
			"snapshots":  snapshots,
		})
	})

	v1.Put("/locations/current", func(c *fiber.Ctx) error {
		var req deviceLocationRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(d.Directory.SetCurrent(*req.Lat, *req.Lon))
	})

	v1.Get("/settings", func(c *fiber.Ctx) error {
		v, err := d.Settings.Load(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load settings")
		}
		return c.JSON(v)
	})

	v1.Put("/settings", func(c *fiber.Ctx) error {
		var v settings.Values
		if err := c.BodyParser(&v); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := d.Settings.Save(c.UserContext(), v); err != nil {
			if errors.Is(err, settings.ErrInvalid) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save settings")
		}
		return c.JSON(v)
	})
}

// locationRequest selects the active location.
type locationRequest struct {
	ID string `json:"id" validate:"required"`
}

// deviceLocationRequest reports the device's coordinates.
type deviceLocationRequest struct {
	Lat *float64 `json:"lat" validate:"required,min=-90,max=90"`
	Lon *float64 `json:"lon" validate:"required,min=-180,max=180"`
}

// historyQuery holds the parameters of the history endpoint. Both bounds
// default to the last 24 hours.
type historyQuery struct {
	ID   string    `validate:"required"`
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	h.ID = c.Params("id")
	h.To = time.Now().UTC()
	h.From = h.To.Add(-24 * time.Hour)

	if s := c.Query("from"); s != "" {
		from, err := parseTime(s)
		if err != nil {
			return err
		}
		h.From = from
	}
	if s := c.Query("to"); s != "" {
		to, err := parseTime(s)
		if err != nil {
			return err
		}
		h.To = to
	}
	return nil
}

// parseTime accepts RFC3339 or unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}

// dashboardResponse is the view with the payload in the user's unit.
type dashboardResponse struct {
	freshness.View
	CooldownRemainingSeconds float64 `json:"cooldownRemainingSeconds"`
}

func (d Deps) renderView(c *fiber.Ctx, status int) error {
	view := d.Controller.View()
	if view.Payload != nil {
		p := view.Payload.InUnit(d.unit(c))
		view.Payload = &p
	}
	return c.Status(status).JSON(dashboardResponse{
		View:                     view,
		CooldownRemainingSeconds: view.CooldownRemaining.Round(time.Millisecond).Seconds(),
	})
}

// unit picks the temperature unit: the "unit" query parameter wins over the
// stored setting.
func (d Deps) unit(c *fiber.Ctx) weather.Unit {
	switch u := weather.Unit(c.Query("unit")); u {
	case weather.Celsius, weather.Fahrenheit:
		return u
	}
	v, err := d.Settings.Load(c.UserContext())
	if err != nil {
		glog.Warningf("api: loading settings: %v", err)
		return weather.Celsius
	}
	return v.TemperatureUnit
}
