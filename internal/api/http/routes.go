package httpapi

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/weather-station-cache/internal/weather"
)

var validate = validator.New()

// NewApp builds the Fiber app with the shared error handler and middleware.
func NewApp(name string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               name,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": name,
		})
	})
	return app
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. Published files
// under dataDir are served read-only at /data when dataDir is not empty.
func RegisterRoutes(app *fiber.App, service *weather.Service, stations []weather.Station, dataDir string) {
	v1 := app.Group("/api/v1")

	v1.Get("/stations", func(c *fiber.Ctx) error {
		return c.JSON(service.Index(c.UserContext(), stations))
	})

	v1.Get("/stations/:sid", func(c *fiber.Ctx) error {
		st, err := lookupStation(c, stations)
		if err != nil {
			return err
		}

		payload, err := service.Payload(c.UserContext(), st)
		if err != nil {
			if errors.Is(err, weather.ErrNoSeries) {
				return fiber.NewError(fiber.StatusNotFound, "no cached data for requested station")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load station data")
		}
		return c.JSON(payload)
	})

	v1.Get("/stations/:sid/history", func(c *fiber.Ctx) error {
		st, err := lookupStation(c, stations)
		if err != nil {
			return err
		}

		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		series, err := service.History(c.UserContext(), st.ID, req.From, req.To)
		if err != nil {
			if errors.Is(err, weather.ErrNoSeries) {
				return fiber.NewError(fiber.StatusNotFound, "no weather history for requested station")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}

		points := make([]historyPoint, 0, len(series))
		for _, o := range series {
			points = append(points, historyPoint{
				T:    o.Timestamp.Format(time.RFC3339),
				Temp: o.Temperature,
				RH:   o.RelativeHumidity,
				Rain: o.Precipitation,
			})
		}

		return c.JSON(fiber.Map{
			"station":      st.ID,
			"from":         req.From,
			"to":           req.To,
			"observations": points,
		})
	})

	if dataDir != "" {
		app.Static("/data", dataDir, fiber.Static{
			Browse:        false,
			CacheDuration: time.Minute,
		})
	}
}

// historyPoint is a stored observation as-is; unlike the published payload,
// missing rain stays null here.
type historyPoint struct {
	T    string   `json:"t"`
	Temp *float64 `json:"temp"`
	RH   *float64 `json:"rh"`
	Rain *float64 `json:"rain"`
}

func lookupStation(c *fiber.Ctx, stations []weather.Station) (weather.Station, error) {
	sid := c.Params("sid")
	for _, st := range stations {
		if strings.EqualFold(st.ID, sid) {
			return st, nil
		}
	}
	return weather.Station{}, fiber.NewError(fiber.StatusNotFound, "unknown station")
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds. An unescaped '+'
// in an offset arrives as a space and is put back.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, strings.Replace(s, " ", "+", 1)); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
