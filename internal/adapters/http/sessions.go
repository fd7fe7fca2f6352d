package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/poonyc/internal/core/domain"
	"github.com/samirrijal/poonyc/internal/core/usecases"
)

type sessionResponse struct {
	ID   string            `json:"id"`
	View domain.ScreenView `json:"view"`
}

type permissionRequest struct {
	Granted *bool `json:"granted"`
}

type locationRequest struct {
	Lat       *float64  `json:"lat"`
	Lon       *float64  `json:"lon"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

type selectRequest struct {
	Index *int `json:"index"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type nearestResponse struct {
	Pin      domain.Pin `json:"pin"`
	Distance float64    `json:"distance_m"`
}

// sessionHandler resolves :id to an open session before calling fn.
func sessionHandler(deps *Dependencies, fn func(c *fiber.Ctx, s *usecases.ExploreSession) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return fn(c, s)
	}
}

// viewOrError answers with the session's current view, or maps err.
func viewOrError(c *fiber.Ctx, s *usecases.ExploreSession, err error) error {
	if err != nil {
		return errFromDomain(c, err)
	}
	return c.JSON(s.View())
}

// CreateSessionHandler opens an explore session centred near the caller.
func CreateSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := deps.Sessions.Create(c.IP())
		c.Location("/v1/sessions/" + s.ID())
		return c.Status(fiber.StatusCreated).JSON(sessionResponse{ID: s.ID(), View: s.View()})
	}
}

// SessionViewHandler returns the session's view state and advisories.
func SessionViewHandler(deps *Dependencies) fiber.Handler {
	return sessionHandler(deps, func(c *fiber.Ctx, s *usecases.ExploreSession) error {
		return c.JSON(sessionResponse{ID: s.ID(), View: s.View()})
	})
}

// CloseSessionHandler tears the session down.
func CloseSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.Close(c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// PermissionHandler relays the client's answer to the location prompt.
func PermissionHandler(deps *Dependencies) fiber.Handler {
	return sessionHandler(deps, func(c *fiber.Ctx, s *usecases.ExploreSession) error {
		var req permissionRequest
		if err := c.BodyParser(&req); err != nil || req.Granted == nil {
			return errBadRequest(c, "granted is required")
		}
		sessionLogger(c).Debug("location permission reported", "granted", *req.Granted)
		return viewOrError(c, s, s.ReportPermission(*req.Granted))
	})
}

// ReportLocationHandler feeds a position fix from the client.
func ReportLocationHandler(deps *Dependencies) fiber.Handler {
	return sessionHandler(deps, func(c *fiber.Ctx, s *usecases.ExploreSession) error {
		var req locationRequest
		if err := c.BodyParser(&req); err != nil || req.Lat == nil || req.Lon == nil {
			return errBadRequest(c, "lat and lon are required")
		}
		if req.Accuracy < 0 {
			return errBadRequest(c, "accuracy must not be negative")
		}
		fix := domain.LiveLocation{
			Coordinate: domain.GeoPoint{Lat: *req.Lat, Lon: *req.Lon},
			Accuracy:   req.Accuracy,
			Timestamp:  req.Timestamp,
		}
		return viewOrError(c, s, s.ReportFix(fix))
	})
}

// LoseLocationHandler reports that the device lost its fix.
func LoseLocationHandler(deps *Dependencies) fiber.Handler {
	return sessionHandler(deps, func(c *fiber.Ctx, s *usecases.ExploreSession) error {
		return viewOrError(c, s, s.LoseFix())
	})
}

// SelectPinHandler selects the pin at {index}, or clears the selection for null.
func SelectPinHandler(deps *Dependencies) fiber.Handler {
	return sessionHandler(deps, func(c *fiber.Ctx, s *usecases.ExploreSession) error {
		var req selectRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		return viewOrError(c, s, s.SelectIndex(req.Index))
	})
}

// ToggleRouteHandler flips the route overlay. A refused toggle still
// answers 200; the reason is in the view's advisories.
func ToggleRouteHandler(deps *Dependencies) fiber.Handler {
	return sessionHandler(deps, func(c *fiber.Ctx, s *usecases.ExploreSession) error {
		_, err := s.ToggleRoute()
		return viewOrError(c, s, err)
	})
}

// SetRegionHandler moves the camera.
func SetRegionHandler(deps *Dependencies) fiber.Handler {
	return sessionHandler(deps, func(c *fiber.Ctx, s *usecases.ExploreSession) error {
		var r domain.Region
		if err := c.BodyParser(&r); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		return viewOrError(c, s, s.SetRegion(r))
	})
}

// SessionSearchHandler centres the session's map on an address.
func SessionSearchHandler(deps *Dependencies) fiber.Handler {
	return sessionHandler(deps, func(c *fiber.Ctx, s *usecases.ExploreSession) error {
		var req searchRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if len(req.Query) > maxQueryLen {
			return errBadRequest(c, "query too long (max 200 characters)")
		}
		_, err := s.Search(c.UserContext(), req.Query)
		return viewOrError(c, s, err)
	})
}

// RecenterHandler moves the map back onto the live location.
func RecenterHandler(deps *Dependencies) fiber.Handler {
	return sessionHandler(deps, func(c *fiber.Ctx, s *usecases.ExploreSession) error {
		return viewOrError(c, s, s.Recenter())
	})
}

// ReloadHandler re-runs the pin pipeline and waits for it.
func ReloadHandler(deps *Dependencies) fiber.Handler {
	return sessionHandler(deps, func(c *fiber.Ctx, s *usecases.ExploreSession) error {
		return viewOrError(c, s, s.Reload(c.UserContext()))
	})
}

// VisiblePinsHandler lists the pins inside the session's region.
func VisiblePinsHandler(deps *Dependencies) fiber.Handler {
	return sessionHandler(deps, func(c *fiber.Ctx, s *usecases.ExploreSession) error {
		pins := s.VisiblePins()
		if pins == nil {
			pins = []domain.Pin{}
		}
		return c.JSON(pins)
	})
}

// NearestPinHandler returns the pin closest to the live location.
func NearestPinHandler(deps *Dependencies) fiber.Handler {
	return sessionHandler(deps, func(c *fiber.Ctx, s *usecases.ExploreSession) error {
		pin, dist, err := s.NearestPin()
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(nearestResponse{Pin: pin, Distance: dist})
	})
}
