package http

import (
	"bytes"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/poonyc/internal/core/domain"
)

// maxQueryLen bounds address queries.
const maxQueryLen = 200

type restroomResponse struct {
	domain.RestroomRecord
	PhotoURL string `json:"photo_url,omitempty"`
}

// ListRestroomsHandler returns a page of restroom records.
func ListRestroomsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		recs, err := deps.Restrooms.List(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(paginate(c, recs))
	}
}

// CreateRestroomHandler validates and stores a submitted restroom.
func CreateRestroomHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in domain.NewRestroom
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		rec, err := deps.Restrooms.Create(c.UserContext(), in)
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Location("/v1/restrooms/" + rec.ID)
		return c.Status(fiber.StatusCreated).JSON(rec)
	}
}

// GetRestroomHandler returns one record, with a photo link when it has one.
func GetRestroomHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := deps.Restrooms.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}

		resp := restroomResponse{RestroomRecord: *rec}
		if rec.PhotoKey != "" {
			url, err := deps.Restrooms.PhotoURL(c.UserContext(), rec)
			if err != nil {
				LoggerFromCtx(c.UserContext()).Warn("failed to sign photo url", "record_id", rec.ID, "error", err)
			}
			resp.PhotoURL = url
		}
		return c.JSON(resp)
	}
}

// UploadPhotoHandler stores the raw request body as the restroom's photo.
func UploadPhotoHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := c.Body()
		ct := string(c.Request().Header.ContentType())
		key, err := deps.Restrooms.AttachPhoto(c.UserContext(), c.Params("id"), bytes.NewReader(body), int64(len(body)), ct)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"photo_key": key})
	}
}

// PinsHandler runs the pin pipeline once over every record.
func PinsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pins, err := deps.Pins.Load(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(pins)
	}
}

// GeocodeHandler resolves ?q= to a coordinate.
func GeocodeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		if len(q) > maxQueryLen {
			return errBadRequest(c, "query too long (max 200 characters)")
		}
		pt, err := deps.Search.Resolve(c.UserContext(), q)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(pt)
	}
}
