package handlers

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/logger"
	"github.com/arzan03/coursehub/internal/services"
)

// CookieConfig names the session cookies of the two session kinds.
type CookieConfig struct {
	User   string
	Admin  string
	Secure bool
}

// Handler serves every HTTP endpoint on top of the service layer.
type Handler struct {
	svc     *services.Services
	cookies CookieConfig
	log     logger.Logger
}

// New creates the HTTP handlers.
func New(svc *services.Services, cookies CookieConfig, log logger.Logger) *Handler {
	return &Handler{svc: svc, cookies: cookies, log: log}
}

// ErrorHandler renders every error as the failure envelope. Internal errors
// are logged and their text is not exposed.
func ErrorHandler(log logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := apperr.Status(err)
		body := fiber.Map{"success": false, "error": apperr.Message(err)}
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			body["fields"] = ve.Fields
		}
		if status >= fiber.StatusInternalServerError {
			log.Error("request failed", err, c.Method(), c.Path())
		}
		return c.Status(status).JSON(body)
	}
}

func respond(c *fiber.Ctx, status int, payload fiber.Map) error {
	if payload == nil {
		payload = fiber.Map{}
	}
	payload["success"] = true
	return c.Status(status).JSON(payload)
}

func ok(c *fiber.Ctx, payload fiber.Map) error {
	return respond(c, fiber.StatusOK, payload)
}

func created(c *fiber.Ctx, payload fiber.Map) error {
	return respond(c, fiber.StatusCreated, payload)
}

func paged(c *fiber.Ctx, items interface{}, total int64, page db.Page) error {
	page = page.Normalize()
	return ok(c, fiber.Map{"items": items, "total": total, "page": page.Page, "limit": page.Limit})
}

func parseBody(c *fiber.Ctx, v interface{}) error {
	if err := c.BodyParser(v); err != nil {
		return errors.Wrap(apperr.ErrInvalidInput, "invalid request body")
	}
	return nil
}

func pageOf(c *fiber.Ctx) db.Page {
	return db.Page{Page: int64(c.QueryInt("page", 1)), Limit: int64(c.QueryInt("limit", 0))}
}

func idParam(c *fiber.Ctx, name string) (primitive.ObjectID, error) {
	return services.ParseID(name, c.Params(name))
}

// optionalID parses a query parameter that may be absent.
func optionalID(c *fiber.Ctx, name string) (primitive.ObjectID, error) {
	v := c.Query(name)
	if v == "" {
		return primitive.NilObjectID, nil
	}
	return services.ParseID(name, v)
}

func clientInfo(c *fiber.Ctx) services.ClientInfo {
	return services.ClientInfo{UserAgent: c.Get(fiber.HeaderUserAgent), IP: c.IP()}
}

func (h *Handler) setSessionCookie(c *fiber.Ctx, name, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// formFile opens a multipart upload. The caller must close the returned body.
func formFile(c *fiber.Ctx, field string) (services.Upload, io.Closer, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return services.Upload{}, nil, apperr.NewValidationError(field, field+" is required")
	}
	f, err := fh.Open()
	if err != nil {
		return services.Upload{}, nil, errors.Wrap(err, "opening upload")
	}
	return services.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	}, f, nil
}
