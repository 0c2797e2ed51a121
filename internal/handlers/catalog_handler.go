package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/middleware"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/services"
)

func courseFilter(c *fiber.Ctx) (db.CourseFilter, error) {
	category, err := optionalID(c, "category")
	if err != nil {
		return db.CourseFilter{}, err
	}
	return db.CourseFilter{CategoryID: category, Query: strings.TrimSpace(c.Query("q")), Page: pageOf(c)}, nil
}

// List published courses
func (h *Handler) ListCourses(c *fiber.Ctx) error {
	f, err := courseFilter(c)
	if err != nil {
		return err
	}
	courses, total, err := h.svc.Courses.ListPublished(c.UserContext(), f)
	if err != nil {
		return err
	}
	return paged(c, courses, total, f.Page)
}

// GetCourse returns a course; drafts are visible to course managers only
func (h *Handler) GetCourse(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	course, err := h.svc.Courses.Get(c.UserContext(), id, middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"course": course})
}

// List courses in every status for the admin panel
func (h *Handler) AdminListCourses(c *fiber.Ctx) error {
	f, err := courseFilter(c)
	if err != nil {
		return err
	}
	f.Status = models.CourseStatus(c.Query("status"))
	courses, total, err := h.svc.Courses.AdminList(c.UserContext(), middleware.CurrentUser(c), f)
	if err != nil {
		return err
	}
	return paged(c, courses, total, f.Page)
}

// CreateCourse adds a draft course
func (h *Handler) CreateCourse(c *fiber.Ctx) error {
	var in services.CourseInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	course, err := h.svc.Courses.Create(c.UserContext(), middleware.CurrentUser(c), in)
	if err != nil {
		return err
	}
	return created(c, fiber.Map{"course": course})
}

// UpdateCourse edits a course
func (h *Handler) UpdateCourse(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in services.CourseInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	course, err := h.svc.Courses.Update(c.UserContext(), middleware.CurrentUser(c), id, in)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"course": course})
}

// DeleteCourse removes a course
func (h *Handler) DeleteCourse(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Courses.Delete(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return err
	}
	return ok(c, fiber.Map{"message": "course deleted"})
}

// SetCourseStatus changes the publication status of a course
func (h *Handler) SetCourseStatus(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in struct {
		Status string `json:"status"`
	}
	if err := parseBody(c, &in); err != nil {
		return err
	}
	course, err := h.svc.Courses.SetStatus(c.UserContext(), middleware.CurrentUser(c), id, models.CourseStatus(in.Status))
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"course": course})
}

// UploadCourseImage checks edit rights before storing the file so rejected
// requests leave no orphaned objects.
func (h *Handler) UploadCourseImage(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Courses.Editable(c.UserContext(), actor, id); err != nil {
		return err
	}
	up, body, err := formFile(c, "file")
	if err != nil {
		return err
	}
	defer body.Close()

	m, err := h.svc.Media.Upload(c.UserContext(), actor.ID, up, models.MediaImage)
	if err != nil {
		return err
	}
	course, err := h.svc.Courses.SetImage(c.UserContext(), actor, id, m.URL)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"course": course, "media": m})
}

// List all categories
func (h *Handler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.svc.Categories.List(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"items": categories})
}

// Get category details by ID
func (h *Handler) GetCategory(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	category, err := h.svc.Categories.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"category": category})
}

// CreateCategory adds a category
func (h *Handler) CreateCategory(c *fiber.Ctx) error {
	var in services.CategoryInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	category, err := h.svc.Categories.Create(c.UserContext(), middleware.CurrentUser(c), in)
	if err != nil {
		return err
	}
	return created(c, fiber.Map{"category": category})
}

// UpdateCategory renames a category
func (h *Handler) UpdateCategory(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in services.CategoryInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	category, err := h.svc.Categories.Update(c.UserContext(), middleware.CurrentUser(c), id, in)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"category": category})
}

// DeleteCategory removes an unused category
func (h *Handler) DeleteCategory(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Categories.Delete(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return err
	}
	return ok(c, fiber.Map{"message": "category deleted"})
}

func (h *Handler) listTracks(c *fiber.Ctx, publishedOnly bool) error {
	category, err := optionalID(c, "category")
	if err != nil {
		return err
	}
	tracks, err := h.svc.Tracks.List(c.UserContext(), category, publishedOnly)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"items": tracks})
}

// List career tracks with their published courses
func (h *Handler) ListTracks(c *fiber.Ctx) error {
	return h.listTracks(c, true)
}

// List career tracks with every course
func (h *Handler) AdminListTracks(c *fiber.Ctx) error {
	return h.listTracks(c, false)
}

// Get career track details by ID
func (h *Handler) GetTrack(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	track, err := h.svc.Tracks.Get(c.UserContext(), id, true)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"track": track})
}

// CreateTrack adds a career track
func (h *Handler) CreateTrack(c *fiber.Ctx) error {
	var in services.TrackInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	track, err := h.svc.Tracks.Create(c.UserContext(), middleware.CurrentUser(c), in)
	if err != nil {
		return err
	}
	return created(c, fiber.Map{"track": track})
}

// UpdateTrack edits a career track
func (h *Handler) UpdateTrack(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in services.TrackInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	track, err := h.svc.Tracks.Update(c.UserContext(), middleware.CurrentUser(c), id, in)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"track": track})
}

// DeleteTrack removes a career track
func (h *Handler) DeleteTrack(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Tracks.Delete(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return err
	}
	return ok(c, fiber.Map{"message": "track deleted"})
}

// List announcements visible to the caller
func (h *Handler) ListAnnouncements(c *fiber.Ctx) error {
	page := pageOf(c)
	items, total, err := h.svc.Announcements.List(c.UserContext(), middleware.CurrentUser(c), page)
	if err != nil {
		return err
	}
	return paged(c, items, total, page)
}

// CreateAnnouncement posts an announcement
func (h *Handler) CreateAnnouncement(c *fiber.Ctx) error {
	var in services.AnnouncementInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	a, err := h.svc.Announcements.Create(c.UserContext(), middleware.CurrentUser(c), in)
	if err != nil {
		return err
	}
	return created(c, fiber.Map{"announcement": a})
}

// UpdateAnnouncement edits an announcement
func (h *Handler) UpdateAnnouncement(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in services.AnnouncementInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	a, err := h.svc.Announcements.Update(c.UserContext(), middleware.CurrentUser(c), id, in)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"announcement": a})
}

// DeleteAnnouncement removes an announcement
func (h *Handler) DeleteAnnouncement(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Announcements.Delete(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return err
	}
	return ok(c, fiber.Map{"message": "announcement deleted"})
}
