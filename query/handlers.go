package query

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// GetLogs handles GET /logs.
//
// @Summary Search logs
// @Description Returns a page of records matching the filter, or a page of request-id groups when group_by_req_id is set
// @Tags logs
// @Produce json
// @Param page query integer false "Page index (default 0)"
// @Param size query integer false "Page size (1..500, default 50)"
// @Param ts_from query string false "RFC-3339 lower time bound"
// @Param ts_to query string false "RFC-3339 upper time bound"
// @Param level query string false "Level filter"
// @Param section query string false "Section filter: plan, apply, unknown"
// @Param unread_only query boolean false "Unread records only"
// @Param q query string false "Free text search over message, module and raw JSON"
// @Param sort_by query string false "Sort field"
// @Param sort_desc query boolean false "Sort descending"
// @Param group_by_req_id query boolean false "Group results by request id"
// @Success 200 {object} map[string]interface{}
// @Router /api/logs [get]
func GetLogs(c *fiber.Ctx) error {
	p := ParamsFromRequest(c)

	if p.GroupByReqID {
		total, groups, err := SearchGroups(p)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Group query failed")
		}
		return c.JSON(fiber.Map{
			"total_groups": total,
			"groups":       groups,
		})
	}

	total, entries, err := Search(p)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Query failed")
	}
	return c.JSON(fiber.Map{
		"total": total,
		"logs":  entries,
	})
}

// GetLog handles GET /logs/:id, returning one record with its bodies.
func GetLog(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid ID")
	}

	entry, err := FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Log entry not found")
	} else if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Query failed")
	}

	return c.JSON(entry)
}

// ExportLogs handles GET /logs/export: the full filtered list, no paging.
func ExportLogs(c *fiber.Ctx) error {
	entries, err := Export(ParamsFromRequest(c))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Export failed")
	}
	return c.JSON(entries)
}

// ExportLogGroups handles GET /logs/export/groups: every group, ordered by
// last activity.
func ExportLogGroups(c *fiber.Ctx) error {
	groups, err := ExportGroups(ParamsFromRequest(c))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Export failed")
	}
	return c.JSON(groups)
}

// GetTimeline handles GET /logs/timeline.
func GetTimeline(c *fiber.Ctx) error {
	points, err := Timeline(
		c.Query("req_id", ""),
		parseTimeParam(c.Query("ts_from", "")),
		parseTimeParam(c.Query("ts_to", "")),
		c.Query("import_id", ""),
	)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Timeline query failed")
	}
	return c.JSON(points)
}

type markReadRequest struct {
	IDs   []uint64 `json:"ids"`
	ReqID string   `json:"req_id"`
	Read  bool     `json:"read"`
}

// PostMarkRead handles POST /logs/markread.
func PostMarkRead(c *fiber.Ctx) error {
	var req markReadRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	updated, err := MarkRead(req.IDs, req.ReqID, req.Read)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Update failed")
	}

	return c.JSON(fiber.Map{"updated": updated})
}
