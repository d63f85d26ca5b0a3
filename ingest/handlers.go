package ingest

import (
	"bufio"
	"strings"

	"github.com/gofiber/fiber/v2"

	"terraform-logviewer-go/database"
	"terraform-logviewer-go/logentry"
	"terraform-logviewer-go/utils"
)

// Upload handles POST /imports/upload.
//
// @Summary Upload a log file
// @Description Ingests a Terraform log file line by line, returning the session counters
// @Tags imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Log file"
// @Success 200 {object} map[string]interface{}
// @Router /api/imports/upload [post]
func Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Missing file")
	}

	fileName := file.Filename
	if !utils.HasText(fileName) {
		fileName = "upload.json"
	}

	f, err := file.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Unreadable file")
	}
	defer f.Close()

	session := StartSession(fileName)

	scanner := bufio.NewScanner(f)

	// Terraform trace lines with embedded payloads can get very long.
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		IngestLine(session, line)
	}

	return c.JSON(fiber.Map{
		"import_id": session.ImportID,
		"file_name": session.FileName,
		"total":     session.Total,
		"saved":     session.Saved,
		"failed":    session.Failed,
	})
}

// ListImports handles GET /imports: one summary per import id.
func ListImports(c *fiber.Ctx) error {
	db := database.DBConn

	var summaries []logentry.ImportSummary

	db.Raw("SELECT import_id, MIN(file_name) AS file_name, COUNT(*) AS total, " +
		"MIN(ts) AS first_timestamp, MAX(ts) AS last_timestamp " +
		"FROM tf_log_entries WHERE COALESCE(import_id, '') != '' " +
		"GROUP BY import_id ORDER BY MAX(ts) DESC").Scan(&summaries)

	if len(summaries) > 0 {
		return c.JSON(summaries)
	} else {
		// Force [] rather than null to be returned.
		return c.JSON(make([]string, 0))
	}
}
