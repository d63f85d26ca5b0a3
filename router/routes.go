package router

import (
	"github.com/gofiber/fiber/v2"

	"terraform-logviewer-go/ingest"
	"terraform-logviewer-go/plugin"
	"terraform-logviewer-go/query"
)

func SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	api.Post("/imports/upload", ingest.Upload)
	api.Get("/imports", ingest.ListImports)

	api.Get("/logs", query.GetLogs)
	api.Get("/logs/export", query.ExportLogs)
	api.Get("/logs/export/groups", query.ExportLogGroups)
	api.Get("/logs/timeline", query.GetTimeline)
	api.Post("/logs/markread", query.PostMarkRead)
	api.Get("/logs/:id", query.GetLog)

	api.Post("/plugin/demo", plugin.PostDemo)
}
