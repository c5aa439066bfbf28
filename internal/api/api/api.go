package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"

	"checkinDesk/cmd/middleware"
	"checkinDesk/internal/service"
)

type Routers struct {
	Service service.Service
	Tokens  middleware.Verifier

	// ProfileDir is served read-only under ProfileURL.
	ProfileDir string
	ProfileURL string
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.New(corsConfig()))

	app.GET("/healthz", func(c *ginext.Context) {
		c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if r.ProfileDir != "" && r.ProfileURL != "" {
		app.Static(r.ProfileURL, r.ProfileDir)
	}

	apiGroup := app.Group("/api")
	apiGroup.POST("/auth/login", r.Service.Login)
	apiGroup.POST("/checkin", r.Service.Checkin)

	protected := apiGroup.Group("")
	protected.Use(middleware.Auth(r.Tokens))

	protected.POST("/upload", r.Service.Upload)
	protected.GET("/attendees", r.Service.Attendees)
	protected.GET("/stats", r.Service.Stats)

	protected.GET("/reports/organizations", r.Service.OrganizationsReport)
	protected.GET("/reports/regions", r.Service.RegionsReport)
	protected.GET("/reports/positions", r.Service.PositionsReport)
	protected.GET("/reports/checkin-trend", r.Service.CheckinTrend)
	protected.GET("/reports/gender", r.Service.GenderReport)

	protected.GET("/download/excel", r.Service.DownloadExcel)
	protected.GET("/template/csv", r.Service.DownloadTemplate)

	protected.GET("/admins", r.Service.ListAdmins)
	protected.POST("/admins", r.Service.CreateAdmin)
	protected.DELETE("/admins", r.Service.DeleteAdmin)
	protected.GET("/admin/profile", r.Service.GetProfile)
	protected.PUT("/admin/profile", r.Service.UpdateProfile)
	protected.POST("/upload/profile-picture", r.Service.UploadProfilePicture)

	protected.GET("/notifications", r.Service.ListNotifications)
	protected.POST("/notifications", r.Service.CreateNotification)
	protected.PATCH("/notifications/:id/read", r.Service.MarkNotificationRead)

	protected.GET("/settings", r.Service.GetSettings)
	protected.PUT("/settings", r.Service.UpdateSettings)

	return app
}

// corsConfig is cors.Default plus the Authorization header and the
// attachment filename of downloads.
func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AddAllowHeaders("Authorization")
	cfg.AddExposeHeaders("Content-Disposition")
	return cfg
}
