package httphandlers

import (
	"github.com/go-chi/chi/v5"
)

func Routes(h *ApiHandler) chi.Router {
	r := chi.NewRouter()
	r.Route("/v1", func(rr chi.Router) {
		rr.Use(h.auth)
		rr.Post("/backups", h.CreateBackup)
		rr.Get("/backups", h.ListBackups)
		rr.Get("/backups/jobs/{id}", h.GetBackupJob)
		rr.Get("/backups/{id}/download", h.DownloadBackup)
		rr.Post("/restores", h.CreateRestore)
		rr.Get("/restores/{id}", h.GetRestoreJob)
		rr.Post("/retention/apply", h.ApplyRetention)
		rr.Post("/configurations/{id}/schedule/refresh", h.RefreshSchedule)
		rr.Get("/stats", h.GetStats)
		rr.Post("/gc", h.ForceGC)
	})
	r.Get("/health", h.HealthCheck)
	return r
}
