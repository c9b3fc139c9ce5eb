package httphandlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"dataguard/internal/manager"
	"dataguard/internal/service"
	"dataguard/internal/storage"
	"dataguard/internal/types"
)

type ApiHandler struct {
	backupService    service.BackupService
	retentionService service.RetentionService
	dataManager      manager.DataManager
	validate         *validator.Validate
	accessKey        string
}

func NewApiHandler(backup service.BackupService, retention service.RetentionService,
	dm manager.DataManager, accessKey string) *ApiHandler {
	return &ApiHandler{
		backupService:    backup,
		retentionService: retention,
		dataManager:      dm,
		validate:         validator.New(),
		accessKey:        accessKey,
	}
}

func (h *ApiHandler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	var params types.CreateBackupParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		badRequest(w, err)
		return
	}
	if err := h.validate.Struct(params); err != nil {
		badRequest(w, err)
		return
	}

	jobID, err := h.backupService.CreateBackup(r.Context(), params.ConfigurationID)
	if err != nil {
		if errors.Is(err, service.ErrConfigurationDisabled) {
			badRequest(w, err)
			return
		}
		serverError(w, err)
		return
	}
	accepted(w, "backup started", map[string]interface{}{"job_id": jobID})
}

func (h *ApiHandler) GetBackupJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, err)
		return
	}

	job, err := h.backupService.GetBackupJob(r.Context(), id)
	if err != nil {
		notFound(w, err)
		return
	}
	ok(w, "", job)
}

func (h *ApiHandler) ListBackups(w http.ResponseWriter, r *http.Request) {
	configurationID, err := uuid.Parse(r.URL.Query().Get("configuration_id"))
	if err != nil {
		badRequest(w, errors.New("configuration_id is required"))
		return
	}

	jobs, err := h.backupService.ListBackups(r.Context(), configurationID)
	if err != nil {
		serverError(w, err)
		return
	}
	ok(w, "", jobs)
}

func (h *ApiHandler) DownloadBackup(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, err)
		return
	}

	f, err := h.backupService.Download(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			notFound(w, err)
			return
		}
		serverError(w, err)
		return
	}
	defer f.Content.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename="+f.Stat.Name)
	if _, err := io.Copy(w, f.Content); err != nil {
		return
	}
}

func (h *ApiHandler) CreateRestore(w http.ResponseWriter, r *http.Request) {
	var params types.CreateRestoreParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		badRequest(w, err)
		return
	}
	if err := h.validate.Struct(params); err != nil {
		badRequest(w, err)
		return
	}

	jobID, err := h.backupService.CreateRestore(r.Context(), params.BackupID, params.Options)
	if err != nil {
		if errors.Is(err, service.ErrBackupNotRestorable) {
			badRequest(w, err)
			return
		}
		serverError(w, err)
		return
	}
	accepted(w, "restore started", map[string]interface{}{"job_id": jobID})
}

func (h *ApiHandler) GetRestoreJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, err)
		return
	}

	job, err := h.backupService.GetRestoreJob(r.Context(), id)
	if err != nil {
		notFound(w, err)
		return
	}
	ok(w, "", job)
}

func (h *ApiHandler) ApplyRetention(w http.ResponseWriter, r *http.Request) {
	var params types.ApplyRetentionParams
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			badRequest(w, err)
			return
		}
	}

	result, err := h.retentionService.Apply(r.Context(), params.OrganizationID)
	if err != nil {
		serverError(w, err)
		return
	}
	ok(w, "retention applied", result)
}

func (h *ApiHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	organizationID, err := uuid.Parse(r.URL.Query().Get("organization_id"))
	if err != nil {
		badRequest(w, errors.New("organization_id is required"))
		return
	}

	stats, err := h.dataManager.GetStats(r.Context(), organizationID)
	if err != nil {
		serverError(w, err)
		return
	}
	ok(w, "", stats)
}

func (h *ApiHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ok(w, "", h.dataManager.PerformHealthCheck(r.Context()))
}

func (h *ApiHandler) RefreshSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, err)
		return
	}

	if err := h.dataManager.RefreshSchedule(r.Context(), id); err != nil {
		serverError(w, err)
		return
	}
	ok(w, "schedule refreshed", nil)
}

func (h *ApiHandler) ForceGC(w http.ResponseWriter, r *http.Request) {
	organizationID, err := uuid.Parse(r.URL.Query().Get("organization_id"))
	if err != nil {
		badRequest(w, errors.New("organization_id is required"))
		return
	}

	report, err := h.dataManager.ForceGarbageCollection(r.Context(), organizationID)
	if err != nil {
		serverError(w, err)
		return
	}
	ok(w, "garbage collection finished", report)
}

func (h *ApiHandler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.accessKey != "" && r.Header.Get(authorizationHeader) != h.accessKey {
			unauthorized(w, errors.New("access denied"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
