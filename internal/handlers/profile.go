package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/beliefatlas/apiserver/internal/services"
	"github.com/beliefatlas/apiserver/internal/store"
	"github.com/beliefatlas/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	defaultPage        = 1
	defaultLimit       = 50
	maxLimit           = 100
	maxMultipartMemory = 8 << 20
	maxAvatarBytes     = 4 << 20
	formFieldAvatar    = "avatar"
)

// ProfileHandler provides HTTP handlers for belief profiles.
type ProfileHandler struct {
	profileService *services.ProfileService
	exportService  *services.ExportService
	userService    *services.UserService
}

// NewProfileHandler constructs a handler with the provided services.
func NewProfileHandler(profileService *services.ProfileService, exportService *services.ExportService, userService *services.UserService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		exportService:  exportService,
		userService:    userService,
	}
}

// ProfileRouter registers profile routes on the given router. All
// routes require authentication; listing and export additionally
// require a staff role (TEACHER or ADMIN).
func ProfileRouter(
	r chi.Router,
	profileService *services.ProfileService,
	exportService *services.ExportService,
	userService *services.UserService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewProfileHandler(profileService, exportService, userService)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}
	r.With(handler.requireStaff).Get("/", handler.ListProfiles)
	r.With(handler.requireStaff).Get("/export", handler.ExportRoster)
	r.Get("/me", handler.GetMyProfile)
	r.Put("/me", handler.SaveMyProfile)
	r.Get("/me/avatar", handler.GetAvatar)
	r.Post("/me/avatar", handler.UploadAvatar)
	r.Post("/me/regenerate", handler.RequestRegeneration)
	r.With(handler.requireStaff).Get("/{profileID}", handler.GetProfile)
}

// ListProfiles serves the paginated, filtered roster the search
// pipeline consumes: page, limit, search, role, completed in; one
// page of profiles plus a pre-filter total out.
func (h *ProfileHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter, err := parseProfileFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.Offset = offset
	filter.Limit = limit

	items, total, err := h.profileService.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list profiles")
		return
	}

	resp := ProfileListResponse{
		Profiles: items,
		Page:     page,
		Limit:    limit,
		Total:    total,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "profileID"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid profile id")
		return
	}

	profile, err := h.profileService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch profile")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	profile, err := h.profileService.GetByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch profile")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// SaveMyProfile creates or updates the caller's profile from the
// submitted form fields.
func (h *ProfileHandler) SaveMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ProfileSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	profile := types.Profile{
		UserID:            userID,
		IdeologyScores:    req.IdeologyScores,
		OpinionPlasticity: req.OpinionPlasticity,
		BeliefSummary:     strings.TrimSpace(req.BeliefSummary),
		IsCompleted:       req.IsCompleted,
	}

	saved, err := h.profileService.Save(r.Context(), profile)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, saved)
}

// UploadAvatar accepts a multipart image upload for the caller.
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, err := parseAvatarFile(r.MultipartForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, err := h.profileService.UploadAvatar(r.Context(), userID, file.Filename, file.ContentType, file.Data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"avatar_key": key})
}

// GetAvatar streams the caller's stored avatar image.
func (h *ProfileHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	reader, key, err := h.profileService.DownloadAvatar(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "avatar not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch avatar")
		return
	}
	defer reader.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

// RequestRegeneration asks the worker to recompute the caller's
// derived profile fields.
func (h *ProfileHandler) RequestRegeneration(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.profileService.RequestRegeneration(r.Context(), userID, "manual_request"); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to request regeneration")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// ExportRoster streams a full CSV export of the matching profiles.
func (h *ProfileHandler) ExportRoster(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter, err := parseProfileFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, key, err := h.exportService.ExportRoster(r.Context(), filter, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to export roster")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "roster.csv"))
	w.Header().Set("X-Export-Key", key)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// AvatarFile represents an uploaded avatar image.
type AvatarFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ProfileSaveRequest is the JSON payload for profile saves.
type ProfileSaveRequest struct {
	IdeologyScores    map[string]float64 `json:"ideology_scores"`
	OpinionPlasticity *float64           `json:"opinion_plasticity"`
	BeliefSummary     string             `json:"belief_summary"`
	IsCompleted       bool               `json:"is_completed"`
}

// ProfileListResponse is the paginated list response payload.
type ProfileListResponse struct {
	Profiles []types.Profile `json:"profiles"`
	Page     int             `json:"page"`
	Limit    int             `json:"limit"`
	Total    int             `json:"total"`
}

func parsePagination(r *http.Request) (page, limit, offset int, err error) {
	page = defaultPage
	limit = defaultLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, 0, errors.New("invalid page")
		}
	}

	rawLimit := strings.TrimSpace(r.URL.Query().Get("limit"))
	if rawLimit == "" {
		rawLimit = strings.TrimSpace(r.URL.Query().Get("per_page"))
	}
	if rawLimit != "" {
		limit, err = strconv.Atoi(rawLimit)
		if err != nil || limit < 1 {
			return 0, 0, 0, errors.New("invalid limit")
		}
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	offset = (page - 1) * limit
	return page, limit, offset, nil
}

func parseProfileFilter(r *http.Request) (store.ProfileListFilter, error) {
	var filter store.ProfileListFilter

	filter.Search = strings.TrimSpace(r.URL.Query().Get("search"))

	if role := strings.TrimSpace(r.URL.Query().Get("role")); role != "" {
		if !types.ValidRole(role) {
			return store.ProfileListFilter{}, errors.New("invalid role")
		}
		filter.Role = role
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("completed")); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			return store.ProfileListFilter{}, errors.New("invalid completed flag")
		}
		filter.Completed = &completed
	}

	return filter, nil
}

func parseAvatarFile(form *multipart.Form) (AvatarFile, error) {
	if form == nil {
		return AvatarFile{}, errors.New("missing form data")
	}

	files := form.File[formFieldAvatar]
	if len(files) == 0 {
		return AvatarFile{}, errors.New("avatar file is required")
	}
	if len(files) > 1 {
		return AvatarFile{}, errors.New("only one avatar file is allowed")
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		return AvatarFile{}, fmt.Errorf("failed to read avatar file: %w", err)
	}

	data, err := readFileLimited(file, maxAvatarBytes)
	_ = file.Close()
	if err != nil {
		return AvatarFile{}, err
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return AvatarFile{
		Filename:    fileHeader.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}

// requireStaff allows only TEACHER and ADMIN accounts through.
func (h *ProfileHandler) requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := h.userService.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to load user")
			return
		}

		if user.Role != types.RoleTeacher && user.Role != types.RoleAdmin {
			writeError(w, http.StatusForbidden, "staff access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
