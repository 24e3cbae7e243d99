// Package v1 provides the REST API handlers used by the edap mobile app.
package v1

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edap/edap-server/internal/api/common"
	"github.com/edap/edap-server/internal/model"
	"github.com/edap/edap-server/internal/service"
	"github.com/edap/edap-server/internal/token"
	"github.com/edap/edap-server/internal/versions"
)

// LoginRequest is the body of POST /api/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the token of a successful login
type LoginResponse struct {
	Token string `json:"token"`
}

// StatsRequest is the body of POST /api/stats
type StatsRequest struct {
	Token      string `json:"token"`
	Platform   string `json:"platform"`
	Device     string `json:"device"`
	Language   string `json:"language"`
	Resolution string `json:"resolution"`
}

// DeviceRequest is the body of POST /api/user/{token}/firebase
type DeviceRequest struct {
	Token string `json:"token"`
}

// SettingRequest is the body of POST /api/user/{token}/settings/{action}.
// Mobile clients send the new value as "parameter"; "value" is also accepted.
type SettingRequest struct {
	Parameter json.RawMessage `json:"parameter"`
	Value     json.RawMessage `json:"value"`
}

// payload returns the submitted value, or nil when neither key carries one.
func (s SettingRequest) payload() json.RawMessage {
	for _, v := range []json.RawMessage{s.Parameter, s.Value} {
		if len(v) > 0 && string(v) != "null" {
			return v
		}
	}
	return nil
}

// SettingResponse carries the value of a setting
type SettingResponse struct {
	Value any `json:"value"`
}

// SettingsResponse carries the settings after a change
type SettingsResponse struct {
	Settings *model.NotificationSettings `json:"settings"`
}

// NewEventsResponse carries the pending change events
type NewEventsResponse struct {
	New []model.ChangeEvent `json:"new"`
}

// Routes defines the routes for the client API with dependency injection
type Routes struct {
	service service.Service
}

// NewRoutes creates a new Routes instance with the provided service
func NewRoutes(svc service.Service) *Routes {
	return &Routes{
		service: svc,
	}
}

// Router creates the router for the client API
func Router(svc service.Service) http.Handler {
	routes := NewRoutes(svc)

	r := chi.NewRouter()
	r.NotFound(common.NotFound)
	r.MethodNotAllowed(common.MethodNotAllowed)

	r.Post("/login", routes.login)
	r.Post("/stats", routes.stats)

	r.Route("/user/{token}", func(r chi.Router) {
		r.Use(requireToken)
		r.Get("/new", routes.newEvents)
		r.Get("/info", routes.info)
		r.Get("/classes", routes.classes)
		r.Get("/classes/{classId}/subjects", routes.subjects)
		r.Get("/classes/{classId}/subjects/{subjectId}", routes.subject)
		r.Get("/classes/{classId}/tests", routes.tests)
		r.Get("/classes/{classId}/absences", routes.absences)
		r.Get("/settings/{action}", routes.getSetting)
		r.Post("/settings/{action}", routes.applySetting)
		r.Post("/firebase", routes.registerDevice)
		r.Get("/logout", routes.logout)
	})

	return r
}

// requireToken rejects malformed tokens before they reach the store
func requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !token.Valid(chi.URLParam(r, "token")) {
			common.WriteErrorResponse(w, common.CodeTokenNonexistent, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the address set by the RealIP middleware without its port
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// login handles POST /api/login
//
// @Summary		Log in
// @Description	Returns the token for a username and password. A known pair answers without contacting the portal.
// @Tags			user
// @Accept			json
// @Produce		json
// @Param			body	body		LoginRequest	true	"Credentials"
// @Success		200		{object}	LoginResponse
// @Failure		400		{object}	common.ErrorResponse
// @Failure		401		{object}	common.ErrorResponse
// @Failure		500		{object}	common.ErrorResponse
// @Router			/api/login [post]
func (rr *Routes) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !common.DecodeJSON(w, r, &req) {
		return
	}

	res, err := rr.service.Login(r.Context(), req.Username, req.Password, clientIP(r))
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	slog.Debug("Login", "token", token.Short(res.Token), "fast", res.Fast)
	common.WriteJSONResponse(w, LoginResponse{Token: res.Token}, http.StatusOK)
}

// stats handles POST /api/stats
//
// @Summary		Report device details
// @Tags			user
// @Accept			json
// @Produce		json
// @Param			body	body		StatsRequest	true	"Device details"
// @Success		200		{object}	common.ResultResponse
// @Failure		400		{object}	common.ErrorResponse
// @Failure		401		{object}	common.ErrorResponse
// @Router			/api/stats [post]
func (rr *Routes) stats(w http.ResponseWriter, r *http.Request) {
	var req StatsRequest
	if !common.DecodeJSON(w, r, &req) {
		return
	}
	if !token.Valid(req.Token) {
		common.WriteErrorResponse(w, common.CodeTokenNonexistent, http.StatusUnauthorized)
		return
	}

	err := rr.service.RecordStats(r.Context(), req.Token, service.Stats{
		Platform:   req.Platform,
		Device:     req.Device,
		Language:   req.Language,
		Resolution: req.Resolution,
	})
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, common.OK, http.StatusOK)
}

// newEvents handles GET /api/user/{token}/new
//
// @Summary		Pending changes
// @Description	Returns the changes detected since the last call and clears them
// @Tags			user
// @Produce		json
// @Param			token	path		string	true	"User token"
// @Success		200		{object}	NewEventsResponse
// @Failure		401		{object}	common.ErrorResponse
// @Router			/api/user/{token}/new [get]
func (rr *Routes) newEvents(w http.ResponseWriter, r *http.Request) {
	events, err := rr.service.NewEvents(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, NewEventsResponse{New: events}, http.StatusOK)
}

// info handles GET /api/user/{token}/info
func (rr *Routes) info(w http.ResponseWriter, r *http.Request) {
	info, err := rr.service.Info(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, info, http.StatusOK)
}

// classes handles GET /api/user/{token}/classes
func (rr *Routes) classes(w http.ResponseWriter, r *http.Request) {
	classes, err := rr.service.Classes(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, map[string]any{"classes": classes}, http.StatusOK)
}

// classID parses {classId}. An unparsable position is reported like an
// unknown class.
func classID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := common.GetIntURLParam(r, "classId")
	if err != nil {
		common.WriteErrorResponse(w, common.CodeTokenNonexistent, http.StatusUnauthorized)
		return 0, false
	}
	return id, true
}

// subjects handles GET /api/user/{token}/classes/{classId}/subjects
func (rr *Routes) subjects(w http.ResponseWriter, r *http.Request) {
	cid, ok := classID(w, r)
	if !ok {
		return
	}
	subjects, err := rr.service.Subjects(r.Context(), chi.URLParam(r, "token"), cid)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, map[string]any{"subjects": subjects}, http.StatusOK)
}

// subject handles GET /api/user/{token}/classes/{classId}/subjects/{subjectId}
func (rr *Routes) subject(w http.ResponseWriter, r *http.Request) {
	cid, ok := classID(w, r)
	if !ok {
		return
	}
	sid, err := common.GetIntURLParam(r, "subjectId")
	if err != nil {
		common.WriteErrorResponse(w, common.CodeTokenNonexistent, http.StatusUnauthorized)
		return
	}
	subject, err := rr.service.Subject(r.Context(), chi.URLParam(r, "token"), cid, sid)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, subject, http.StatusOK)
}

// tests handles GET /api/user/{token}/classes/{classId}/tests
func (rr *Routes) tests(w http.ResponseWriter, r *http.Request) {
	cid, ok := classID(w, r)
	if !ok {
		return
	}
	tests, err := rr.service.Tests(r.Context(), chi.URLParam(r, "token"), cid)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, map[string]any{"tests": tests}, http.StatusOK)
}

// absences handles GET /api/user/{token}/classes/{classId}/absences
func (rr *Routes) absences(w http.ResponseWriter, r *http.Request) {
	cid, ok := classID(w, r)
	if !ok {
		return
	}
	absences, err := rr.service.Absences(r.Context(), chi.URLParam(r, "token"), cid)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, absences, http.StatusOK)
}

// getSetting handles GET /api/user/{token}/settings/{action}
//
// @Summary		Read a notification setting
// @Tags			settings
// @Produce		json
// @Param			token	path		string	true	"User token"
// @Param			action	path		string	true	"notif.disable, notif.ignore or notif.all"
// @Success		200		{object}	SettingResponse
// @Failure		400		{object}	common.ErrorResponse
// @Failure		401		{object}	common.ErrorResponse
// @Router			/api/user/{token}/settings/{action} [get]
func (rr *Routes) getSetting(w http.ResponseWriter, r *http.Request) {
	action, err := common.GetAndValidateURLParam(r, "action")
	if err != nil {
		common.WriteErrorResponse(w, common.CodeNonExistentSetting, http.StatusBadRequest)
		return
	}
	v, err := rr.service.GetSetting(r.Context(), chi.URLParam(r, "token"), action)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, SettingResponse{Value: v}, http.StatusOK)
}

// applySetting handles POST /api/user/{token}/settings/{action}
//
// @Summary		Change a notification setting
// @Tags			settings
// @Accept			json
// @Produce		json
// @Param			token	path		string			true	"User token"
// @Param			action	path		string			true	"notif.disable, notif.ignore.add or notif.ignore.del"
// @Param			body	body		SettingRequest	true	"New value"
// @Success		200		{object}	SettingsResponse
// @Failure		400		{object}	common.ErrorResponse
// @Failure		401		{object}	common.ErrorResponse
// @Router			/api/user/{token}/settings/{action} [post]
func (rr *Routes) applySetting(w http.ResponseWriter, r *http.Request) {
	action, err := common.GetAndValidateURLParam(r, "action")
	if err != nil {
		common.WriteErrorResponse(w, common.CodeNonExistentSetting, http.StatusBadRequest)
		return
	}
	var req SettingRequest
	if !common.DecodeJSON(w, r, &req) {
		return
	}
	value := req.payload()
	if len(value) == 0 {
		common.WriteErrorResponse(w, common.CodeInvalidData, http.StatusBadRequest)
		return
	}

	settings, err := rr.service.ApplySetting(r.Context(), chi.URLParam(r, "token"), action, value)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, SettingsResponse{Settings: settings}, http.StatusOK)
}

// registerDevice handles POST /api/user/{token}/firebase
func (rr *Routes) registerDevice(w http.ResponseWriter, r *http.Request) {
	var req DeviceRequest
	if !common.DecodeJSON(w, r, &req) {
		return
	}
	if err := rr.service.RegisterDevice(r.Context(), chi.URLParam(r, "token"), req.Token); err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, common.OK, http.StatusOK)
}

// logout handles GET /api/user/{token}/logout
//
// @Summary		Log out
// @Description	Stops syncing and deletes every record of the token
// @Tags			user
// @Produce		json
// @Param			token	path		string	true	"User token"
// @Success		200		{object}	common.ResultResponse
// @Failure		401		{object}	common.ErrorResponse
// @Router			/api/user/{token}/logout [get]
func (rr *Routes) logout(w http.ResponseWriter, r *http.Request) {
	if err := rr.service.Logout(r.Context(), chi.URLParam(r, "token")); err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, common.OK, http.StatusOK)
}

// HealthRouter creates a router for health check endpoints
func HealthRouter(svc service.Service) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(svc))
	r.Get("/version", versionHandler)

	return r
}

// healthHandler handles health check requests
//
// @Summary		Health check
// @Tags			system
// @Produce		json
// @Success		200	{object}	map[string]string
// @Router			/health [get]
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, map[string]string{"status": "healthy"}, http.StatusOK)
}

// readinessHandler reports whether the store answers
//
// @Summary		Readiness check
// @Tags			system
// @Produce		json
// @Success		200	{object}	map[string]string
// @Failure		503	{object}	common.ErrorResponse
// @Router			/readiness [get]
func readinessHandler(svc service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CheckReadiness(r.Context()); err != nil {
			slog.Warn("Readiness check failed", "error", err)
			common.WriteErrorResponse(w, common.CodeDatabaseConnection, http.StatusServiceUnavailable)
			return
		}
		common.WriteJSONResponse(w, map[string]string{"status": "ready"}, http.StatusOK)
	}
}

// versionHandler handles version information requests
//
// @Summary		Version information
// @Tags			system
// @Produce		json
// @Success		200	{object}	versions.VersionInfo
// @Router			/version [get]
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetVersionInfo(), http.StatusOK)
}
