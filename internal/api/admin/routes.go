// Package admin provides the operator endpoints of the edap server.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/edap/edap-server/internal/api/common"
	"github.com/edap/edap-server/internal/model"
	"github.com/edap/edap-server/internal/service"
	"github.com/edap/edap-server/internal/sync"
)

const realm = "edap admin"

// Credentials protect the admin routes. PasswordHash is a bcrypt hash.
type Credentials struct {
	Username     string
	PasswordHash string
}

// NotificationRequest is the body of POST /admin/tokens/{token}/notification
type NotificationRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// SimulateResponse lists the events a simulated snapshot produced
type SimulateResponse struct {
	Events []model.ChangeEvent `json:"events"`
}

// WorkersResponse lists the running sync workers
type WorkersResponse struct {
	Workers []sync.WorkerInfo `json:"workers"`
	Count   int               `json:"count"`
}

// Routes handles the operator endpoints
type Routes struct {
	service service.Service
}

// Router creates the admin router. Every route requires basic auth.
func Router(svc service.Service, creds Credentials) http.Handler {
	routes := &Routes{service: svc}

	r := chi.NewRouter()
	r.Use(BasicAuth(creds))
	r.NotFound(common.NotFound)
	r.MethodNotAllowed(common.MethodNotAllowed)

	r.Get("/workers", routes.workers)
	r.Get("/counters", routes.counters)
	r.Post("/tokens/{token}/notification", routes.notification)
	r.Post("/tokens/{token}/simulate", routes.simulate)
	r.Post("/devices/check", routes.checkDevices)
	r.Post("/testuser", routes.testUser)

	return r
}

// BasicAuth checks the request against creds. The username comparison is
// constant time and the password is checked against the bcrypt hash even when
// the username is wrong.
func BasicAuth(creds Credentials) func(http.Handler) http.Handler {
	hash := []byte(creds.PasswordHash)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if ok {
				userOK := subtle.ConstantTimeCompare([]byte(user), []byte(creds.Username)) == 1
				passOK := bcrypt.CompareHashAndPassword(hash, []byte(pass)) == nil
				if userOK && passOK {
					next.ServeHTTP(w, r)
					return
				}
			}
			slog.Warn("Rejected admin request", "path", r.URL.Path, "remote", r.RemoteAddr)
			w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`", charset="UTF-8"`)
			common.WriteErrorResponse(w, common.CodeUnauthorized, http.StatusUnauthorized)
		})
	}
}

// workers handles GET /admin/workers
func (rr *Routes) workers(w http.ResponseWriter, _ *http.Request) {
	list := rr.service.Workers()
	if list == nil {
		list = []sync.WorkerInfo{}
	}
	common.WriteJSONResponse(w, WorkersResponse{Workers: list, Count: len(list)}, http.StatusOK)
}

// counters handles GET /admin/counters
func (rr *Routes) counters(w http.ResponseWriter, r *http.Request) {
	counters, err := rr.service.Counters(r.Context())
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, counters, http.StatusOK)
}

// notification handles POST /admin/tokens/{token}/notification
func (rr *Routes) notification(w http.ResponseWriter, r *http.Request) {
	var req NotificationRequest
	if !common.DecodeJSON(w, r, &req) {
		return
	}
	if err := rr.service.SendNotification(r.Context(), chi.URLParam(r, "token"), req.Title, req.Body); err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, common.ResultResponse{Result: "sent"}, http.StatusOK)
}

// simulate handles POST /admin/tokens/{token}/simulate. The body is a full
// snapshot applied as if it had just been fetched.
func (rr *Routes) simulate(w http.ResponseWriter, r *http.Request) {
	var snap model.ProfileSnapshot
	if !common.DecodeJSON(w, r, &snap) {
		return
	}
	events, err := rr.service.Simulate(r.Context(), chi.URLParam(r, "token"), &snap)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, SimulateResponse{Events: events}, http.StatusOK)
}

// checkDevices handles POST /admin/devices/check[?delete=true]
func (rr *Routes) checkDevices(w http.ResponseWriter, r *http.Request) {
	autoDelete := false
	if v := r.URL.Query().Get("delete"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			common.WriteErrorResponse(w, common.CodeInvalidData, http.StatusBadRequest)
			return
		}
		autoDelete = parsed
	}

	report, err := rr.service.CheckInactiveDevices(r.Context(), autoDelete)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, report, http.StatusOK)
}

// testUser handles POST /admin/testuser
func (rr *Routes) testUser(w http.ResponseWriter, r *http.Request) {
	u, err := rr.service.CreateTestUser(r.Context())
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, u, http.StatusCreated)
}
