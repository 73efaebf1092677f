// Package stub is a self-contained in-memory rendition of the huntlab
// backend, close enough on the wire for offline development and
// end-to-end client tests: JWT token pairs, report CRUD with ownership
// rules, DRF-style error bodies.
package stub

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"huntlab.org/internal/reports"
	"huntlab.org/internal/session"
)

const maxBodyBytes = 4 << 20

// API is the HTTP layer of the stub backend.
type API struct {
	mux    *http.ServeMux
	store  *store
	secret []byte
}

func New(secret string) *API {
	a := &API{
		mux:    http.NewServeMux(),
		store:  newStore(),
		secret: []byte(secret),
	}

	a.mux.HandleFunc("POST /api/v1/token/", a.tokenPair)
	a.mux.HandleFunc("POST /api/v1/token/refresh/", a.tokenRefresh)
	a.mux.HandleFunc("POST /api/v1/auth/register/", a.register)
	a.mux.HandleFunc("GET /api/v1/auth/me/", a.authed(a.me))
	a.mux.HandleFunc("POST /api/v1/auth/logout/", a.authed(a.logout))

	a.mux.HandleFunc("GET /api/v1/reports/", a.authed(a.listReports))
	a.mux.HandleFunc("GET /api/v1/reports/mine/", a.authed(a.listMine))
	a.mux.HandleFunc("GET /api/v1/reports/{id}/", a.authed(a.getReport))
	a.mux.HandleFunc("PATCH /api/v1/reports/{id}/", a.authed(a.patchReport))
	a.mux.HandleFunc("POST /api/v1/reports/create/", a.authed(a.createReport))
	a.mux.HandleFunc("DELETE /api/v1/reports/{id}/delete/", a.authed(a.deleteReport))

	return a
}

// Seed registers an account without going through the HTTP surface.
func (a *API) Seed(username, password string, role session.Role) session.UserProfile {
	profile, _ := a.store.addAccount(username, username+"@example.test", password, "", role)
	return profile
}

// Handler returns the mux wrapped with logging and a body size cap.
func (a *API) Handler() http.Handler {
	return logging(maxBody(a.mux))
}

// --- middleware ---

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, code: 200}
		start := time.Now()
		next.ServeHTTP(sw, r)
		log.Printf("%s %s -> %d (%s)", r.Method, r.URL.Path, sw.code, time.Since(start))
	})
}

func maxBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, caller session.UserProfile)

// authed validates the bearer token and resolves the calling account.
func (a *API) authed(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		token, ok := strings.CutPrefix(raw, "Bearer ")
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		c, err := parseToken(a.secret, token, kindAccess)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Given token not valid for any token type")
			return
		}
		caller, ok := a.store.lookup(c.Subject)
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "User not found")
			return
		}
		next(w, r, caller)
	}
}

// --- auth handlers ---

func (a *API) tokenPair(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	profile, ok := a.store.authenticate(in.Username, in.Password)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}
	access, err := issueToken(a.secret, profile.Username, profile.Role, kindAccess, accessTTL)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	refresh, err := issueToken(a.secret, profile.Username, profile.Role, kindRefresh, refreshTTL)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": refresh})
}

func (a *API) tokenRefresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	c, err := parseToken(a.secret, in.Refresh, kindRefresh)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Token is invalid or expired")
		return
	}
	access, err := issueToken(a.secret, c.Subject, c.Role, kindAccess, accessTTL)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username    string `json:"username"`
		Email       string `json:"email"`
		Password    string `json:"password"`
		PhoneNumber string `json:"phone_number"`
		Role        string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed request body")
		return
	}

	fields := map[string][]string{}
	if strings.TrimSpace(in.Username) == "" {
		fields["username"] = []string{"This field is required."}
	}
	if strings.TrimSpace(in.Password) == "" {
		fields["password"] = []string{"This field is required."}
	}
	role := session.NormalizeRole(in.Role)
	if role == "" {
		role = session.RoleHunter
	}
	if role != session.RoleHunter && role != session.RoleAnalyst {
		fields["role"] = []string{"Invalid role."}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}

	profile, ok := a.store.addAccount(in.Username, in.Email, in.Password, in.PhoneNumber, role)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"username": {"A user with that username already exists."}})
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (a *API) me(w http.ResponseWriter, r *http.Request, caller session.UserProfile) {
	writeJSON(w, http.StatusOK, caller)
}

func (a *API) logout(w http.ResponseWriter, r *http.Request, caller session.UserProfile) {
	// Tokens are stateless here; logout succeeds so the client clears
	// its local session.
	writeJSON(w, http.StatusOK, map[string]string{"detail": "logged out"})
}

// --- report handlers ---

func (a *API) listReports(w http.ResponseWriter, r *http.Request, caller session.UserProfile) {
	status := reports.Status(strings.TrimSpace(r.URL.Query().Get("status")))
	if status != "" && status != reports.StatusAll && !status.Known() {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"status": {"Select a valid choice."}})
		return
	}
	writeJSON(w, http.StatusOK, a.render(a.store.list(0, status), caller))
}

func (a *API) listMine(w http.ResponseWriter, r *http.Request, caller session.UserProfile) {
	writeJSON(w, http.StatusOK, a.render(a.store.list(caller.ID, ""), caller))
}

func (a *API) getReport(w http.ResponseWriter, r *http.Request, caller session.UserProfile) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, ok := a.store.record(id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, a.view(rec, caller))
}

func (a *API) patchReport(w http.ResponseWriter, r *http.Request, caller session.UserProfile) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if caller.Role != session.RoleAnalyst {
		writeDetail(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}
	var patch reports.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if patch.Status != nil && !patch.Status.Known() {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"status": {"Select a valid choice."}})
		return
	}
	rec, ok := a.store.update(id, patch)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, a.view(rec, caller))
}

func (a *API) createReport(w http.ResponseWriter, r *http.Request, caller session.UserProfile) {
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		writeDetail(w, http.StatusBadRequest, "expected multipart form data")
		return
	}

	fields := map[string][]string{}
	title := strings.TrimSpace(r.FormValue("title"))
	target := strings.TrimSpace(r.FormValue("target"))
	if title == "" {
		fields["title"] = []string{"This field is required."}
	}
	if target == "" {
		fields["target"] = []string{"This field is required."}
	}
	var score float64
	if raw := strings.TrimSpace(r.FormValue("cvss_score")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 10 {
			fields["cvss_score"] = []string{"Enter a number between 0 and 10."}
		} else {
			score = v
		}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}

	rec := reports.Record{
		Title:       title,
		Target:      target,
		CWE:         strings.TrimSpace(r.FormValue("cwe")),
		CVSSScore:   reports.Score(score),
		Description: r.FormValue("description"),
		Impact:      r.FormValue("impact"),
		Status:      reports.StatusNew,
		CreatedBy:   caller.ID,
		CreatedAt:   time.Now().UTC(),
	}
	if _, header, err := r.FormFile("poc_file"); err == nil {
		rec.POCFile = header.Filename
	}
	writeJSON(w, http.StatusCreated, a.view(a.store.addRecord(rec), caller))
}

func (a *API) deleteReport(w http.ResponseWriter, r *http.Request, caller session.UserProfile) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, ok := a.store.record(id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	if rec.CreatedBy != caller.ID {
		writeDetail(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}
	a.store.remove(id)
	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ---

// view stamps the caller-dependent delete permission onto a record.
func (a *API) view(rec reports.Record, caller session.UserProfile) reports.Record {
	rec.CanDelete = rec.CreatedBy == caller.ID
	return rec
}

func (a *API) render(recs []reports.Record, caller session.UserProfile) []reports.Record {
	out := make([]reports.Record, len(recs))
	for i, rec := range recs {
		out[i] = a.view(rec, caller)
	}
	return out
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}
