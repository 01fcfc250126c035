// Package hltest runs an in-memory Heyloyalty API for tests.
package hltest

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/julienschmidt/httprouter"
)

// BasePath is where the fake API is mounted
const BasePath = "/loyalty/v1"

// Request is a recorded API call
type Request struct {
	Method    string
	Path      string
	Query     url.Values
	Form      url.Values
	Timestamp string
	APIKey    string
	Signature string
}

// Server is a fake Heyloyalty API backed by maps
type Server struct {
	*httptest.Server

	mu             sync.Mutex
	lists          map[int]map[string]any
	members        map[int][]map[string]any
	nextID         int
	requests       []Request
	failure        string
	createResponse *string
	patchResponse  *string
}

// NewServer starts a fake server. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		lists:   make(map[int]map[string]any),
		members: make(map[int][]map[string]any),
		nextID:  1,
	}

	router := httprouter.New()
	router.GET(BasePath+"/lists", s.handle(s.getLists))
	router.GET(BasePath+"/lists/:id", s.handle(s.getList))
	router.GET(BasePath+"/lists/:id/members", s.handle(s.getMembers))
	router.POST(BasePath+"/lists/:id/members", s.handle(s.createMember))
	router.PATCH(BasePath+"/lists/:id/members/:member", s.handle(s.patchMember))

	s.Server = httptest.NewServer(router)
	return s
}

// BaseURL is the API root to pass to heyloyalty.WithBaseURL
func (s *Server) BaseURL() string {
	return s.Server.URL + BasePath
}

// AddList registers a list. Field definitions are only served by the
// single-list endpoint.
func (s *Server) AddList(id int, name string, fields ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := map[string]any{"id": id, "name": name}
	if len(fields) > 0 {
		list["fields"] = fields
	}
	s.lists[id] = list
}

// AddMember registers a member on a list and returns its ID
func (s *Server) AddMember(listID int, member map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := maps.Clone(member)
	if _, ok := m["id"]; !ok {
		m["id"] = s.newID()
	}
	s.members[listID] = append(s.members[listID], m)
	return fmt.Sprint(m["id"])
}

// Member returns a copy of the stored member with the given email, or nil
func (s *Server) Member(listID int, email string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m := s.findMember(listID, email); m != nil {
		return maps.Clone(m)
	}
	return nil
}

// FailWith makes every following call answer with an error payload
func (s *Server) FailWith(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = message
}

// SetCreateResponse replaces the body returned by member creation
func (s *Server) SetCreateResponse(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createResponse = &body
}

// SetPatchResponse replaces the body returned by member updates
func (s *Server) SetPatchResponse(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patchResponse = &body
}

// Requests returns all recorded calls in order
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Count returns how many calls matched method and path, where path is
// relative to BasePath
func (s *Server) Count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// LastRequest returns the most recent call
func (s *Server) LastRequest() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, ps httprouter.Params)

// handle records the call, checks authentication and applies FailWith
func (s *Server) handle(next handlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}

		key, sig, _ := r.BasicAuth()
		req := Request{
			Method:    r.Method,
			Path:      strings.TrimPrefix(r.URL.Path, BasePath),
			Query:     r.URL.Query(),
			Form:      r.PostForm,
			Timestamp: r.Header.Get("X-Request-Timestamp"),
			APIKey:    key,
			Signature: sig,
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		failure := s.failure
		s.mu.Unlock()

		if req.Timestamp == "" || key == "" || sig == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "missing credentials"})
			return
		}
		if failure != "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": failure})
			return
		}

		next(w, r, ps)
	}
}

func (s *Server) getLists(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []map[string]any{}
	for _, id := range slices.Sorted(maps.Keys(s.lists)) {
		list := maps.Clone(s.lists[id])
		delete(list, "fields")
		out = append(out, list)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getList(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := strconv.Atoi(ps.ByName("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	list, ok := s.lists[id]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getMembers(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	listID, err := strconv.Atoi(ps.ByName("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	email := r.URL.Query().Get("filter[email][eq][]")

	s.mu.Lock()
	defer s.mu.Unlock()

	members := []map[string]any{}
	for _, m := range s.members[listID] {
		if email == "" || strings.EqualFold(fmt.Sprint(m["email"]), email) {
			members = append(members, m)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

func (s *Server) createMember(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	listID, err := strconv.Atoi(ps.ByName("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createResponse != nil {
		writeRaw(w, http.StatusCreated, *s.createResponse)
		return
	}

	member := formToMember(r.PostForm)
	member["id"] = s.newID()
	s.members[listID] = append(s.members[listID], member)
	writeJSON(w, http.StatusCreated, member)
}

func (s *Server) patchMember(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	listID, err := strconv.Atoi(ps.ByName("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	memberID := ps.ByName("member")

	s.mu.Lock()
	defer s.mu.Unlock()

	var member map[string]any
	for _, m := range s.members[listID] {
		if fmt.Sprint(m["id"]) == memberID {
			member = m
			break
		}
	}
	if member == nil {
		http.NotFound(w, r)
		return
	}

	maps.Copy(member, formToMember(r.PostForm))

	if s.patchResponse != nil {
		writeRaw(w, http.StatusOK, *s.patchResponse)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (s *Server) findMember(listID int, email string) map[string]any {
	for _, m := range s.members[listID] {
		if strings.EqualFold(fmt.Sprint(m["email"]), email) {
			return m
		}
	}
	return nil
}

// newID must be called with mu held
func (s *Server) newID() string {
	id := fmt.Sprintf("m%d", s.nextID)
	s.nextID++
	return id
}

// formToMember applies Heyloyalty's form rules: "name[]" keys are
// multi-value fields and "name[]=" alone clears them.
func formToMember(form url.Values) map[string]any {
	member := make(map[string]any, len(form))
	for key, values := range form {
		name, multi := strings.CutSuffix(key, "[]")
		if !multi {
			member[name] = values[0]
			continue
		}

		selected := []any{}
		for _, v := range values {
			if v != "" {
				selected = append(selected, v)
			}
		}
		member[name] = selected
	}
	return member
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
