// Package trackertest provides an in-memory issue tracker API for tests and
// local runs. Serve it with httptest.NewServer or http.ListenAndServe.
//
// Configure the exported fields before the first request; recorded calls are
// read back through the accessor methods.
package trackertest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/torosent/issuecrank/internal/runner"
	"github.com/torosent/issuecrank/internal/tracker"
)

// Server emulates the tracker endpoints used by issuecrank.
type Server struct {
	User        tracker.User
	Project     tracker.Project // answered for every project detail request
	Labels      []tracker.Label
	Statuses    []tracker.IssueStatus
	Members     []tracker.ProjectMember
	Initiatives []tracker.Issue
	Epics       []tracker.Issue
	Issues      map[string][]tracker.Issue // active issues by project ID
	Projects    []tracker.Project

	Token        string        // when set, requests must carry this bearer token
	Latency      time.Duration // added to every response
	FailCreates  int           // the first N creates answer FailStatus
	FailStatus   int           // status for failed creates (default 500)
	FailStatuses bool          // the statuses endpoint answers 500
	FailPage     int           // this issue listing page answers 502

	mu        sync.Mutex
	created   []tracker.CreateIssueRequest
	fetched   map[string]int
	pageCalls []int
	creates   int
}

// New returns a server with one project "p-1" (CORE) whose default issue
// type is task and whose estimates are in points.
func New() *Server {
	return &Server{
		User: tracker.User{ID: "u-0", Username: "tester"},
		Project: tracker.Project{
			ID:   "p-1",
			Key:  "CORE",
			Name: "Core",
			Preferences: &tracker.ProjectPreferences{
				IssueType:    "task",
				EstimateType: tracker.EstimatePoints,
			},
		},
		Issues: map[string][]tracker.Issue{},
	}
}

// Created returns the bodies of every successful create call.
func (s *Server) Created() []tracker.CreateIssueRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tracker.CreateIssueRequest(nil), s.created...)
}

// Fetched returns how often the detail of issueID was requested.
func (s *Server) Fetched(issueID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetched[issueID]
}

// CreateAttempts returns how many create calls arrived, failed ones included.
func (s *Server) CreateAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates
}

// PageCalls returns the issue listing pages requested, in order.
func (s *Server) PageCalls() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.pageCalls...)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.Latency > 0 {
		time.Sleep(s.Latency)
	}
	if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case matches(segments, "user"):
		respondJSON(w, http.StatusOK, s.User)
	case matches(segments, "projects"):
		respondJSON(w, http.StatusOK, paginate(s.Projects, r))
	case matches(segments, "projects", "*"):
		respondJSON(w, http.StatusOK, s.Project)
	case matches(segments, "projects", "*", "labels"):
		respondJSON(w, http.StatusOK, nonNil(s.Labels))
	case matches(segments, "projects", "*", "issueStatuses"):
		if s.FailStatuses {
			writeError(w, http.StatusInternalServerError, "statuses unavailable")
			return
		}
		respondJSON(w, http.StatusOK, nonNil(s.Statuses))
	case matches(segments, "iam", "projects", "*", "members"):
		respondJSON(w, http.StatusOK, nonNil(s.Members))
	case matches(segments, "projects", "*", "issues") && r.Method == http.MethodPost:
		s.handleCreate(w, r)
	case matches(segments, "projects", "*", "issues"):
		s.handleListing(w, r, segments[1])
	case matches(segments, "projects", "*", "issues", "*"):
		s.handleDetail(w, segments[3])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creates++
	if s.creates <= s.FailCreates {
		status := s.FailStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		writeError(w, status, "try again")
		return
	}
	var body tracker.CreateIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.created = append(s.created, body)

	n := len(s.created)
	respondJSON(w, http.StatusCreated, tracker.Issue{
		ID:          fmt.Sprintf("i-%d", n),
		Key:         fmt.Sprintf("%s-%d", s.Project.Key, n),
		ProjectID:   s.Project.ID,
		Type:        body.Type,
		Title:       body.Title,
		Description: body.Description,
		Estimate:    body.Estimate,
		Labels:      body.Labels,
	})
}

// handleListing answers typed snapshots with a bare array and paged
// listings with a {meta, data} envelope.
func (s *Server) handleListing(w http.ResponseWriter, r *http.Request, projectID string) {
	switch r.URL.Query().Get("type") {
	case "initiative":
		respondJSON(w, http.StatusOK, nonNil(s.Initiatives))
		return
	case "epic":
		respondJSON(w, http.StatusOK, nonNil(s.Epics))
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	s.mu.Lock()
	s.pageCalls = append(s.pageCalls, page)
	s.mu.Unlock()

	if s.FailPage != 0 && page == s.FailPage {
		writeError(w, http.StatusBadGateway, "listing unavailable")
		return
	}
	respondJSON(w, http.StatusOK, paginate(s.Issues[projectID], r))
}

// handleDetail answers 404 for IDs starting with "missing" and 502 on the
// first fetch of IDs starting with "flaky".
func (s *Server) handleDetail(w http.ResponseWriter, issueID string) {
	s.mu.Lock()
	if s.fetched == nil {
		s.fetched = map[string]int{}
	}
	s.fetched[issueID]++
	attempt := s.fetched[issueID]
	s.mu.Unlock()

	if strings.HasPrefix(issueID, "flaky") && attempt == 1 {
		writeError(w, http.StatusBadGateway, "upstream unavailable")
		return
	}
	if strings.HasPrefix(issueID, "missing") {
		writeError(w, http.StatusNotFound, "issue not found")
		return
	}
	respondJSON(w, http.StatusOK, tracker.Issue{ID: issueID, Key: "KEY-" + issueID, Title: "Issue " + issueID})
}

func matches(segments []string, pattern ...string) bool {
	if len(segments) != len(pattern) {
		return false
	}
	for i, p := range pattern {
		if p != "*" && p != segments[i] {
			return false
		}
	}
	return true
}

func paginate[T any](items []T, r *http.Request) runner.Page[T] {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage <= 0 {
		perPage = tracker.DefaultPerPage
	}

	total := len(items)
	data := []T{}
	if start := (page - 1) * perPage; start < total {
		data = items[start:min(start+perPage, total)]
	}
	return runner.Page[T]{
		Meta: runner.PageMeta{
			Page:         page,
			PerPage:      perPage,
			TotalRecords: total,
			TotalPages:   (total + perPage - 1) / perPage,
		},
		Data: data,
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}
