// Package devopsfake is an in-process stand-in for the Azure DevOps REST API,
// serving projects, WIQL queries, work item batches, work item types, icons
// and the profile endpoint from in-memory state.
package devopsfake

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/mattsolo1/grove-workitems/pkg/devops"
)

const collection = "DefaultCollection"

// WorkItem is one work item of the fake. Parent is the id of its parent, 0
// for none. The parent does not need to exist in the same project.
type WorkItem struct {
	ID     int    `json:"id"`
	Type   string `json:"type"`
	State  string `json:"state"`
	Title  string `json:"title"`
	Parent int    `json:"parent,omitempty"`
}

// Request is a request the fake received.
type Request struct {
	Method    string
	Path      string
	Query     url.Values
	URLLength int
}

// Server is the fake. Configure it before the first request.
type Server struct {
	// Token, when set, is the only personal access token accepted.
	Token string
	// MaxURLLength rejects longer request addresses with 414. Zero disables the check.
	MaxURLLength int
	// MaxIDs rejects batches with more ids with 400. Zero disables the check.
	MaxIDs int
	// Fail, when set, can force a status code for a request. Returning 0 lets it through.
	Fail func(r *http.Request) int

	mu       sync.Mutex
	projects []string
	items    map[string][]WorkItem
	requests []Request

	http *httptest.Server
}

// New starts a fake server. Call Close when done.
func New() *Server {
	s := &Server{items: make(map[string][]WorkItem)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{collection}/_apis/projects", s.handleProjects)
	mux.HandleFunc("POST /{collection}/{project}/_apis/wit/wiql", s.handleWIQL)
	mux.HandleFunc("GET /{collection}/{project}/_apis/wit/workitems", s.handleWorkItems)
	mux.HandleFunc("GET /{collection}/{project}/_apis/wit/workitemtypes/{type}", s.handleWorkItemType)
	mux.HandleFunc("GET /_icons/{name}", s.handleIcon)
	mux.HandleFunc("GET /_apis/profile/profiles/me", s.handleProfile)

	s.http = httptest.NewServer(s.middleware(mux))
	return s
}

// URL is the root address of the fake.
func (s *Server) URL() string {
	return s.http.URL
}

// ProfileURL is the address of the profile endpoint.
func (s *Server) ProfileURL() string {
	return s.http.URL + "/_apis/profile/profiles/me?api-version=" + devops.DefaultAPIVersion
}

// Source is a server source pointing at the fake.
func (s *Server) Source() *devops.ServerSource {
	u, _ := url.Parse(s.http.URL)
	host, portStr, _ := net.SplitHostPort(u.Host)
	port, _ := strconv.Atoi(portStr)
	src, err := devops.NewServerSource("http", host, collection, port)
	if err != nil {
		panic(err)
	}
	return src
}

// Close shuts the fake down.
func (s *Server) Close() {
	s.http.Close()
}

// AddProject registers a project with its work items, in query order.
func (s *Server) AddProject(name string, items ...WorkItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[name]; !ok {
		s.projects = append(s.projects, name)
	}
	s.items[name] = append(s.items[name], items...)
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo returns the requests whose path ends with suffix.
func (s *Server) RequestsTo(suffix string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if strings.HasSuffix(r.Path, suffix) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		length := len("http://" + r.Host + r.URL.RequestURI())

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			Query:     r.URL.Query(),
			URLLength: length,
		})
		s.mu.Unlock()

		if s.Token != "" && r.Header.Get("Authorization") != basicAuth(s.Token) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if s.MaxURLLength > 0 && length > s.MaxURLLength {
			http.Error(w, "Request-URI Too Long", http.StatusRequestURITooLong)
			return
		}
		if s.Fail != nil {
			if code := s.Fail(r); code != 0 {
				http.Error(w, http.StatusText(code), code)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type project struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	value := make([]project, 0, len(s.projects))
	for i, name := range s.projects {
		value = append(value, project{ID: fmt.Sprintf("p-%d", i+1), Name: name})
	}
	writeJSON(w, map[string]any{"count": len(value), "value": value})
}

func (s *Server) handleWIQL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	project := r.PathValue("project")
	s.mu.Lock()
	defer s.mu.Unlock()

	items, ok := s.items[project]
	if !ok {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}

	type ref struct {
		ID  int    `json:"id"`
		URL string `json:"url"`
	}
	refs := []ref{}
	for _, it := range items {
		if it.State == "Closed" || it.State == "Removed" {
			continue
		}
		refs = append(refs, ref{ID: it.ID, URL: s.itemURL(it.ID)})
	}
	writeJSON(w, map[string]any{"queryType": "flat", "workItems": refs})
}

func (s *Server) handleWorkItems(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		http.Error(w, "ids is required", http.StatusBadRequest)
		return
	}
	var ids []int
	for _, p := range strings.Split(raw, ",") {
		id, err := strconv.Atoi(p)
		if err != nil {
			http.Error(w, "invalid id "+p, http.StatusBadRequest)
			return
		}
		ids = append(ids, id)
	}
	if s.MaxIDs > 0 && len(ids) > s.MaxIDs {
		http.Error(w, "too many ids", http.StatusBadRequest)
		return
	}
	expand := r.URL.Query().Get("$expand") == "relations"

	project := r.PathValue("project")
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[int]WorkItem)
	children := make(map[int][]int)
	for _, it := range s.items[project] {
		byID[it.ID] = it
		if it.Parent != 0 {
			children[it.Parent] = append(children[it.Parent], it.ID)
		}
	}

	value := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		it, ok := byID[id]
		if !ok {
			continue
		}
		entry := map[string]any{
			"id":  it.ID,
			"rev": 1,
			"url": s.itemURL(it.ID),
			"fields": map[string]any{
				"System.Id":           it.ID,
				"System.State":        it.State,
				"System.WorkItemType": it.Type,
				"System.Title":        it.Title,
				"System.TeamProject":  project,
			},
		}
		if expand {
			var relations []devops.RawRelation
			if it.Parent != 0 {
				relations = append(relations, devops.RawRelation{
					Rel: "System.LinkTypes.Hierarchy-Reverse",
					URL: s.itemURL(it.Parent),
				})
			}
			for _, c := range children[it.ID] {
				relations = append(relations, devops.RawRelation{
					Rel: "System.LinkTypes.Hierarchy-Forward",
					URL: s.itemURL(c),
				})
			}
			relations = append(relations, devops.RawRelation{
				Rel:        "ArtifactLink",
				URL:        "vstfs:///Git/Commit/" + strconv.Itoa(it.ID),
				Attributes: map[string]any{"name": "Fixed in Commit"},
			})
			entry["relations"] = relations
		}
		value = append(value, entry)
	}
	writeJSON(w, map[string]any{"count": len(value), "value": value})
}

func (s *Server) handleWorkItemType(w http.ResponseWriter, r *http.Request) {
	t := r.PathValue("type")
	writeJSON(w, map[string]any{
		"name": t,
		"icon": map[string]any{
			"id":  "icon_" + strings.ToLower(strings.ReplaceAll(t, " ", "_")),
			"url": s.http.URL + "/_icons/" + url.PathEscape(strings.ToLower(t)) + ".svg",
		},
	})
}

func (s *Server) handleIcon(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(r.PathValue("name"), ".svg")
	w.Header().Set("Content-Type", "image/svg+xml")
	fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" data-type="%s"/>`, name)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"id":           "00000000-0000-0000-0000-000000000001",
		"displayName":  "Mock User",
		"emailAddress": "mock.user@example.com",
	})
}

func (s *Server) itemURL(id int) string {
	return fmt.Sprintf("%s/%s/_apis/wit/workItems/%d", s.http.URL, collection, id)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func basicAuth(token string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+token))
}

// State is the on-disk form of the fake's projects.
type State struct {
	Token    string `json:"token,omitempty"`
	Projects []struct {
		Name  string     `json:"name"`
		Items []WorkItem `json:"items"`
	} `json:"projects"`
}

// LoadState adds the projects of a JSON state document.
func (s *Server) LoadState(r io.Reader) error {
	var state State
	if err := json.NewDecoder(r).Decode(&state); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	if state.Token != "" {
		s.Token = state.Token
	}
	for _, p := range state.Projects {
		s.AddProject(p.Name, p.Items...)
	}
	return nil
}
