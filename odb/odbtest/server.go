// Package odbtest 提供一个内存中的文档数据库 REST 服务，用于测试。
package odbtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/hatlonely/odbx/odb/client"
	"github.com/hatlonely/odbx/odb/schema"
)

// Request 服务端收到的一个请求
type Request struct {
	Method string
	// Path 转义后的原始路径
	Path string
	// Segments 逐段反转义后的路径
	Segments []string
	Query    url.Values
	Header   http.Header
	Body     []byte
}

// Authorized 请求是否携带了 Basic 鉴权头
func (r Request) Authorized() bool {
	return r.Header.Get("Authorization") != ""
}

// Server 模拟的服务端
//
// connect 校验 User 和 Password，disconnect 始终返回 401，document 提供内存中的增删改查，
// query 默认返回全部文档，class 返回 AddClass 注册的类结构。
type Server struct {
	*httptest.Server

	User     string
	Password string

	mu            sync.Mutex
	requests      []Request
	docs          map[string]map[string]interface{}
	classes       map[string]*schema.Class
	databases     []string
	failures      map[string]int
	queryResult   func(stmt string) []interface{}
	commandResult func(command string) []interface{}
	cluster       int
	position      int
}

func NewServer() *Server {
	s := &Server{
		docs:      map[string]map[string]interface{}{},
		classes:   map[string]*schema.Class{},
		databases: []string{"demo"},
		failures:  map[string]int{},
		cluster:   9,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Params 指向该服务的连接参数
func (s *Server) Params(database string, creds *client.Credentials) client.Params {
	u, _ := url.Parse(s.URL)
	port, _ := strconv.Atoi(u.Port())
	return client.Params{
		Server:      client.Server{Scheme: u.Scheme, Host: u.Hostname(), Port: port},
		Credentials: creds,
		Database:    database,
	}
}

// FailWith 使以 action 开头的请求返回指定状态码，status 为 0 时取消
func (s *Server) FailWith(action string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, action)
		return
	}
	s.failures[action] = status
}

func (s *Server) AddClass(class *schema.Class) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classes[class.Name] = class
}

func (s *Server) SetDatabases(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.databases = names
}

// SetQueryResult 自定义 query 的返回记录
func (s *Server) SetQueryResult(fn func(stmt string) []interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryResult = fn
}

// SetCommandResult 自定义 command 的返回记录
func (s *Server) SetCommandResult(fn func(command string) []interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commandResult = fn
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Last 返回最后一个请求，没有请求时返回零值
func (s *Server) Last() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}
	}
	return s.requests[len(s.requests)-1]
}

func (s *Server) Document(rid string) (map[string]interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[normalizeRID(rid)]
	return doc, ok
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	req := Request{
		Method:   r.Method,
		Path:     r.URL.EscapedPath(),
		Segments: segments(r.URL.EscapedPath()),
		Query:    r.URL.Query(),
		Header:   r.Header.Clone(),
		Body:     body,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)

	action := ""
	if len(req.Segments) > 0 {
		action = req.Segments[0]
	}
	if status, ok := s.failures[action]; ok {
		http.Error(w, fmt.Sprintf("%d %s", status, http.StatusText(status)), status)
		return
	}

	switch action {
	case "connect":
		user, password, ok := r.BasicAuth()
		if s.User != "" && (!ok || user != s.User || password != s.Password) {
			http.Error(w, "401 Unauthorized.", http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case "disconnect":
		http.Error(w, "Logged out", http.StatusUnauthorized)
	case "listDatabases":
		writeJSON(w, map[string]interface{}{"databases": s.databases})
	case "class":
		if len(req.Segments) < 3 {
			http.Error(w, "missing class name", http.StatusBadRequest)
			return
		}
		class, ok := s.classes[req.Segments[2]]
		if !ok {
			http.Error(w, "class not found", http.StatusNotFound)
			return
		}
		writeJSON(w, class)
	case "query":
		// query/<db>/sql/<stmt>/<limit>/<fetchPlan>
		if len(req.Segments) != 6 {
			http.Error(w, "malformed query", http.StatusBadRequest)
			return
		}
		limit, err := strconv.Atoi(req.Segments[4])
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		var records []interface{}
		if s.queryResult != nil {
			records = s.queryResult(req.Segments[3])
		} else {
			records = s.allDocs()
		}
		if len(records) > limit {
			records = records[:limit]
		}
		writeJSON(w, map[string]interface{}{"result": records})
	case "command":
		records := []interface{}{}
		if s.commandResult != nil {
			records = s.commandResult(string(body))
		}
		writeJSON(w, map[string]interface{}{"result": records})
	case "batch":
		writeJSON(w, map[string]interface{}{"result": []interface{}{}})
	case "document":
		s.serveDocument(w, r.Method, req)
	default:
		http.Error(w, "unknown action", http.StatusNotFound)
	}
}

func (s *Server) serveDocument(w http.ResponseWriter, method string, req Request) {
	rid := ""
	if len(req.Segments) >= 3 {
		rid = normalizeRID(req.Segments[2])
	}

	switch method {
	case http.MethodPost:
		var doc map[string]interface{}
		if err := json.Unmarshal(req.Body, &doc); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rid := fmt.Sprintf("#%d:%d", s.cluster, s.position)
		s.position++
		doc["@rid"] = rid
		doc["@version"] = 1
		s.docs[rid] = doc
		writeJSONStatus(w, http.StatusCreated, doc)
	case http.MethodGet:
		doc, ok := s.docs[rid]
		if !ok {
			http.Error(w, "record not found", http.StatusNotFound)
			return
		}
		writeJSON(w, doc)
	case http.MethodHead:
		if _, ok := s.docs[rid]; !ok {
			w.WriteHeader(http.StatusNotFound)
		}
	case http.MethodDelete:
		if _, ok := s.docs[rid]; !ok {
			http.Error(w, "record not found", http.StatusNotFound)
			return
		}
		delete(s.docs, rid)
		w.WriteHeader(http.StatusNoContent)
	case http.MethodPut:
		old, ok := s.docs[rid]
		if !ok {
			http.Error(w, "record not found", http.StatusNotFound)
			return
		}
		version, _ := old["@version"].(int)
		var patch map[string]interface{}
		if err := json.Unmarshal(req.Body, &patch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		doc := map[string]interface{}{}
		if req.Query.Get("updateMode") == "partial" {
			for k, v := range old {
				doc[k] = v
			}
		}
		for k, v := range patch {
			doc[k] = v
		}
		doc["@rid"] = rid
		doc["@version"] = version + 1
		s.docs[rid] = doc
		writeJSON(w, doc)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) allDocs() []interface{} {
	rids := make([]string, 0, len(s.docs))
	for rid := range s.docs {
		rids = append(rids, rid)
	}
	sort.Strings(rids)
	records := make([]interface{}, 0, len(rids))
	for _, rid := range rids {
		records = append(records, s.docs[rid])
	}
	return records
}

func segments(escaped string) []string {
	parts := strings.Split(strings.TrimPrefix(escaped, "/"), "/")
	for i, part := range parts {
		if unescaped, err := url.PathUnescape(part); err == nil {
			parts[i] = unescaped
		}
	}
	return parts
}

func normalizeRID(rid string) string {
	return "#" + strings.TrimPrefix(rid, "#")
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
