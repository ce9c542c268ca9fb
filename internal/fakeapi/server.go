package fakeapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Prefix is the path the API is mounted under, matching the real backend.
const Prefix = "/api"

type fault struct {
	method string
	path   string
	status int
}

// Server is an in-memory household backend. It is safe for concurrent use.
type Server struct {
	mu     sync.Mutex
	data   *dataset
	faults []fault
	holds  map[string]chan struct{}
	counts map[string]int
	userID int64

	router *mux.Router
	now    func() time.Time
	log    zerolog.Logger
}

// Option customizes a Server.
type Option func(*Server)

// WithClock overrides the server clock used for timestamps and check-ins.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger logs every request at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.log = l.With().Str("component", "fakeapi").Logger()
	}
}

// WithSessionUser sets the user the session cookie belongs to. Defaults to 1.
func WithSessionUser(id int64) Option {
	return func(s *Server) {
		if id > 0 {
			s.userID = id
		}
	}
}

// New returns a seeded server. Mount it at the root; routes live under Prefix.
func New(opts ...Option) *Server {
	s := &Server{
		holds:  make(map[string]chan struct{}),
		counts: make(map[string]int),
		userID: 1,
		now:    time.Now,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.data = seed(s.now())
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix(Prefix).Subrouter()
	api.Use(s.middleware)

	// Todos and lists
	api.HandleFunc("/todos/{id:[0-9]+}", s.handleGetTodo).Methods(http.MethodGet)
	api.HandleFunc("/todos/{id:[0-9]+}", s.handlePatchTodo).Methods(http.MethodPatch)
	api.HandleFunc("/todos/{id:[0-9]+}/completed", s.handleCompleteTodo).Methods(http.MethodPut)
	api.HandleFunc("/todo_lists", s.handleCreateUserList).Methods(http.MethodPost)
	api.HandleFunc("/todo_lists/{id:[0-9]+}", s.handleGetTodoList).Methods(http.MethodGet)
	api.HandleFunc("/todo_lists/{id:[0-9]+}", s.handleRenameTodoList).Methods(http.MethodPut)
	api.HandleFunc("/todo_lists/{id:[0-9]+}", s.handleDeleteTodoList).Methods(http.MethodDelete)
	api.HandleFunc("/todo_lists/{id:[0-9]+}/todos", s.handleAddTodo).Methods(http.MethodPost)
	api.HandleFunc("/todo_lists/{id:[0-9]+}/todos", s.handleClearTodoList).Methods(http.MethodDelete)
	api.HandleFunc("/todo_lists/{id:[0-9]+}/todos/{todoId:[0-9]+}", s.handleDeleteTodo).Methods(http.MethodDelete)
	api.HandleFunc("/todo_lists/{id:[0-9]+}/reorder", s.handleReorder).Methods(http.MethodPatch)

	// Households
	api.HandleFunc("/households/{id:[0-9]+}", s.handleGetHousehold).Methods(http.MethodGet)
	api.HandleFunc("/households/{id:[0-9]+}/todo_lists", s.handleHouseholdTodoLists).Methods(http.MethodGet)
	api.HandleFunc("/households/{id:[0-9]+}/todo_lists", s.handleCreateHouseholdList).Methods(http.MethodPost)
	api.HandleFunc("/households/{id:[0-9]+}/shopping", s.handleHouseholdShopping).Methods(http.MethodGet)

	// Shopping
	api.HandleFunc("/shopping_lists/", s.handleCreateShoppingList).Methods(http.MethodPost)
	api.HandleFunc("/shopping_lists/{id:[0-9]+}", s.handleGetShoppingList).Methods(http.MethodGet)
	api.HandleFunc("/shopping_lists/{id:[0-9]+}", s.handleRenameShoppingList).Methods(http.MethodPut)
	api.HandleFunc("/shopping_lists/{id:[0-9]+}", s.handleDeleteShoppingList).Methods(http.MethodDelete)
	api.HandleFunc("/shopping_lists/{id:[0-9]+}/items", s.handleListItems).Methods(http.MethodGet)
	api.HandleFunc("/shopping_lists/{id:[0-9]+}/items", s.handleAddItem).Methods(http.MethodPost)
	api.HandleFunc("/shopping_lists/{id:[0-9]+}/categories", s.handleListCategories).Methods(http.MethodGet)
	api.HandleFunc("/shopping_lists/{id:[0-9]+}/categories", s.handleAddCategory).Methods(http.MethodPost)
	api.HandleFunc("/shopping_lists/{id:[0-9]+}/categories/{categoryId:[0-9]+}", s.handleDeleteCategory).Methods(http.MethodDelete)
	api.HandleFunc("/shopping_items/{id:[0-9]+}", s.handleSetPurchased).Methods(http.MethodPut)
	api.HandleFunc("/shopping_items/{id:[0-9]+}", s.handleDeleteItem).Methods(http.MethodDelete)
	api.HandleFunc("/shopping_items/{id:[0-9]+}/toggle", s.handleToggleItem).Methods(http.MethodPut)
	api.HandleFunc("/shopping_items/{id:[0-9]+}/{field:name|quantity|notes|category}", s.handleItemField).Methods(http.MethodPut)

	// Calendar
	api.HandleFunc("/events/households/{id:[0-9]+}/events", s.handleListEvents).Methods(http.MethodGet)
	api.HandleFunc("/events/households/{id:[0-9]+}/events", s.handleCreateEvent).Methods(http.MethodPost)

	// Board
	api.HandleFunc("/announcements", s.handleListAnnouncements).Methods(http.MethodGet)
	api.HandleFunc("/announcements/", s.handleCreateAnnouncement).Methods(http.MethodPost)
	api.HandleFunc("/announcements/{id:[0-9]+}", s.handlePatchAnnouncement).Methods(http.MethodPatch)
	api.HandleFunc("/announcements/{id:[0-9]+}", s.handleDeleteAnnouncement).Methods(http.MethodDelete)
	api.HandleFunc("/moods/me", s.handleGetMood).Methods(http.MethodGet)
	api.HandleFunc("/moods/me", s.handleSetMood).Methods(http.MethodPut)
	api.HandleFunc("/moods/me", s.handleClearMood).Methods(http.MethodDelete)

	// Users
	api.HandleFunc("/users/", s.handleListUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}", s.handleGetUser).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}/checkins", s.handleListCheckins).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}/checkins", s.handleCheckIn).Methods(http.MethodPost)
	api.HandleFunc("/users/{id:[0-9]+}", s.handleUpdateUser).Methods(http.MethodPut)
	api.HandleFunc("/users/{id:[0-9]+}/checkin", s.handleUserCheckin).Methods(http.MethodPut)
	api.HandleFunc("/users/{id:[0-9]+}/points", s.handleSetPoints).Methods(http.MethodPut)

	// Habits
	api.HandleFunc("/habits", s.handleCreateHabit).Methods(http.MethodPost)
	api.HandleFunc("/habits/{id:[0-9]+}/track", s.handleTrackHabit).Methods(http.MethodPost)

	return router
}

// middleware counts the request, waits on a matching hold and serves an
// injected failure if one is queued.
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, Prefix)

		s.mu.Lock()
		s.counts[r.Method+" "+path]++
		hold := s.holds[path]
		s.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}

		if status, ok := s.takeFault(r.Method, path); ok {
			s.log.Debug().Str("method", r.Method).Str("path", path).Int("status", status).Msg("injected failure")
			respondError(w, status, "injected failure")
			return
		}
		s.log.Debug().Str("method", r.Method).Str("path", path).Msg("request")
		next.ServeHTTP(w, r)
	})
}

// FailNext makes the next request matching method and path (relative to
// Prefix, e.g. "/todos/12/completed") fail with status.
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, fault{method: method, path: path, status: status})
}

func (s *Server) takeFault(method, path string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.faults {
		if f.method == method && f.path == path {
			s.faults = append(s.faults[:i], s.faults[i+1:]...)
			return f.status, true
		}
	}
	return 0, false
}

// Hold blocks requests for path until the returned release is called.
// Release is safe to call more than once.
func (s *Server) Hold(path string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.holds[path] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.holds[path] == ch {
				delete(s.holds, path)
			}
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Count returns how many requests reached method and path, including failed
// and held ones.
func (s *Server) Count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[method+" "+path]
}

func (s *Server) stamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id
}

func decode(r *http.Request, dest any) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid request payload: %w", err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func notFound(w http.ResponseWriter, what string) {
	respondError(w, http.StatusNotFound, what+" not found")
}
