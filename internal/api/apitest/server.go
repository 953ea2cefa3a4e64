// Package apitest runs an in-memory booking backend for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/0xChaser/EasyBooking/internal/models"

	"github.com/google/uuid"
)

const (
	DetailBadCredentials = "LOGIN_BAD_CREDENTIALS"
	DetailUserExists     = "REGISTER_USER_ALREADY_EXISTS"
	DetailRoomNotFound   = "Room with the given id doesn't exist"
	DetailRoomLinked     = "Room is linked to another object and can't be deleted"
	DetailBookingMissing = "Booking with the given id doesn't exist"
)

type account struct {
	user     models.User
	password string
}

type failure struct {
	status int
	body   string
}

// Server mimics the REST API: JWT login, rooms and bookings.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]*account
	tokens   map[string]string
	rooms    []models.Room
	bookings []models.Booking
	failures map[string][]failure
	blocks   map[string]chan struct{}
	calls    map[string]int
	auth     map[string]string
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	s := &Server{
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		failures: make(map[string][]failure),
		blocks:   make(map[string]chan struct{}),
		calls:    make(map[string]int),
		auth:     make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/jwt/login", s.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/jwt/logout", s.handleLogout)
	mux.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	mux.HandleFunc("GET /api/v1/user/me", s.handleMe)
	mux.HandleFunc("GET /api/v1/room/{$}", s.handleListRooms)
	mux.HandleFunc("POST /api/v1/room/{$}", s.handleCreateRoom)
	mux.HandleFunc("PATCH /api/v1/room/{id}", s.handleUpdateRoom)
	mux.HandleFunc("DELETE /api/v1/room/{id}", s.handleDeleteRoom)
	mux.HandleFunc("GET /api/v1/booking/{$}", s.handleListBookings)
	mux.HandleFunc("POST /api/v1/booking/{$}", s.handleCreateBooking)
	mux.HandleFunc("PATCH /api/v1/booking/{id}", s.handleUpdateBooking)
	mux.HandleFunc("DELETE /api/v1/booking/{id}", s.handleDeleteBooking)

	s.Server = httptest.NewServer(s.intercept(mux))
	t.Cleanup(s.Close)
	t.Cleanup(s.releaseAll)
	return s
}

func (s *Server) releaseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, ch := range s.blocks {
		close(ch)
		delete(s.blocks, key)
	}
}

func routeKey(method, path string) string {
	return method + " " + path
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := routeKey(r.Method, r.URL.Path)

		s.mu.Lock()
		s.calls[key]++
		s.auth[key] = r.Header.Get("Authorization")
		block := s.blocks[key]
		var fail *failure
		if queue := s.failures[key]; len(queue) > 0 {
			fail = &queue[0]
			s.failures[key] = queue[1:]
		}
		s.mu.Unlock()

		if block != nil {
			select {
			case <-block:
			case <-r.Context().Done():
				return
			}
		}

		if fail != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(fail.status)
			_, _ = w.Write([]byte(fail.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Fail makes the next request to method+path answer status with a {"detail": detail} body.
func (s *Server) Fail(method, path string, status int, detail string) {
	body, _ := json.Marshal(map[string]string{"detail": detail})
	s.FailRaw(method, path, status, string(body))
}

// FailRaw queues a one-shot failure with a literal body.
func (s *Server) FailRaw(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := routeKey(method, path)
	s.failures[key] = append(s.failures[key], failure{status: status, body: body})
}

// Block holds requests to method+path until the returned func is called.
func (s *Server) Block(method, path string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.blocks[routeKey(method, path)] = ch
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.blocks[routeKey(method, path)] == ch {
			delete(s.blocks, routeKey(method, path))
			close(ch)
		}
	}
}

// Calls counts requests received for method+path.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[routeKey(method, path)]
}

// LastAuthorization returns the Authorization header of the last request to method+path.
func (s *Server) LastAuthorization(method, path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth[routeKey(method, path)]
}

func (s *Server) AddUser(email, password, firstName, lastName string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := models.User{
		ID:        uuid.New(),
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	s.accounts[email] = &account{user: u, password: password}
	return u
}

// IssueToken signs email in without going through the login form.
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := "jwt-" + uuid.NewString()
	s.tokens[token] = email
	return token
}

// RevokeTokens invalidates every issued token, as an expired JWT would be.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]string)
}

func (s *Server) AddRoom(r models.Room) models.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = models.RoomAvailable
	}
	s.rooms = append(s.rooms, r)
	return r
}

func (s *Server) AddBooking(b models.Booking) models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = models.BookingScheduled
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	s.bookings = append(s.bookings, b)
	return b
}

func (s *Server) Rooms() []models.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Room(nil), s.rooms...)
}

func (s *Server) Bookings() []models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Booking(nil), s.bookings...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

type validationIssue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func writeValidation(w http.ResponseWriter, issues ...validationIssue) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": issues})
}

func missingField(field string) validationIssue {
	return validationIssue{Loc: []string{"body", field}, Msg: "Field required", Type: "missing"}
}

// currentAccount must be called with mu held.
func (s *Server) currentAccount(r *http.Request) *account {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil
	}
	email, ok := s.tokens[token]
	if !ok {
		return nil
	}
	return s.accounts[email]
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	if username == "" || password == "" {
		writeValidation(w, missingField("username"), missingField("password"))
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[username]
	if !ok || acc.password != password {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, DetailBadCredentials)
		return
	}
	token := "jwt-" + uuid.NewString()
	s.tokens[token] = username
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, models.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentAccount(r) == nil {
		writeDetail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	delete(s.tokens, token)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	var issues []validationIssue
	if req.Email == "" {
		issues = append(issues, missingField("email"))
	}
	if req.Password == "" {
		issues = append(issues, missingField("password"))
	}
	if len(issues) > 0 {
		writeValidation(w, issues...)
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[req.Email]; exists {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, DetailUserExists)
		return
	}
	s.mu.Unlock()

	u := s.AddUser(req.Email, req.Password, req.FirstName, req.LastName)
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	acc := s.currentAccount(r)
	s.mu.Unlock()
	if acc == nil {
		writeDetail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, acc.user)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := s.Rooms()
	if rooms == nil {
		rooms = []models.Room{}
	}
	writeJSON(w, http.StatusOK, models.Page[models.Room]{Items: rooms, Total: len(rooms), Limit: 10})
}

func validateRoom(in models.RoomInput) []validationIssue {
	var issues []validationIssue
	if in.Name == "" {
		issues = append(issues, missingField("name"))
	}
	if in.Address == "" {
		issues = append(issues, missingField("address"))
	}
	if in.Status != "" && !in.Status.Valid() {
		issues = append(issues, validationIssue{
			Loc:  []string{"body", "status"},
			Msg:  "Input should be 'available', 'unavailable' or 'maintenance'",
			Type: "enum",
		})
	}
	return issues
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var in models.RoomInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if issues := validateRoom(in); len(issues) > 0 {
		writeValidation(w, issues...)
		return
	}
	room := s.AddRoom(models.Room{
		Name:        in.Name,
		Address:     in.Address,
		Capacity:    in.Capacity,
		Description: in.Description,
		Status:      in.Status,
	})
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) handleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeValidation(w, validationIssue{Loc: []string{"path", "id"}, Msg: "Input should be a valid UUID", Type: "uuid_parsing"})
		return
	}
	var in models.RoomInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if issues := validateRoom(in); len(issues) > 0 {
		writeValidation(w, issues...)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rooms {
		if s.rooms[i].ID != id {
			continue
		}
		s.rooms[i].Name = in.Name
		s.rooms[i].Address = in.Address
		s.rooms[i].Capacity = in.Capacity
		s.rooms[i].Description = in.Description
		if in.Status != "" {
			s.rooms[i].Status = in.Status
		}
		writeJSON(w, http.StatusOK, s.rooms[i])
		return
	}
	writeDetail(w, http.StatusNotFound, DetailRoomNotFound)
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, DetailRoomNotFound)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.RoomID == id {
			writeDetail(w, http.StatusConflict, DetailRoomLinked)
			return
		}
	}
	for i, room := range s.rooms {
		if room.ID == id {
			s.rooms = append(s.rooms[:i], s.rooms[i+1:]...)
			writeJSON(w, http.StatusOK, room)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, DetailRoomNotFound)
}

// withJoins must be called with mu held.
func (s *Server) withJoins(b models.Booking) models.Booking {
	for _, room := range s.rooms {
		if room.ID == b.RoomID {
			b.Room = &models.RoomRef{ID: room.ID, Name: room.Name, Address: room.Address}
			break
		}
	}
	for _, acc := range s.accounts {
		if acc.user.ID == b.UserID {
			b.User = &models.UserRef{
				ID:        acc.user.ID,
				Email:     acc.user.Email,
				FirstName: acc.user.FirstName,
				LastName:  acc.user.LastName,
			}
			break
		}
	}
	return b
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	items := make([]models.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		items = append(items, s.withJoins(b))
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, models.Page[models.Booking]{Items: items, Total: len(items), Limit: 10})
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var in models.BookingInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidation(w, validationIssue{Loc: []string{"body"}, Msg: err.Error(), Type: "json_invalid"})
		return
	}

	s.mu.Lock()
	acc := s.currentAccount(r)
	s.mu.Unlock()
	if acc == nil {
		writeDetail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var issues []validationIssue
	if in.RoomID == uuid.Nil {
		issues = append(issues, missingField("room_id"))
	}
	if in.StartTime.IsZero() {
		issues = append(issues, missingField("start_time"))
	}
	if in.EndTime.IsZero() {
		issues = append(issues, missingField("end_time"))
	}
	if len(issues) > 0 {
		writeValidation(w, issues...)
		return
	}

	b := s.AddBooking(models.Booking{
		RoomID:    in.RoomID,
		UserID:    acc.user.ID,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
	})
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, DetailBookingMissing)
		return
	}
	var patch models.BookingStatusPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bookings {
		if s.bookings[i].ID != id {
			continue
		}
		if patch.Status != "" {
			s.bookings[i].Status = patch.Status
		}
		writeJSON(w, http.StatusOK, s.withJoins(s.bookings[i]))
		return
	}
	writeDetail(w, http.StatusNotFound, DetailBookingMissing)
}

func (s *Server) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, DetailBookingMissing)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.bookings {
		if b.ID == id {
			s.bookings = append(s.bookings[:i], s.bookings[i+1:]...)
			writeJSON(w, http.StatusOK, b)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, DetailBookingMissing)
}
