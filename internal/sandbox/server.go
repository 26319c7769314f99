// Package sandbox is an in-memory stand-in for the telemedicine admin API.
// It serves the same routes as the real backend so the console can be
// demonstrated and tested without network access.
package sandbox

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/afyamkononi/afyadmin/internal/health"
	"github.com/afyamkononi/afyadmin/internal/log"
	"github.com/afyamkononi/afyadmin/internal/metrics"
)

// Default credentials of the seeded administrator.
const (
	DefaultAdminEmail    = "admin@afya.test"
	DefaultAdminPassword = "changeme"
)

// Config configures a sandbox server.
type Config struct {
	// SigningKey signs issued tokens. A random key is used when empty.
	SigningKey []byte
	// TokenTTL is the lifetime of issued tokens (default 1h).
	TokenTTL time.Duration
	// Empty starts without seed data.
	Empty bool

	AdminEmail    string
	AdminPassword string

	// Metrics, when set, is served on /metrics.
	Metrics prometheus.Gatherer
	// Probes, when set, is served on /health/live and /health/ready. The
	// server registers a store checker and marks readiness from Start.
	Probes *health.ProbeManager
	Logger *log.Logger
}

type sandboxClaims struct {
	jwt.RegisteredClaims
	Email      string `json:"email"`
	Generation int    `json:"gen"`
}

type admin struct {
	id           int64
	firstName    string
	lastName     string
	email        string
	phone        string
	passwordHash []byte
}

// Server is the sandbox backend.
type Server struct {
	echo   *echo.Echo
	key    []byte
	ttl    time.Duration
	logger *log.Logger

	collections map[string]*collection

	mu         sync.Mutex
	admins     []admin
	nextAdmin  int64
	generation int
	faults     map[string][]int
	requests   map[string]int
	httpServer *http.Server
	probes     *health.ProbeManager
}

// New builds a sandbox server.
func New(cfg Config) (*Server, error) {
	key := cfg.SigningKey
	if len(key) == 0 {
		key = []byte(uuid.NewString())
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	s := &Server{
		echo:        echo.New(),
		key:         key,
		ttl:         ttl,
		logger:      log.OrDefault(cfg.Logger).With("component", "sandbox"),
		collections: make(map[string]*collection),
		faults:      make(map[string][]int),
		requests:    make(map[string]int),
		nextAdmin:   1,
		probes:      cfg.Probes,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.errorHandler

	for _, name := range []string{"doctors", "patients", "appointments", "reports", "feedbacks", "contact"} {
		s.collections[name] = newCollection()
	}
	if !cfg.Empty {
		for name, items := range seedData() {
			s.collections[name] = newCollection(items...)
		}
	}

	email := cfg.AdminEmail
	if email == "" {
		email = DefaultAdminEmail
	}
	password := cfg.AdminPassword
	if password == "" {
		password = DefaultAdminPassword
	}
	if _, err := s.addAdmin("System", "Administrator", email, "", password); err != nil {
		return nil, err
	}

	if s.probes != nil {
		s.probes.AddChecker(storeChecker{s})
	}
	s.routes(cfg.Metrics)
	return s, nil
}

func (s *Server) routes(gatherer prometheus.Gatherer) {
	s.echo.Use(s.track, s.injectFaults)

	s.echo.POST("/signin", s.signIn)
	if gatherer != nil {
		s.echo.GET("/metrics", echo.WrapHandler(metrics.HandlerFor(gatherer)))
	}
	if s.probes != nil {
		s.echo.GET("/health/live", s.probe(s.probes.CheckLiveness, http.StatusOK))
		s.echo.GET("/health/ready", s.probe(s.probes.CheckReadiness, http.StatusServiceUnavailable))
	}

	g := s.echo.Group("", s.requireBearer)
	for _, name := range []string{"doctors", "patients", "appointments", "reports"} {
		s.crud(g, name)
	}
	g.GET("/doctors/count", s.count("doctors", "total_doctors"))
	g.GET("/appointments/count", s.count("appointments", "total_appointments"))
	g.GET("/feedback/count", s.count("feedbacks", "total_feedbacks"))
	g.GET("/feedbacks", s.list("feedbacks", ""))
	g.GET("/contact", s.list("contact", "messages"))
	g.PUT("/contact/:id", s.update("contact"))
	g.GET("/admins", s.listAdmins)
	g.POST("/admins", s.createAdmin)
}

func (s *Server) crud(g *echo.Group, name string) {
	g.GET("/"+name, s.list(name, ""))
	g.POST("/"+name, s.create(name))
	g.PUT("/"+name+"/:id", s.update(name))
	g.DELETE("/"+name+"/:id", s.remove(name))
}

// Handler exposes the server for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("sandbox listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.httpServer = &http.Server{Handler: s.echo, ReadHeaderTimeout: 10 * time.Second}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("sandbox listening", "addr", ln.Addr().String())
	if s.probes != nil {
		s.probes.MarkReady()
	}
	if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops a server started with Start.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if s.probes != nil {
		s.probes.MarkShutdown()
	}
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// RevokeTokens invalidates every token issued so far.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// FailNext makes the next request matching method and path answer status.
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.faults[key] = append(s.faults[key], status)
}

// Requests returns how many requests matched method and path.
func (s *Server) Requests(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[method+" "+path]
}

// Count returns the number of stored records of a collection.
func (s *Server) Count(name string) int {
	if name == "admins" {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.admins)
	}
	c, ok := s.collections[name]
	if !ok {
		return 0
	}
	return c.len()
}

// IssueToken signs a token for email, as /signin would.
func (s *Server) IssueToken(email string) (string, error) {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	now := time.Now()
	claims := sandboxClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
		Email:      email,
		Generation: gen,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

func (s *Server) track(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		s.requests[c.Request().Method+" "+c.Request().URL.Path]++
		s.mu.Unlock()
		return next(c)
	}
}

func (s *Server) injectFaults(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Method + " " + c.Request().URL.Path
		s.mu.Lock()
		queue := s.faults[key]
		var status int
		if len(queue) > 0 {
			status = queue[0]
			s.faults[key] = queue[1:]
		}
		s.mu.Unlock()
		if status != 0 {
			return echo.NewHTTPError(status, "injected failure")
		}
		return next(c)
	}
}

func (s *Server) requireBearer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}
		claims := &sandboxClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return s.key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
		s.mu.Lock()
		current := s.generation
		s.mu.Unlock()
		if claims.Generation != current {
			return echo.NewHTTPError(http.StatusUnauthorized, "token revoked")
		}
		c.Set("email", claims.Email)
		return next(c)
	}
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if stderrors.As(err, &he) {
		status = he.Code
		msg = fmt.Sprint(he.Message)
	}
	if err := c.JSON(status, map[string]string{"error": msg}); err != nil {
		s.logger.WithError(err).Warn("failed to write error response")
	}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) signIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	s.mu.Lock()
	var found *admin
	for i := range s.admins {
		if strings.EqualFold(s.admins[i].email, req.Email) {
			a := s.admins[i]
			found = &a
			break
		}
	}
	s.mu.Unlock()

	if found == nil || bcrypt.CompareHashAndPassword(found.passwordHash, []byte(req.Password)) != nil {
		return c.JSON(http.StatusUnauthorized, map[string]any{"success": false, "error": "Invalid email or password"})
	}

	token, err := s.IssueToken(found.email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"user":    map[string]any{"id": strconv.FormatInt(found.id, 10), "email": found.email},
	})
}

func (s *Server) list(name, envelope string) echo.HandlerFunc {
	return func(c echo.Context) error {
		items := s.collections[name].list()
		if envelope != "" {
			return c.JSON(http.StatusOK, map[string]any{envelope: items})
		}
		return c.JSON(http.StatusOK, items)
	}
}

func (s *Server) create(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body map[string]any
		if err := c.Bind(&body); err != nil || len(body) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}
		delete(body, "id")
		return c.JSON(http.StatusCreated, s.collections[name].insert(body))
	}
}

func (s *Server) update(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
		}
		var body map[string]any
		if err := c.Bind(&body); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}
		rec, ok := s.collections[name].update(id, body)
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return c.JSON(http.StatusOK, rec)
	}
}

func (s *Server) remove(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
		}
		if !s.collections[name].remove(id) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return c.JSON(http.StatusOK, map[string]string{"message": "deleted"})
	}
}

func (s *Server) count(name, key string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]int{key: s.collections[name].len()})
	}
}

type adminRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

func (s *Server) listAdmins(c echo.Context) error {
	s.mu.Lock()
	out := make([]map[string]any, 0, len(s.admins))
	for _, a := range s.admins {
		out = append(out, a.view())
	}
	s.mu.Unlock()
	return c.JSON(http.StatusOK, out)
}

func (s *Server) createAdmin(c echo.Context) error {
	var req adminRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}
	a, err := s.addAdmin(req.FirstName, req.LastName, req.Email, req.PhoneNumber, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a.view())
}

func (s *Server) addAdmin(first, last, email, phone, password string) (admin, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return admin{}, fmt.Errorf("hashing admin password: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.admins {
		if strings.EqualFold(a.email, email) {
			return admin{}, echo.NewHTTPError(http.StatusConflict, "admin already exists")
		}
	}
	a := admin{id: s.nextAdmin, firstName: first, lastName: last, email: email, phone: phone, passwordHash: hash}
	s.nextAdmin++
	s.admins = append(s.admins, a)
	return a, nil
}

func (a admin) view() map[string]any {
	return map[string]any{
		"id":           a.id,
		"first_name":   a.firstName,
		"last_name":    a.lastName,
		"email":        a.email,
		"phone_number": a.phone,
	}
}

func (s *Server) probe(check func(context.Context) *health.ProbeResult, unhealthy int) echo.HandlerFunc {
	return func(c echo.Context) error {
		result := check(c.Request().Context())
		status := http.StatusOK
		if result.Status == health.StatusUnhealthy {
			status = unhealthy
		}
		return c.JSON(status, result)
	}
}

// storeChecker reports the size of the in-memory store.
type storeChecker struct {
	s *Server
}

func (c storeChecker) Name() string { return "sandbox-store" }

func (c storeChecker) Check(context.Context) *health.Result {
	result := health.Healthy("in-memory store ready")
	for name := range c.s.collections {
		result.WithDetail(name, c.s.Count(name))
	}
	return result
}
