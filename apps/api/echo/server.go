package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/events"
	"github.com/trezcool/masomo-credentials/core/task"
	"github.com/trezcool/masomo-credentials/services/token"
)

type (
	Options struct {
		Address        string
		Debug          bool
		TestMode       bool
		DisableReqLogs bool
		Logger         core.Logger
		Tokens         *tokensvc.Issuer
		Publisher      events.Publisher
		Queue          task.Queue
		Validate       *validator.Validate
		Translator     ut.Translator
	}

	// Server receives the events other LMS services send us, authenticated with service JWTs.
	Server struct {
		opts     *Options
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(opts *Options) *Server {
	s := &Server{
		opts:     opts,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

// NewServerFromConfig builds the Server the api app runs.
func NewServerFromConfig(
	conf *core.Config,
	logger core.Logger,
	tokens *tokensvc.Issuer,
	bus *events.Bus,
	queue task.Queue,
	validate *validator.Validate,
	translator ut.Translator,
) *Server {
	return NewServer(&Options{
		Address:    conf.Server.Address,
		Debug:      conf.Debug,
		TestMode:   conf.TestMode,
		Logger:     logger,
		Tokens:     tokens,
		Publisher:  bus,
		Queue:      queue,
		Validate:   validate,
		Translator: translator,
	})
}

type validatorAdapter struct {
	validate *validator.Validate
}

func (v validatorAdapter) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.opts.Debug || s.opts.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.signalShutdown)
	s.app.Validator = validatorAdapter{validate: s.opts.Validate}
	s.app.Debug = s.opts.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1", middleware.JWTWithConfig(jwtConfig(s.opts.Tokens)), serviceMiddleware)
	registerEventsAPI(v1, s.opts.Publisher, s.opts.Queue)
}

func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.opts.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Masomo Credentials is up!")
}
