package server

import (
	"errors"
	"log/slog"
	"time"

	"moviemate/app/config"
	"moviemate/app/service/conversation"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const shutdownTimeout = 5 * time.Second

type messageRequest struct {
	Text string `json:"text" validate:"max=4096"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type suggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// Server exposes conversations over a JSON API.
type Server struct {
	addr            string
	conversationSvc *conversation.Service
	validate        *validator.Validate
	app             *fiber.App
}

func New(di *do.Injector) (*Server, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewServer(cfg.HTTP.Addr, do.MustInvoke[*conversation.Service](di)), nil
}

func NewServer(addr string, conversationSvc *conversation.Service) *Server {
	s := &Server{
		addr:            addr,
		conversationSvc: conversationSvc,
		validate:        validator.New(),
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.app.Use(requestLogger)

	s.app.Get("/health", s.health)

	api := s.app.Group("/api")
	api.Get("/suggestions", s.suggestions)
	api.Post("/conversations", s.createConversation)
	api.Get("/conversations/:id", s.getConversation)
	api.Post("/conversations/:id/messages", s.postMessage)
	api.Delete("/conversations/:id", s.deleteConversation)

	return s
}

func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks until the server stops.
func (s *Server) Listen() error {
	slog.Info("HTTP server listening", "addr", s.addr)

	if err := s.app.Listen(s.addr); err != nil {
		return oops.In("server").With("addr", s.addr).Errorf("failed to listen: %w", err)
	}

	return nil
}

// Stop gracefully shuts the listener down.
func (s *Server) Stop() error {
	if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return oops.In("server").Errorf("failed to shutdown: %w", err)
	}

	return nil
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) suggestions(c *fiber.Ctx) error {
	return c.JSON(suggestionsResponse{Suggestions: s.conversationSvc.Suggestions()})
}

func (s *Server) createConversation(c *fiber.Ctx) error {
	ctrl := s.conversationSvc.Create(nil)

	return c.Status(fiber.StatusCreated).JSON(ctrl.View())
}

func (s *Server) getConversation(c *fiber.Ctx) error {
	ctrl, ok := s.conversationSvc.Get(c.Params("id"))
	if !ok {
		return errConversationNotFound
	}

	return c.JSON(ctrl.View())
}

func (s *Server) postMessage(c *fiber.Ctx) error {
	var req messageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	view, ok := s.conversationSvc.Submit(c.UserContext(), c.Params("id"), req.Text)
	if !ok {
		return errConversationNotFound
	}

	return c.JSON(view)
}

func (s *Server) deleteConversation(c *fiber.Ctx) error {
	if !s.conversationSvc.Close(c.Params("id")) {
		return errConversationNotFound
	}

	return c.SendStatus(fiber.StatusNoContent)
}

var errConversationNotFound = fiber.NewError(fiber.StatusNotFound, "conversation not found")

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	if code >= fiber.StatusInternalServerError {
		slog.Error("Request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
	}

	return c.Status(code).JSON(errorResponse{Error: err.Error()})
}

func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	slog.Debug("Handled request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)

	return err
}
