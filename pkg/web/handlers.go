package web

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-librarian/pkg/catalog"
	"github.com/teslashibe/go-librarian/pkg/conversation"
	"github.com/teslashibe/go-librarian/pkg/inference"
	"github.com/teslashibe/go-librarian/pkg/session"
)

const (
	searchLimit = 20
	chatSlack   = 2 * time.Second
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"books":  s.deps.Catalog.Len(),
		"keys":   s.deps.Pool.Len(),
	})
}

func (s *Server) handleCatalog(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"botName":         s.deps.Catalog.BotName(),
		"welcomeMessages": s.deps.Catalog.WelcomeMessages(),
		"books":           s.deps.Catalog.Books(),
	})
}

func (s *Server) handleBook(c *fiber.Ctx) error {
	book, ok := s.deps.Catalog.Lookup(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, s.deps.Catalog.Templates().NotFound)
	}
	return c.JSON(book)
}

func (s *Server) handleSearch(c *fiber.Ctx) error {
	limit := searchLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = n
	}
	books := s.deps.Catalog.Search(c.Query("q"), limit)
	if books == nil {
		books = []catalog.Book{}
	}
	return c.JSON(books)
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the body returned by POST /api/chat.
type ChatResponse struct {
	Reply   conversation.Message `json:"reply"`
	Offers  []catalog.Book       `json:"offers"`
	Session session.State        `json:"session"`
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), s.chatBudget())
	defer cancel()

	reply, err := s.deps.Chat.Send(ctx, req.Message)
	switch {
	case err == nil:
	case errors.Is(err, conversation.ErrEmptyMessage):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, conversation.ErrBusy):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return c.Status(chatStatus(err)).JSON(ChatResponse{
			Reply:   reply.Message,
			Offers:  reply.Offers,
			Session: reply.Session,
		})
	}

	return c.JSON(ChatResponse{
		Reply:   reply.Message,
		Offers:  reply.Offers,
		Session: reply.Session,
	})
}

// chatBudget bounds a whole dispatch: one attempt per pooled key plus
// slack, so a hung key still leaves time to rotate.
func (s *Server) chatBudget() time.Duration {
	keys := 1
	if s.deps.Pool != nil {
		keys = max(s.deps.Pool.Len(), 1)
	}
	return s.deps.RequestTimeout*time.Duration(keys) + chatSlack
}

// chatStatus maps a dispatch failure to an HTTP status.
func chatStatus(err error) int {
	switch {
	case errors.Is(err, inference.ErrNoCredentials), errors.Is(err, inference.ErrServiceBusy):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusBadGateway
	}
}

func (s *Server) handleNewChat(c *fiber.Ctx) error {
	return c.JSON(s.deps.Chat.NewChat())
}

func (s *Server) handleMessages(c *fiber.Ctx) error {
	return c.JSON(s.deps.Chat.Messages())
}

func (s *Server) handleSession(c *fiber.Ctx) error {
	return c.JSON(s.deps.Chat.Session())
}

func (s *Server) handleWatchlist(c *fiber.Ctx) error {
	entries, err := s.deps.Chat.Watchlist().Get(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(nonNil(entries))
}

// BookmarkRequest is the body of POST /api/watchlist.
type BookmarkRequest struct {
	BookID string `json:"book_id"`
}

func (s *Server) handleBookmark(c *fiber.Ctx) error {
	var req BookmarkRequest
	if err := c.BodyParser(&req); err != nil || req.BookID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "book_id is required")
	}

	entries, err := s.deps.Chat.Bookmark(c.UserContext(), req.BookID)
	if errors.Is(err, conversation.ErrUnknownBook) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(nonNil(entries))
}

func (s *Server) handleRemoveBookmark(c *fiber.Ctx) error {
	entries, err := s.deps.Chat.Watchlist().Remove(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(nonNil(entries))
}

func (s *Server) handleClearWatchlist(c *fiber.Ctx) error {
	if err := s.deps.Chat.Watchlist().Clear(c.UserContext()); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
