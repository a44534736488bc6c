package http_handler

import (
	"context"
	"errors"
	"math/big"
	"strconv"

	sdklogger "github.com/anthanhphan/gosdk/logger"
	"github.com/fileledger/go-file-registry/internal/registry/config"
	"github.com/fileledger/go-file-registry/internal/registry/domain"
	"github.com/fileledger/go-file-registry/internal/registry/port"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// PrincipalHeader carries the caller's wallet address. Wallet signature
// verification happens upstream; this header is the trust boundary of the
// registry service.
const PrincipalHeader = "X-Wallet-Address"

type Server struct {
	app     *fiber.App
	cfg     *config.Config
	service port.RegistryService
}

func NewServer(cfg *config.Config, service port.RegistryService) *Server {
	app := fiber.New(fiber.Config{
		AppName: "file-registry",
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	s := &Server{
		app:     app,
		cfg:     cfg,
		service: service,
	}

	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	s.app.Post("/files", s.handleRegister)
	s.app.Get("/files", s.handleListOwned)
	s.app.Get("/files/:id", s.handleRead)
	s.app.Delete("/files/:id", s.handleDelete)
	s.app.Post("/files/:id/grants", s.handleGrant)
	s.app.Delete("/files/:id/grants/:recipient", s.handleRevoke)
	s.app.Get("/public", s.handleListPublic)
	s.app.Get("/fee", s.handleFee)
	s.app.Put("/admin/fee", s.handleSetFee)
}

func (s *Server) Start() error {
	return s.app.Listen(s.cfg.Server.Addr)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.app.Shutdown()
}

// App exposes the fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) sendJSONError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

// sendLedgerError maps the ledger's failure taxonomy onto HTTP statuses.
func (s *Server) sendLedgerError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return s.sendJSONError(c, fiber.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrAlreadyDeleted):
		return s.sendJSONError(c, fiber.StatusGone, "already deleted")
	case errors.Is(err, domain.ErrForbidden):
		return s.sendJSONError(c, fiber.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrUnauthorized):
		return s.sendJSONError(c, fiber.StatusForbidden, "administrator only")
	case errors.Is(err, domain.ErrInsufficientPayment):
		return s.sendJSONError(c, fiber.StatusPaymentRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidRecipient):
		return s.sendJSONError(c, fiber.StatusBadRequest, "invalid recipient")
	default:
		sdklogger.Errorw("Registry operation failed", "error", err.Error())
		return s.sendJSONError(c, fiber.StatusInternalServerError, "internal error")
	}
}

func (s *Server) principal(c *fiber.Ctx) domain.Principal {
	return domain.Principal(c.Get(PrincipalHeader))
}

func (s *Server) requirePrincipal(c *fiber.Ctx) (domain.Principal, bool) {
	p := s.principal(c)
	if p.IsZero() {
		return "", false
	}
	return p, true
}

func parseFileID(c *fiber.Ctx) (domain.FileID, error) {
	raw, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return domain.FileID(raw), nil
}

type registerRequest struct {
	Name           string `json:"name"`
	MimeType       string `json:"mime_type"`
	SizeBytes      int64  `json:"size_bytes"`
	ContentAddress string `json:"content_address"`
	Description    string `json:"description"`
	IsPublic       bool   `json:"is_public"`
	// PaidAmount is a decimal wei string; wei amounts do not fit JSON
	// numbers safely.
	PaidAmount string `json:"paid_amount"`
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	caller, ok := s.requirePrincipal(c)
	if !ok {
		return s.sendJSONError(c, fiber.StatusUnauthorized, "missing "+PrincipalHeader+" header")
	}

	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return s.sendJSONError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.SizeBytes < 0 {
		return s.sendJSONError(c, fiber.StatusBadRequest, "size_bytes must be non-negative")
	}
	paid := new(big.Int)
	if req.PaidAmount != "" {
		if _, ok := paid.SetString(req.PaidAmount, 10); !ok {
			return s.sendJSONError(c, fiber.StatusBadRequest, "paid_amount must be a decimal wei string")
		}
	}

	id, err := s.service.Register(c.Context(), caller, port.RegisterInput{
		Name:           req.Name,
		MimeType:       req.MimeType,
		SizeBytes:      req.SizeBytes,
		ContentAddress: req.ContentAddress,
		Description:    req.Description,
		IsPublic:       req.IsPublic,
		Paid:           paid,
	})
	if err != nil {
		return s.sendLedgerError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id": uint64(id),
	})
}

func (s *Server) handleRead(c *fiber.Ctx) error {
	id, err := parseFileID(c)
	if err != nil {
		return s.sendJSONError(c, fiber.StatusBadRequest, "invalid file id")
	}

	rec, err := s.service.Read(c.Context(), s.principal(c), id)
	if err != nil {
		return s.sendLedgerError(c, err)
	}
	return c.JSON(rec)
}

func (s *Server) handleDelete(c *fiber.Ctx) error {
	caller, ok := s.requirePrincipal(c)
	if !ok {
		return s.sendJSONError(c, fiber.StatusUnauthorized, "missing "+PrincipalHeader+" header")
	}
	id, err := parseFileID(c)
	if err != nil {
		return s.sendJSONError(c, fiber.StatusBadRequest, "invalid file id")
	}

	if err := s.service.Delete(c.Context(), caller, id); err != nil {
		return s.sendLedgerError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type grantRequest struct {
	Recipient string `json:"recipient"`
}

func (s *Server) handleGrant(c *fiber.Ctx) error {
	caller, ok := s.requirePrincipal(c)
	if !ok {
		return s.sendJSONError(c, fiber.StatusUnauthorized, "missing "+PrincipalHeader+" header")
	}
	id, err := parseFileID(c)
	if err != nil {
		return s.sendJSONError(c, fiber.StatusBadRequest, "invalid file id")
	}

	var req grantRequest
	if err := c.BodyParser(&req); err != nil {
		return s.sendJSONError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.service.Grant(c.Context(), caller, id, domain.Principal(req.Recipient)); err != nil {
		return s.sendLedgerError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleRevoke(c *fiber.Ctx) error {
	caller, ok := s.requirePrincipal(c)
	if !ok {
		return s.sendJSONError(c, fiber.StatusUnauthorized, "missing "+PrincipalHeader+" header")
	}
	id, err := parseFileID(c)
	if err != nil {
		return s.sendJSONError(c, fiber.StatusBadRequest, "invalid file id")
	}

	recipient := domain.Principal(c.Params("recipient"))
	if err := s.service.Revoke(c.Context(), caller, id, recipient); err != nil {
		return s.sendLedgerError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleListOwned(c *fiber.Ctx) error {
	caller, ok := s.requirePrincipal(c)
	if !ok {
		return s.sendJSONError(c, fiber.StatusUnauthorized, "missing "+PrincipalHeader+" header")
	}

	ids, err := s.service.ListOwned(c.Context(), caller)
	if err != nil {
		return s.sendLedgerError(c, err)
	}
	return c.JSON(fiber.Map{"ids": ids})
}

func (s *Server) handleListPublic(c *fiber.Ctx) error {
	ids, err := s.service.ListPublic(c.Context())
	if err != nil {
		return s.sendLedgerError(c, err)
	}
	return c.JSON(fiber.Map{"ids": ids})
}

func (s *Server) handleFee(c *fiber.Ctx) error {
	sizeBytes, err := strconv.ParseInt(c.Query("size_bytes"), 10, 64)
	if err != nil || sizeBytes < 0 {
		return s.sendJSONError(c, fiber.StatusBadRequest, "size_bytes must be a non-negative integer")
	}

	fee, err := s.service.CalculateFee(c.Context(), sizeBytes)
	if err != nil {
		return s.sendLedgerError(c, err)
	}
	return c.JSON(fiber.Map{"fee": fee.String()})
}

type setFeeRequest struct {
	FeePerByte string `json:"fee_per_byte"`
}

func (s *Server) handleSetFee(c *fiber.Ctx) error {
	caller, ok := s.requirePrincipal(c)
	if !ok {
		return s.sendJSONError(c, fiber.StatusUnauthorized, "missing "+PrincipalHeader+" header")
	}

	var req setFeeRequest
	if err := c.BodyParser(&req); err != nil {
		return s.sendJSONError(c, fiber.StatusBadRequest, "invalid request body")
	}
	rate, ok := new(big.Int).SetString(req.FeePerByte, 10)
	if !ok || rate.Sign() < 0 {
		return s.sendJSONError(c, fiber.StatusBadRequest, "fee_per_byte must be a non-negative decimal string")
	}

	if err := s.service.SetFeePerByte(c.Context(), caller, rate); err != nil {
		return s.sendLedgerError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
