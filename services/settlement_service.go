// services/settlement_service.go
package services

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"prize-settlement-service/models"
	"prize-settlement-service/settlement"
)

type SettlementService struct {
	Engine *settlement.Engine
	DB     *gorm.DB
}

func NewSettlementService(engine *settlement.Engine, db *gorm.DB) *SettlementService {
	return &SettlementService{Engine: engine, DB: db}
}

// settlementError maps engine errors onto HTTP statuses. Anything unmapped is
// an internal error and gets logged without leaking details to the client.
func settlementError(c *fiber.Ctx, err error) error {
	var status int
	switch {
	case errors.Is(err, settlement.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	case errors.Is(err, settlement.ErrAlreadyDeclared),
		errors.Is(err, settlement.ErrAlreadyClaimed):
		status = fiber.StatusConflict
	case errors.Is(err, settlement.ErrFeeNotSet),
		errors.Is(err, settlement.ErrLengthMismatch),
		errors.Is(err, settlement.ErrNoAllocation),
		errors.Is(err, settlement.ErrInvalidAssetForRescue),
		errors.Is(err, settlement.ErrInvalidAmount),
		errors.Is(err, settlement.ErrInvalidResults),
		errors.Is(err, settlement.ErrNoParticipants),
		errors.Is(err, settlement.ErrInvalidBasisPoints):
		status = fiber.StatusBadRequest
	case errors.Is(err, settlement.ErrInsufficientBalance),
		errors.Is(err, settlement.ErrInsufficientAllowance):
		status = fiber.StatusPaymentRequired
	case errors.Is(err, settlement.ErrExceedsPool):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, settlement.ErrPaused),
		errors.Is(err, settlement.ErrNotPaused):
		status = fiber.StatusLocked
	case errors.Is(err, settlement.ErrNotDeclared):
		status = fiber.StatusNotFound
	case errors.Is(err, settlement.ErrNotInitialized):
		status = fiber.StatusServiceUnavailable
	default:
		log.Printf("Settlement internal error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// --- Public Handlers ---

// GetConfig returns the ledger configuration.
func (s *SettlementService) GetConfig(c *fiber.Ctx) error {
	cfg, err := s.Engine.Config(c.Context())
	if err != nil {
		return settlementError(c, err)
	}
	return c.JSON(cfg)
}

// GetEntryFee returns the fee schedule entry for a tournament.
func (s *SettlementService) GetEntryFee(c *fiber.Ctx) error {
	tournamentID := c.Params("tournamentId")
	fee, ok, err := s.Engine.EntryFee(c.Context(), tournamentID)
	if err != nil {
		return settlementError(c, err)
	}
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No entry fee set for tournament"})
	}
	return c.JSON(fee)
}

// ListPools returns all prize-pool records.
func (s *SettlementService) ListPools(c *fiber.Ctx) error {
	var pools []models.PrizePool
	if err := s.DB.Order("created_at DESC").Find(&pools).Error; err != nil {
		log.Printf("DB Error fetching prize pools: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch pools"})
	}
	return c.JSON(pools)
}

// GetPool returns a single tournament's pool status.
func (s *SettlementService) GetPool(c *fiber.Ctx) error {
	pool, err := s.Engine.PoolStatus(c.Context(), c.Params("tournamentId"))
	if err != nil {
		return settlementError(c, err)
	}
	return c.JSON(pool)
}

// GetShares lists the declared winner shares for a tournament.
func (s *SettlementService) GetShares(c *fiber.Ctx) error {
	shares, err := s.Engine.Shares(c.Context(), c.Params("tournamentId"))
	if err != nil {
		return settlementError(c, err)
	}
	return c.JSON(shares)
}

// GetEvents returns the settlement event log, optionally filtered and limited.
func (s *SettlementService) GetEvents(c *fiber.Ctx) error {
	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid limit parameter"})
		}
		limit = l
	}
	events, err := s.Engine.Events(c.Context(), c.Query("tournament_id"), limit)
	if err != nil {
		return settlementError(c, err)
	}
	return c.JSON(events)
}

// --- Authenticated Handlers ---

// PayEntryFee collects the tournament entry fee from the authenticated user.
func (s *SettlementService) PayEntryFee(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User ID not found in context"})
	}

	receipt, err := s.Engine.PayEntryFee(c.Context(), userID, c.Params("tournamentId"))
	if err != nil {
		return settlementError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Entry fee paid", "receipt": receipt})
}

// FundPool moves funds from the authenticated user into a tournament's prize pool.
func (s *SettlementService) FundPool(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	pool, err := s.Engine.FundPrizePool(c.Context(), userID, c.Params("tournamentId"), req.Amount)
	if err != nil {
		return settlementError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Pool funded", "pool": pool})
}

// DeclareWinners records winner shares for a tournament (result submitters only).
func (s *SettlementService) DeclareWinners(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Winners []string `json:"winners"`
		Shares  []int64  `json:"shares"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if len(req.Winners) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Winners list is required"})
	}

	tournamentID := c.Params("tournamentId")
	if err := s.Engine.DeclareWinners(c.Context(), userID, tournamentID, req.Winners, req.Shares); err != nil {
		return settlementError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Winners declared", "tournament_id": tournamentID, "winner_count": len(req.Winners)})
}

// SettleTournament computes the rank-based distribution over the pool and
// declares it in one step (result submitters only).
func (s *SettlementService) SettleTournament(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Results []settlement.ParticipantResult `json:"results"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	dist, err := s.Engine.SettleTournament(c.Context(), userID, c.Params("tournamentId"), req.Results)
	if err != nil {
		return settlementError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Tournament settled", "distribution": dist})
}

// ClaimReward pays out the authenticated user's declared share.
func (s *SettlementService) ClaimReward(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	share, err := s.Engine.ClaimReward(c.Context(), userID, c.Params("tournamentId"))
	if err != nil {
		return settlementError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Reward claimed successfully", "share": share})
}

// GetMyAccount reports the authenticated user's balance and ledger allowance
// for an asset (defaults to the accepted entry-fee asset).
func (s *SettlementService) GetMyAccount(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	asset := c.Query("asset")
	if asset == "" {
		cfg, err := s.Engine.Config(c.Context())
		if err != nil {
			return settlementError(c, err)
		}
		asset = cfg.AcceptedAsset
	}

	account, err := s.Engine.AccountOf(c.Context(), userID, asset)
	if err != nil {
		return settlementError(c, err)
	}
	return c.JSON(account)
}

// ApproveAllowance grants the ledger a spend allowance on the user's balance.
func (s *SettlementService) ApproveAllowance(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Asset  string `json:"asset"`
		Amount int64  `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Asset == "" {
		cfg, err := s.Engine.Config(c.Context())
		if err != nil {
			return settlementError(c, err)
		}
		req.Asset = cfg.AcceptedAsset
	}

	if err := s.Engine.Approve(c.Context(), userID, req.Asset, req.Amount); err != nil {
		return settlementError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Allowance approved", "asset": req.Asset, "amount": req.Amount})
}
