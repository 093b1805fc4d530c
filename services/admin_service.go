// services/admin_service.go
package services

import (
	"github.com/gofiber/fiber/v2"

	"prize-settlement-service/settlement"
)

// AdminService carries the admin-gated settlement operations. Authorization
// itself lives in the engine (caller must match the configured admin); the
// handlers only shape requests and responses.
type AdminService struct {
	Engine *settlement.Engine
}

func NewAdminService(engine *settlement.Engine) *AdminService {
	return &AdminService{Engine: engine}
}

// SetEntryFee sets or overwrites a tournament's entry fee.
func (s *AdminService) SetEntryFee(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Name   string `json:"name"`
		Amount int64  `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	fee, err := s.Engine.SetEntryFee(c.Context(), userID, c.Params("tournamentId"), req.Name, req.Amount)
	if err != nil {
		return settlementError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Entry fee set", "fee": fee})
}

// UpdateConfig applies partial configuration changes; omitted fields are kept.
func (s *AdminService) UpdateConfig(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		AcceptedAsset  *string `json:"accepted_asset"`
		RewardAsset    *string `json:"reward_asset"`
		TreasuryID     *string `json:"treasury_id"`
		PoolID         *string `json:"pool_id"`
		FeeBasisPoints *int64  `json:"fee_basis_points"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	cfg, err := s.Engine.UpdateConfig(c.Context(), userID, settlement.ConfigUpdate{
		AcceptedAsset:  req.AcceptedAsset,
		RewardAsset:    req.RewardAsset,
		TreasuryID:     req.TreasuryID,
		PoolID:         req.PoolID,
		FeeBasisPoints: req.FeeBasisPoints,
	})
	if err != nil {
		return settlementError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Configuration updated", "config": cfg})
}

// TransferAdmin hands the admin role to a new identity.
func (s *AdminService) TransferAdmin(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		NewAdmin string `json:"new_admin"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.NewAdmin == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "new_admin is required"})
	}

	if err := s.Engine.TransferAdmin(c.Context(), userID, req.NewAdmin); err != nil {
		return settlementError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Admin transferred", "new_admin": req.NewAdmin})
}

// ListSubmitters returns the authorized result submitters.
func (s *AdminService) ListSubmitters(c *fiber.Ctx) error {
	submitters, err := s.Engine.Submitters(c.Context())
	if err != nil {
		return settlementError(c, err)
	}
	return c.JSON(fiber.Map{"submitters": submitters})
}

// AddSubmitter authorizes an identity to declare winners.
func (s *AdminService) AddSubmitter(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Identity string `json:"identity"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Identity == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "identity is required"})
	}

	if err := s.Engine.AddSubmitter(c.Context(), userID, req.Identity); err != nil {
		return settlementError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Submitter added", "identity": req.Identity})
}

// RemoveSubmitter revokes a result submitter.
func (s *AdminService) RemoveSubmitter(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	identity := c.Params("identity")

	if err := s.Engine.RemoveSubmitter(c.Context(), userID, identity); err != nil {
		return settlementError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Submitter removed", "identity": identity})
}

// Pause freezes declarations and claims.
func (s *AdminService) Pause(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	if err := s.Engine.Pause(c.Context(), userID); err != nil {
		return settlementError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Settlement paused"})
}

// Unpause lifts the freeze.
func (s *AdminService) Unpause(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	if err := s.Engine.Unpause(c.Context(), userID); err != nil {
		return settlementError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Settlement resumed"})
}

// Rescue moves a mistakenly deposited asset out of the ledger or pool escrow.
// The tracked asset on each side is rejected by the engine.
func (s *AdminService) Rescue(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Side        string `json:"side"` // "ledger" or "pool"
		Asset       string `json:"asset"`
		Destination string `json:"destination"`
		Amount      int64  `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Asset == "" || req.Destination == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "asset and destination are required"})
	}

	var err error
	switch req.Side {
	case "ledger":
		err = s.Engine.RescueLedgerAsset(c.Context(), userID, req.Asset, req.Destination, req.Amount)
	case "pool":
		err = s.Engine.RescuePoolAsset(c.Context(), userID, req.Asset, req.Destination, req.Amount)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "side must be 'ledger' or 'pool'"})
	}
	if err != nil {
		return settlementError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Asset rescued", "asset": req.Asset, "amount": req.Amount})
}

// CreditAccount credits a holder's internal balance, e.g. to reconcile a
// deposit the sync worker missed.
func (s *AdminService) CreditAccount(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Holder string `json:"holder"`
		Asset  string `json:"asset"`
		Amount int64  `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Holder == "" || req.Asset == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "holder and asset are required"})
	}

	if err := s.Engine.CreditAccount(c.Context(), userID, req.Holder, req.Asset, req.Amount); err != nil {
		return settlementError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Account credited", "holder": req.Holder, "asset": req.Asset, "amount": req.Amount})
}
