package handlers

import (
	"github.com/gofiber/fiber/v2"

	"prize-settlement-service/middleware"
	"prize-settlement-service/services"
)

func SetupSettlementRoutes(app *fiber.App, settlementService *services.SettlementService, adminService *services.AdminService) {
	// 🔓 Public routes (gateway-authenticated, no user context required)
	app.Get("/settlement/config", settlementService.GetConfig)
	app.Get("/settlement/fees/:tournamentId", settlementService.GetEntryFee)
	app.Get("/settlement/pools", settlementService.ListPools)
	app.Get("/settlement/pools/:tournamentId", settlementService.GetPool)
	app.Get("/settlement/pools/:tournamentId/shares", settlementService.GetShares)
	app.Get("/settlement/events", settlementService.GetEvents)

	// SSE stream authenticates via query token (EventSource cannot set headers)
	app.Get("/settlement/events/stream", middleware.SSEGatewayAuthMiddleware(), settlementService.StreamSettlementEventsSSE)

	// 🔐 Authenticated routes
	secured := app.Group("/s", middleware.UserContextMiddleware())

	// Participant flow: approve → pay → claim
	secured.Post("/settlement/accounts/approve", settlementService.ApproveAllowance)
	secured.Get("/settlement/accounts/me", settlementService.GetMyAccount)
	secured.Post("/settlement/fees/:tournamentId/pay", settlementService.PayEntryFee)
	secured.Post("/settlement/pools/:tournamentId/fund", settlementService.FundPool)
	secured.Post("/settlement/pools/:tournamentId/claim", settlementService.ClaimReward)

	// Result submitter flow (authorization enforced in the engine)
	secured.Post("/settlement/pools/:tournamentId/declare", settlementService.DeclareWinners)
	secured.Post("/settlement/pools/:tournamentId/settle", settlementService.SettleTournament)

	// 🔒 Admin-only routes (caller must match the configured admin identity)
	admin := secured.Group("/settlement/admin")
	admin.Put("/fees/:tournamentId", adminService.SetEntryFee)
	admin.Patch("/config", adminService.UpdateConfig)
	admin.Post("/transfer", adminService.TransferAdmin)
	admin.Get("/submitters", adminService.ListSubmitters)
	admin.Post("/submitters", adminService.AddSubmitter)
	admin.Delete("/submitters/:identity", adminService.RemoveSubmitter)
	admin.Post("/pause", adminService.Pause)
	admin.Post("/unpause", adminService.Unpause)
	admin.Post("/rescue", adminService.Rescue)
	admin.Post("/accounts/credit", adminService.CreditAccount)
}
