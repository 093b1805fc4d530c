package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"prize-settlement-service/models"
	"prize-settlement-service/settlement"
	"prize-settlement-service/utils"
)

// DepositSyncClient pulls confirmed deposits from the wallet service and
// credits internal asset balances.
type DepositSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewDepositSyncClient(db *gorm.DB) *DepositSyncClient {
	baseURL := os.Getenv("SYNC_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("SYNC_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("SETTLEMENT_SYNC_TOKEN")
	if token == "" {
		log.Fatal("SETTLEMENT_SYNC_TOKEN environment variable is required for deposit sync")
	}

	return &DepositSyncClient{
		BaseURL:    baseURL,
		Token:      token,
		DB:         db,
		HTTPClient: utils.HTTPClient,
	}
}

// depositRecord is the wallet service's wire shape for a confirmed deposit.
type depositRecord struct {
	ID          string    `json:"id"`
	Holder      string    `json:"holder"`
	Asset       string    `json:"asset"`
	Amount      int64     `json:"amount"`
	TxHash      string    `json:"tx_hash"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

func (c *DepositSyncClient) GetConfirmedDeposits(ctx context.Context, since time.Time) ([]depositRecord, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/deposits", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call sync service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("sync service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Deposits []depositRecord `json:"deposits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode sync service response: %w", err)
	}

	return response.Deposits, nil
}

// creditBatch records and credits a batch of deposits in one transaction.
// The deposits table is the idempotency guard: a deposit ID already present
// is skipped, so overlapping poll windows never double-credit.
func (c *DepositSyncClient) creditBatch(deposits []depositRecord) (int, error) {
	credited := 0
	err := c.DB.Transaction(func(tx *gorm.DB) error {
		for _, d := range deposits {
			if d.ID == "" || d.Holder == "" || d.Asset == "" || d.Amount <= 0 {
				log.Printf("⚠️ Skipping malformed deposit record: %+v", d)
				continue
			}

			row := models.Deposit{
				ID:     d.ID,
				Holder: d.Holder,
				Asset:  d.Asset,
				Amount: d.Amount,
				TxHash: d.TxHash,
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue // already credited in an earlier window
			}

			account := models.AssetAccount{Holder: d.Holder, Asset: d.Asset, Balance: d.Amount}
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "holder"}, {Name: "asset"}},
				DoUpdates: clause.Assignments(map[string]any{
					"balance": gorm.Expr("asset_accounts.balance + ?", d.Amount),
				}),
			}).Create(&account).Error
			if err != nil {
				return err
			}

			event := models.SettlementEvent{
				ID:        uuid.NewString(),
				Type:      settlement.EventDepositCredited,
				Actor:     d.Holder,
				Asset:     d.Asset,
				Amount:    d.Amount,
				CreatedAt: time.Now().UTC(),
			}
			if d.TxHash != "" {
				payload, _ := json.Marshal(map[string]any{"tx_hash": d.TxHash, "deposit_id": d.ID})
				event.Payload = string(payload)
			}
			if err := tx.Create(&event).Error; err != nil {
				return err
			}
			credited++
		}
		return nil
	})
	return credited, err
}

// PollDeposits runs the sync loop. The cursor only advances after a batch
// commits, so a failed window is retried in full on the next tick.
func PollDeposits(ctx context.Context, client *DepositSyncClient, pollInterval time.Duration) {
	log.Println("Starting deposit polling...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Deposit polling stopped.")
			return
		case <-ticker.C:
			logTime := time.Now().UTC()

			deposits, err := client.GetConfirmedDeposits(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ Error polling deposits: %v", err)
				continue
			}

			if len(deposits) == 0 {
				continue
			}

			credited, err := client.creditBatch(deposits)
			if err != nil {
				log.Printf("❌ Failed to credit deposit batch: %v", err)
				// Do NOT advance lastSyncTime on failure — retry same window next tick
				continue
			}

			lastSyncTime = logTime
			if credited > 0 {
				log.Printf("✅ Credited %d new deposit(s) out of %d received.", credited, len(deposits))
			}
		}
	}
}
