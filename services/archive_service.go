// services/archive_service.go
package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/gosimple/slug"

	"prize-settlement-service/models"
	"prize-settlement-service/utils"
)

// StartArchiveScheduler runs a periodic job that exports fully claimed
// tournaments to R2 and marks their pools archived. A pool qualifies once
// winners are declared and every declared share has been claimed.
func (s *SettlementService) StartArchiveScheduler() {
	if !utils.R2Enabled() {
		log.Println("[Archiver] R2 not configured, settlement archiving disabled")
		return
	}

	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var pools []models.PrizePool
			err := s.DB.Where("declared = ? AND archived = ?", true, false).
				Find(&pools).Error
			if err != nil {
				log.Printf("[Archiver] DB error: %v", err)
				return
			}

			for _, pool := range pools {
				if err := s.archivePool(pool); err != nil {
					log.Printf("[Archiver] Failed to archive tournament %s: %v", pool.TournamentID, err)
				}
			}
		}),
	)
}

func (s *SettlementService) archivePool(pool models.PrizePool) error {
	var unclaimed int64
	err := s.DB.Model(&models.WinnerShare{}).
		Where("tournament_id = ? AND claimed = ?", pool.TournamentID, false).
		Count(&unclaimed).Error
	if err != nil {
		return err
	}
	if unclaimed > 0 {
		return nil // still open claims, try again next tick
	}

	var shares []models.WinnerShare
	if err := s.DB.Where("tournament_id = ?", pool.TournamentID).Find(&shares).Error; err != nil {
		return err
	}

	var events []models.SettlementEvent
	err = s.DB.Where("tournament_id = ?", pool.TournamentID).
		Order("seq ASC").
		Find(&events).Error
	if err != nil {
		return err
	}

	name := "tournament"
	var fee models.EntryFee
	if err := s.DB.First(&fee, "tournament_id = ?", pool.TournamentID).Error; err == nil && fee.Name != "" {
		name = fee.Name
	}

	archive := struct {
		TournamentID  string                   `json:"tournament_id"`
		Name          string                   `json:"name"`
		DeclaredTotal int64                    `json:"declared_total"`
		Remainder     int64                    `json:"remainder"`
		ArchivedAt    time.Time                `json:"archived_at"`
		Shares        []models.WinnerShare     `json:"shares"`
		Events        []models.SettlementEvent `json:"events"`
	}{
		TournamentID:  pool.TournamentID,
		Name:          name,
		DeclaredTotal: pool.DeclaredTotal,
		Remainder:     pool.Total,
		ArchivedAt:    time.Now().UTC(),
		Shares:        shares,
		Events:        events,
	}

	data, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	key := "settlements/" + slug.Make(name) + "-" + pool.TournamentID + ".json"
	url, err := utils.UploadJSONToR2(ctx, key, data)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	err = s.DB.Model(&models.PrizePool{}).
		Where("tournament_id = ?", pool.TournamentID).
		Updates(map[string]any{"archived": true, "archived_at": &now}).Error
	if err != nil {
		return err
	}

	log.Printf("✅ Archived tournament %s (%s remaining in pool): %s",
		pool.TournamentID, utils.FormatAmount(pool.Total), url)
	return nil
}
