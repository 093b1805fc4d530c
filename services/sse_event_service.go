package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"prize-settlement-service/models"
)

// StreamSettlementEventsSSE streams new settlement events as they are
// appended, using the Seq column as the cursor. An optional tournament_id
// query narrows the stream to one tournament.
func (s *SettlementService) StreamSettlementEventsSSE(c *fiber.Ctx) error {
	tournamentID := c.Query("tournament_id")

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	db := s.DB

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		// Initialize cursor at the log tail so only new events stream.
		var lastSeq uint64
		var latest models.SettlementEvent
		query := db.Order("seq DESC")
		if tournamentID != "" {
			query = query.Where("tournament_id = ?", tournamentID)
		}
		if err := query.First(&latest).Error; err == nil {
			lastSeq = latest.Seq
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("SSE init error: %v", err)
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				var newEvents []models.SettlementEvent

				query := db.Where("seq > ?", lastSeq).Order("seq ASC")
				if tournamentID != "" {
					query = query.Where("tournament_id = ?", tournamentID)
				}
				if err := query.Find(&newEvents).Error; err != nil {
					log.Printf("SSE query error: %v", err)
					continue
				}

				if len(newEvents) == 0 {
					// Periodic keepalive so proxies keep the stream open.
					w.WriteString(":\n\n")
					if err := w.Flush(); err != nil {
						return
					}
					continue
				}

				lastSeq = newEvents[len(newEvents)-1].Seq

				for _, ev := range newEvents {
					payload, _ := json.Marshal(ev)

					fmt.Fprintf(w,
						"event: settlement\nid: %d\ndata: %s\n\n",
						ev.Seq,
						payload,
					)
				}

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				// Client closed connection
				return
			}
		}
	})

	return nil
}
