package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartExpirySweeper runs the overdue-mission sweep every minute. Active
// attempts whose expiry has passed are flipped to expired so they stop
// accepting progress.
func (s *MissionService) StartExpirySweeper() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			expired, err := s.ExpireOverdue()
			if err != nil {
				log.Printf("[Sweeper] DB error: %v", err)
				return
			}
			if expired > 0 {
				log.Printf("⌛ Expired %d overdue missions", expired)
			}
		}),
	)
}
