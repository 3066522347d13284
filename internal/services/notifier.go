package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jstittsworth/fpl-optimizer/internal/models"
	"github.com/jstittsworth/fpl-optimizer/pkg/database"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SMSSender sends a plain text message to an E.164 phone number.
type SMSSender interface {
	SendMessage(phoneNumber, message string) error
}

// MockSMSSender for development - prints reminders instead of texting them
type MockSMSSender struct{}

func NewMockSMSSender() *MockSMSSender {
	return &MockSMSSender{}
}

func (s *MockSMSSender) SendMessage(phoneNumber, message string) error {
	log.Printf("📨 MOCK SMS to %s: %s", phoneNumber, message)
	return nil
}

// DeadlineNotifier sends a reminder once per gameweek when the selection
// deadline enters the lead window, and mirrors it onto the hub.
type DeadlineNotifier struct {
	db      *database.DB
	sender  SMSSender
	hub     *WebSocketHub
	logger  *logrus.Logger
	lead    time.Duration
	numbers []string
}

func NewDeadlineNotifier(
	db *database.DB,
	sender SMSSender,
	hub *WebSocketHub,
	logger *logrus.Logger,
	lead time.Duration,
	numbers []string,
) *DeadlineNotifier {
	if lead <= 0 {
		lead = 24 * time.Hour
	}
	return &DeadlineNotifier{
		db:      db,
		sender:  sender,
		hub:     hub,
		logger:  logger,
		lead:    lead,
		numbers: numbers,
	}
}

// CheckAndNotify looks for the next unnotified deadline inside the lead
// window. The gameweek is marked notified once the check fires, whatever
// the individual sends did, so a flaky number can't cause repeats.
func (n *DeadlineNotifier) CheckAndNotify(ctx context.Context) error {
	now := time.Now().UTC()

	var gw models.Gameweek
	err := n.db.DB.WithContext(ctx).
		Where("deadline_time > ? AND deadline_time <= ? AND deadline_notified = ?", now, now.Add(n.lead), false).
		Order("deadline_time ASC").
		First(&gw).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to query deadlines: %w", err)
	}

	remaining := time.Until(gw.DeadlineTime).Round(time.Minute)
	message := fmt.Sprintf(
		"FPL reminder: %s deadline at %s (%s left). Lock in your squad.",
		gw.Name,
		gw.DeadlineTime.Format("Mon 15:04 MST"),
		remaining,
	)

	sent := 0
	if n.sender != nil {
		for _, number := range n.numbers {
			if err := n.sender.SendMessage(number, message); err != nil {
				n.logger.Errorf("Failed to send deadline SMS to %s: %v", number, err)
				continue
			}
			sent++
		}
	}

	if err := n.db.DB.Model(&gw).Update("deadline_notified", true).Error; err != nil {
		return fmt.Errorf("failed to mark gameweek %d notified: %w", gw.ID, err)
	}

	n.hub.BroadcastToTopic(TopicDeadlines, "deadline_approaching", map[string]interface{}{
		"gameweek_id":   gw.ID,
		"gameweek_name": gw.Name,
		"deadline_time": gw.DeadlineTime,
		"remaining":     remaining.String(),
	})

	n.logger.WithFields(logrus.Fields{
		"gameweek": gw.Name,
		"deadline": gw.DeadlineTime,
		"sms_sent": sent,
	}).Info("Deadline reminder dispatched")
	return nil
}
