package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jstittsworth/fpl-optimizer/internal/providers"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// RateLimiter caps outbound messages per recipient.
type RateLimiter interface {
	Allow(phoneNumber string) error
}

// TwilioSMSSender delivers deadline reminders through the Twilio REST API.
// Sends run behind the same breaker setup as the data providers, so a
// Twilio outage stops burning paid API calls after a few failures.
type TwilioSMSSender struct {
	client     *twilio.RestClient
	fromNumber string
	limiter    RateLimiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

func NewTwilioSMSSender(accountSID, authToken, fromNumber string, limiter RateLimiter, logger *logrus.Logger) *TwilioSMSSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioSMSSender{
		client:     client,
		fromNumber: fromNumber,
		limiter:    limiter,
		breaker:    providers.NewBreaker("twilio", 30*time.Second, logger),
		logger:     logger,
	}
}

// SendMessage sends one SMS. The recipient number is normalized to E.164
// before it counts against the rate limit, so "07700 900123" and
// "+447700900123" share a bucket.
func (s *TwilioSMSSender) SendMessage(phoneNumber, message string) error {
	to, err := normalizeUKNumber(phoneNumber)
	if err != nil {
		return err
	}

	if s.limiter != nil {
		if err := s.limiter.Allow(to); err != nil {
			return fmt.Errorf("sms to %s dropped: %w", to, err)
		}
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.fromNumber)
	params.SetBody(message)

	sid, err := s.breaker.Execute(func() (interface{}, error) {
		resp, err := s.client.Api.CreateMessage(params)
		if err != nil {
			return nil, classifyTwilioError(err)
		}
		if resp.Sid == nil {
			return "", nil
		}
		return *resp.Sid, nil
	})
	if err != nil {
		if providers.IsBreakerOpen(err) {
			return fmt.Errorf("sms delivery suspended: %w", err)
		}
		s.logger.WithError(err).WithField("to", to).Error("Twilio send failed")
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"to":  to,
		"sid": sid,
	}).Info("Deadline SMS delivered")
	return nil
}

var (
	nonDialRe = regexp.MustCompile(`[^\d+]`)
	ukLocalRe = regexp.MustCompile(`^0\d{10}$`)
	e164Re    = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
)

// normalizeUKNumber coerces the formats people actually type ("07700
// 900123", "0770-0900123") into E.164. Anything already carrying a country
// code passes through unchanged.
func normalizeUKNumber(raw string) (string, error) {
	number := nonDialRe.ReplaceAllString(raw, "")
	if !strings.HasPrefix(number, "+") {
		if !ukLocalRe.MatchString(number) {
			return "", fmt.Errorf("%q is neither an E.164 nor a UK mobile number", raw)
		}
		number = "+44" + number[1:]
	}
	if !e164Re.MatchString(number) {
		return "", fmt.Errorf("%q is not a valid E.164 number", raw)
	}
	return number, nil
}

// classifyTwilioError translates the REST error codes worth distinguishing;
// see https://www.twilio.com/docs/api/errors.
func classifyTwilioError(err error) error {
	var restErr *twilioclient.TwilioRestError
	if !errors.As(err, &restErr) {
		return fmt.Errorf("twilio request failed: %w", err)
	}

	switch restErr.Code {
	case 21211:
		return errors.New("twilio rejected the destination number")
	case 21608:
		return errors.New("destination number is unverified on this trial account")
	case 21610:
		return errors.New("destination number has opted out")
	case 20429:
		return errors.New("twilio throttled the request")
	default:
		return fmt.Errorf("twilio error %d: %s", restErr.Code, restErr.Message)
	}
}
