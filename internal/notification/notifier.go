package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"

	"device-monitor-backend/config"
)

// Alert is one email alert job.
type Alert struct {
	Recipient string
	Subject   string
	Body      string
}

// Sender delivers a single alert. Swapped for a mock in tests.
type Sender interface {
	Send(alert Alert) error
}

// SMTPSender delivers alerts over plain SMTP.
type SMTPSender struct {
	cfg config.NotifierConfig
}

// NewSMTPSender creates a sender from the notifier configuration.
func NewSMTPSender(cfg config.NotifierConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send delivers the alert via the configured SMTP relay.
func (s *SMTPSender) Send(alert Alert) error {
	if s.cfg.SMTPHost == "" {
		return fmt.Errorf("smtp host not configured")
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	}

	msg := strings.Join([]string{
		"From: " + s.cfg.From,
		"To: " + alert.Recipient,
		"Subject: " + alert.Subject,
		"",
		alert.Body,
	}, "\r\n")

	return smtp.SendMail(addr, auth, s.cfg.From, []string{alert.Recipient}, []byte(msg))
}

// WorkerPool manages a pool of workers delivering alert emails so a slow
// SMTP relay never blocks a reconciliation batch.
type WorkerPool struct {
	size   int
	jobs   chan Alert
	sender Sender
	log    *logrus.Entry
}

// NewWorkerPool creates a new worker pool with the given sender.
func NewWorkerPool(size int, sender Sender, logger *logrus.Entry) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:   size,
		jobs:   make(chan Alert, size),
		sender: sender,
		log:    logger,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debugf("alert worker %d started", id)
	for {
		select {
		case alert := <-wp.jobs:
			if err := wp.sender.Send(alert); err != nil {
				wp.log.WithError(err).Errorf("failed to send alert to %s", alert.Recipient)
				continue
			}
			wp.log.Infof("alert sent to %s: %s", alert.Recipient, alert.Subject)
		case <-ctx.Done():
			wp.log.Debugf("alert worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues an alert for delivery.
func (wp *WorkerPool) Dispatch(alert Alert) {
	wp.jobs <- alert
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Alert {
	return wp.jobs
}
