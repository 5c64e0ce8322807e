package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// notifier persists notifications, pushes them to open websockets and texts
// guardians. Failures are logged; the action that triggered them stands.
type notifier struct {
	db  storage
	hub *hub
	sms smsSender
	now func() time.Time
}

func (n *notifier) notify(ctx context.Context, userID, message, kind string) {
	note := notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		Type:      kind,
		CreatedAt: n.now().UTC(),
	}

	if err := n.db.insertNotification(ctx, note); err != nil {
		log.WithError(err).WithField("userID", userID).Error("Failed to store notification")
		return
	}
	n.hub.push(userID, "notification", note)
}

func (n *notifier) notifyRoles(ctx context.Context, message, kind string, roles ...string) {
	ids, err := n.db.userIDsByRole(ctx, roles...)
	if err != nil {
		log.WithError(err).WithField("roles", roles).Error("Failed to list notification recipients")
		return
	}
	for _, id := range ids {
		n.notify(ctx, id, message, kind)
	}
}

func (n *notifier) notifyGuardian(ctx context.Context, studentID, message string) {
	if n.sms == nil {
		return
	}

	s, err := n.db.getStudent(ctx, studentID)
	if err != nil {
		log.WithError(err).WithField("studentID", studentID).Error("Failed to load guardian contact")
		return
	}
	if s.GuardianContact == "" {
		return
	}

	if err = n.sms.send(s.GuardianContact, message); err != nil {
		log.WithError(err).WithField("studentID", studentID).Error("Failed to send guardian SMS")
		return
	}
	log.WithField("studentID", studentID).Info("Guardian SMS sent")
}
