package service

import (
	"context"
	"strings"

	"github.com/phonesentry/phonesentry/internal/device"
	"github.com/phonesentry/phonesentry/internal/logger"
	"github.com/phonesentry/phonesentry/internal/model"
	"github.com/phonesentry/phonesentry/internal/notify"
)

// Reply texts sent back to the emergency contact.
const (
	replyAuthFailure   = "PhoneSentry: invalid password. The attempt has been logged."
	replyLockConfirm   = "PhoneSentry: device locked."
	replyLocateConfirm = "PhoneSentry: location fix acquired."
	replyAlarmConfirm  = "PhoneSentry: alarm triggered."
)

// commandTriggers is the closed grammar: one trigger keyword per
// command type. Anything else is non-command traffic, not an error.
var commandTriggers = map[string]model.CommandType{
	"LOCK":   model.CommandLock,
	"WIPE":   model.CommandWipe,
	"LOCATE": model.CommandLocate,
	"ALARM":  model.CommandAlarm,
}

// CommandService converts untrusted inbound text into an authorized,
// executed device action, or a rejected and logged no-op. Each message
// makes exactly one pass through parse, sender check, password check
// and dispatch; no state is carried to the next message.
type CommandService struct {
	credSvc       *CredentialService
	auditSvc      *AuditService
	protectionSvc *ProtectionService
	controller    device.Controller
	sender        notify.Sender
	log           *logger.Logger
}

// NewCommandService creates a new CommandService
func NewCommandService(credSvc *CredentialService, auditSvc *AuditService, protectionSvc *ProtectionService, controller device.Controller, sender notify.Sender, log *logger.Logger) *CommandService {
	return &CommandService{
		credSvc:       credSvc,
		auditSvc:      auditSvc,
		protectionSvc: protectionSvc,
		controller:    controller,
		sender:        sender,
		log:           log.WithComponent("command_service"),
	}
}

// ParseCommand extracts a remote command from raw text. The grammar is
// "<TRIGGER>#<password>"; the trigger keyword is matched
// case-insensitively, the password is taken verbatim. Unrecognized text
// yields no command, not an error.
func ParseCommand(sender, body string) (*model.RemoteCommand, bool) {
	trigger, password, found := strings.Cut(strings.TrimSpace(body), "#")
	if !found || password == "" {
		return nil, false
	}
	cmdType, ok := commandTriggers[strings.ToUpper(strings.TrimSpace(trigger))]
	if !ok {
		return nil, false
	}
	return &model.RemoteCommand{
		Type:     cmdType,
		Password: password,
		Sender:   sender,
	}, true
}

// HandleMessage runs the authorization pipeline for one inbound text.
// Non-command traffic terminates silently. Every other terminal branch
// records exactly one security event; the raw password never reaches
// the log. A message from the wrong sender is dropped without a reply
// so the attempted address is not confirmed to be monitored.
func (s *CommandService) HandleMessage(ctx context.Context, sender, body string) error {
	cmd, ok := ParseCommand(sender, body)
	if !ok {
		return nil
	}

	cfg, err := s.protectionSvc.Get(ctx)
	if err != nil {
		return err
	}

	// Sender check: canonical phone comparison against the emergency contact
	if cfg.EmergencyContact == "" ||
		normalizePhoneNumber(cmd.Sender) != normalizePhoneNumber(cfg.EmergencyContact) {
		return s.auditSvc.LogEvent(ctx, model.SecurityEvent{
			Type:        model.EventCommandRejected,
			Description: "Remote command rejected: sender is not the emergency contact",
			Metadata: map[string]interface{}{
				"command": string(cmd.Type),
				"sender":  cmd.Sender,
				"reason":  model.RejectReasonNotEmergencyContact,
			},
		})
	}

	// Password check, failing closed on credential store errors
	match, err := s.credSvc.VerifyPassword(ctx, cmd.Password)
	if err != nil {
		if logErr := s.auditSvc.LogEvent(ctx, model.SecurityEvent{
			Type:        model.EventCommandRejected,
			Description: "Remote command rejected: credential check failed",
			Metadata: map[string]interface{}{
				"command": string(cmd.Type),
				"sender":  cmd.Sender,
				"reason":  "credential_store_error",
			},
		}); logErr != nil {
			s.log.Error().Err(logErr).Msg("failed to record command rejection")
		}
		return err
	}
	if !match {
		if err := s.auditSvc.LogEvent(ctx, model.SecurityEvent{
			Type:        model.EventCommandRejected,
			Description: "Remote command rejected: invalid password",
			Metadata: map[string]interface{}{
				"command": string(cmd.Type),
				"sender":  cmd.Sender,
				"reason":  model.RejectReasonInvalidPassword,
			},
		}); err != nil {
			return err
		}
		if err := s.sender.Send(ctx, cmd.Sender, replyAuthFailure); err != nil {
			s.log.Error().Err(err).Msg("failed to send authentication failure reply")
		}
		return nil
	}

	return s.dispatch(ctx, cmd)
}

// dispatch invokes the device action and records the executed event.
// A collaborator failure is captured in the event metadata but the
// command still counts as an executed attempt.
func (s *CommandService) dispatch(ctx context.Context, cmd *model.RemoteCommand) error {
	event := model.SecurityEvent{
		Type:        model.EventCommandExecuted,
		Description: "Remote command executed: " + string(cmd.Type),
		Metadata: map[string]interface{}{
			"command": string(cmd.Type),
			"sender":  cmd.Sender,
		},
	}

	var dispatchErr error
	var reply string
	switch cmd.Type {
	case model.CommandLock:
		dispatchErr = s.controller.Lock(ctx)
		reply = replyLockConfirm
	case model.CommandWipe:
		// No confirmation reply: the wipe destroys the state the
		// reply would be sent from
		dispatchErr = s.controller.Wipe(ctx)
	case model.CommandLocate:
		var fix model.LocationFix
		fix, dispatchErr = s.controller.Locate(ctx)
		if dispatchErr == nil {
			event.Location = &fix
		}
		reply = replyLocateConfirm
	case model.CommandAlarm:
		dispatchErr = s.controller.Alarm(ctx)
		reply = replyAlarmConfirm
	}

	if dispatchErr != nil {
		event.Metadata["dispatch_error"] = dispatchErr.Error()
		s.log.Error().Err(dispatchErr).Str("command", string(cmd.Type)).Msg("device action failed")
	}

	if err := s.auditSvc.LogEvent(ctx, event); err != nil {
		return err
	}

	if reply != "" {
		if err := s.sender.Send(ctx, cmd.Sender, reply); err != nil {
			s.log.Error().Err(err).Msg("failed to send confirmation reply")
		}
	}
	s.log.Info().Str("command", string(cmd.Type)).Msg("remote command executed")
	return nil
}
