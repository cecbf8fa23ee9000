package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/envrefresh/internal/adapters/in/cli/ui/styles"
	"github.com/bnema/envrefresh/internal/domain"
)

// Status represents a status type for rendering.
type Status int

const (
	StatusSuccess Status = iota
	StatusError
	StatusWarning
	StatusInfo
	StatusPending
	StatusSkipped
	StatusPreview
)

type statusConfig struct {
	icon  string
	style lipgloss.Style
	badge lipgloss.Style
}

var statusConfigs = map[Status]statusConfig{
	StatusSuccess: {icon: styles.IconSuccess, style: styles.Theme.Success, badge: styles.Theme.BadgeSuccess},
	StatusError:   {icon: styles.IconError, style: styles.Theme.Error, badge: styles.Theme.BadgeError},
	StatusWarning: {icon: styles.IconWarning, style: styles.Theme.Warning, badge: styles.Theme.BadgeWarning},
	StatusInfo:    {icon: styles.IconInfo, style: styles.Theme.Info, badge: styles.Theme.BadgeInfo},
	StatusPending: {icon: styles.IconPending, style: styles.Theme.Muted, badge: styles.Theme.BadgePending},
	StatusSkipped: {icon: styles.IconSkipped, style: styles.Theme.Muted, badge: styles.Theme.BadgePending},
	StatusPreview: {icon: styles.IconPreview, style: styles.Theme.Info, badge: styles.Theme.BadgeInfo},
}

// RenderStatus renders a status with icon and optional label.
func RenderStatus(status Status, label string) string {
	cfg := statusConfigs[status]
	if label == "" {
		return cfg.style.Render(cfg.icon)
	}
	return cfg.style.Render(cfg.icon + " " + label)
}

// RenderStatusBadge renders a status as a badge with background.
func RenderStatusBadge(status Status, label string) string {
	return statusConfigs[status].badge.Render(label)
}

// StepStatus maps a step outcome to its display status.
func StepStatus(outcome domain.StepOutcome) Status {
	switch outcome {
	case domain.StepSucceeded:
		return StatusSuccess
	case domain.StepFailed:
		return StatusError
	case domain.StepDryRunPreview:
		return StatusPreview
	default:
		return StatusSkipped
	}
}

// TargetStatus maps a restore target status to its display status.
func TargetStatus(status domain.TargetStatus) Status {
	switch status {
	case domain.TargetOnline:
		return StatusSuccess
	case domain.TargetFailed:
		return StatusError
	case domain.TargetTimedOut:
		return StatusWarning
	case domain.TargetRestoring:
		return StatusInfo
	default:
		return StatusPending
	}
}

// BatchStatus maps a batch outcome to its display status.
func BatchStatus(outcome domain.BatchOutcome) Status {
	switch outcome {
	case domain.BatchSucceeded:
		return StatusSuccess
	case domain.BatchDryRunClean:
		return StatusPreview
	case domain.BatchCanceled:
		return StatusWarning
	default:
		return StatusError
	}
}
