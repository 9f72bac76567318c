// Package notifications delivers job and alert events via ntfy.
//
// NewService returns a no-op implementation when no topic is configured.
// Each event kind can be switched off in the [notifications] config section;
// suppressed events return nil without touching the network.
package notifications
