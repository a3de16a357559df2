// Package notify delivers reminder notifications to configured sinks.
// Delivery is best-effort everywhere: a failed sink is logged and never
// stops the scheduler.
package notify

import (
	"fmt"
	"log"
	"os/exec"
	"strings"

	"github.com/ellery/rxcare/internal/config"
)

// Notifier delivers one notification.
type Notifier interface {
	Notify(subject, body string) error
}

// CommandNotifier runs a shell command template for each notification,
// e.g. "notify-send 'rxcare' '{{.Subject}}'".
type CommandNotifier struct {
	Command string
}

// Notify executes the command with placeholders substituted.
func (n *CommandNotifier) Notify(subject, body string) error {
	if n.Command == "" {
		return nil
	}
	cmdStr := templateCommand(n.Command, subject, body)
	cmd := exec.Command("sh", "-c", cmdStr)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("notify: command failed: %v: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// templateCommand replaces placeholders in the command template.
func templateCommand(command, subject, body string) string {
	r := strings.NewReplacer(
		"{{.Subject}}", subject,
		"{{.Body}}", body,
	)
	return r.Replace(command)
}

// Multi fans one notification out to several sinks. Individual failures
// are logged; Notify only errors when every sink failed.
type Multi struct {
	sinks []Notifier
}

// NewMulti creates a Multi over the given sinks.
func NewMulti(sinks ...Notifier) *Multi {
	return &Multi{sinks: sinks}
}

// Notify delivers to all sinks.
func (m *Multi) Notify(subject, body string) error {
	if len(m.sinks) == 0 {
		return nil
	}
	failed := 0
	for _, s := range m.sinks {
		if err := s.Notify(subject, body); err != nil {
			log.Printf("notify: %v", err)
			failed++
		}
	}
	if failed == len(m.sinks) {
		return fmt.Errorf("notify: all %d sinks failed", failed)
	}
	return nil
}

// FromConfig assembles the configured sinks into one Notifier.
func FromConfig(cfg config.NotifyConfig) *Multi {
	var sinks []Notifier
	if cfg.Command != "" {
		sinks = append(sinks, &CommandNotifier{Command: cfg.Command})
	}
	if cfg.SlackToken != "" && cfg.SlackChannel != "" {
		sinks = append(sinks, NewSlackNotifier(cfg.SlackToken, cfg.SlackChannel))
	}
	if cfg.DiscordToken != "" && cfg.DiscordChannel != "" {
		if n, err := NewDiscordNotifier(cfg.DiscordToken, cfg.DiscordChannel); err == nil {
			sinks = append(sinks, n)
		} else {
			log.Printf("notify: discord sink disabled: %v", err)
		}
	}
	return NewMulti(sinks...)
}
