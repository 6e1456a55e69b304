package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/fluux-agent/gateway/internal/domain/entity"
)

const helpText = `Available commands:
/ping - check that the agent is responsive
/help - show this message
/new (alias /reset) - start a fresh session, archiving the current one
/forget - erase history and context for this chat
/status - show agent status and usage stats`

// runSlashCommand dispatches one of the fixed command-line-style commands
// a user can send instead of a normal message. Slash commands never reach
// the LLM and are never persisted to history.
func (r *Runtime) runSlashCommand(jid, raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return helpText
	}
	cmd := strings.ToLower(fields[0])

	switch cmd {
	case "/ping":
		return "pong"
	case "/help":
		return helpText
	case "/new", "/reset":
		summary, err := r.memory.NewSession(jid, time.Now())
		if err != nil {
			return fmt.Sprintf("Could not start a new session: %v", err)
		}
		return summary
	case "/forget":
		summary, err := r.memory.Forget(jid)
		if err != nil {
			return fmt.Sprintf("Could not forget this conversation: %v", err)
		}
		return summary
	case "/status":
		return r.statusReport(jid)
	default:
		return fmt.Sprintf("Unknown command %q. Try /help.", cmd)
	}
}

func (r *Runtime) statusReport(jid string) string {
	uptime := r.Uptime()
	hh := int(uptime.Hours())
	mm := int(uptime.Minutes()) % 60

	var skillsDesc string
	if r.skills.IsEmpty() {
		skillsDesc = "none"
	} else {
		skillsDesc = strings.Join(r.skills.Names(), ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Agent: %s\n", r.cfg.Agent.Name)
	fmt.Fprintf(&b, "Uptime: %dh %dm\n", hh, mm)
	fmt.Fprintf(&b, "Mode: %s\n", r.cfg.Mode())
	fmt.Fprintf(&b, "LLM: %s\n", r.provider.Description())
	fmt.Fprintf(&b, "Skills: %s\n", skillsDesc)
	if r.cfg.Keepalive.Enabled {
		fmt.Fprintf(&b, "Keepalive: every %ds, read timeout %ds\n",
			r.cfg.Keepalive.PingIntervalSec, r.cfg.Keepalive.ReadTimeoutSec)
	} else {
		b.WriteString("Keepalive: disabled\n")
	}

	bare := string(entity.Bare(jid))
	if _, isRoom := r.rooms[bare]; isRoom {
		msgCount, _ := r.memory.MessageCount(bare)
		fmt.Fprintf(&b, "Room messages recorded: %d\n", msgCount)
	} else {
		msgCount, _ := r.memory.MessageCount(bare)
		sessionCount, _ := r.memory.SessionCount(bare)
		fileCount, _ := r.memory.FileCount(bare)
		knowledgeCount, _ := r.memory.KnowledgeCount(bare)
		fmt.Fprintf(&b, "Messages: %d, archived sessions: %d, files: %d, saved facts: %d\n",
			msgCount, sessionCount, fileCount, knowledgeCount)
		if r.memory.HasUserProfile(bare) {
			b.WriteString("User profile: present\n")
		} else {
			b.WriteString("User profile: none\n")
		}
	}

	if len(r.cfg.Agent.AllowedJids) == 0 && len(r.cfg.Agent.AllowedDomains) == 0 {
		b.WriteString("Domain allowlist: none configured\n")
	} else {
		fmt.Fprintf(&b, "Allowed JIDs: %s; allowed domains: %s\n",
			strings.Join(orNone(r.cfg.Agent.AllowedJids), ", "),
			strings.Join(orNone(r.cfg.Agent.AllowedDomains), ", "))
	}

	return strings.TrimRight(b.String(), "\n")
}

func orNone(items []string) []string {
	if len(items) == 0 {
		return []string{"none"}
	}
	return items
}
