package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/releasebot/core/logger"
)

// Command describes one slash command shown in (or hidden from) the client menu.
type Command struct {
	Name        string
	Description string
	AdminOnly   bool
	Hidden      bool
}

// CommandMenu collects the bot's commands for publishing via setMyCommands.
type CommandMenu struct {
	mu   sync.RWMutex
	cmds map[string]Command
}

// NewCommandMenu returns an empty menu.
func NewCommandMenu() *CommandMenu {
	return &CommandMenu{cmds: make(map[string]Command)}
}

// Register adds cmd. Names must start with a slash and be unique.
func (m *CommandMenu) Register(cmd Command) error {
	cmd.Name = strings.ToLower(strings.TrimSpace(cmd.Name))
	switch {
	case !strings.HasPrefix(cmd.Name, "/") || len(cmd.Name) < 2:
		return fmt.Errorf("command %q: name must start with '/'", cmd.Name)
	case strings.TrimSpace(cmd.Description) == "":
		return fmt.Errorf("command %q: description is required", cmd.Name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.cmds[cmd.Name]; dup {
		return fmt.Errorf("command %q already registered", cmd.Name)
	}
	m.cmds[cmd.Name] = cmd
	return nil
}

// Lookup finds a command by name with or without the leading slash.
func (m *CommandMenu) Lookup(name string) (Command, bool) {
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	cmd, ok := m.cmds[strings.ToLower(name)]
	return cmd, ok
}

// Visible returns public commands sorted by name.
func (m *CommandMenu) Visible() []tele.Command {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]tele.Command, 0, len(m.cmds))
	for _, c := range m.cmds {
		if c.Hidden || c.AdminOnly {
			continue
		}
		out = append(out, tele.Command{Text: strings.TrimPrefix(c.Name, "/"), Description: c.Description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	return out
}

// PublishCommands pushes the visible commands to Telegram.
func PublishCommands(ctx context.Context, bot *tele.Bot, menu *CommandMenu) error {
	visible := menu.Visible()
	if err := bot.SetCommands(visible); err != nil {
		logger.LogEvent(ctx, logger.TWire, slog.LevelError, "register.commands",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("set commands: %w", err)
	}
	logger.LogEvent(ctx, logger.TWire, slog.LevelInfo, "register.commands",
		slog.String("status", "ok"),
		slog.Int("count", len(visible)),
	)
	return nil
}
