package commands

import (
	"strings"

	"github.com/tgdscott/DoneCast-sub013/internal/logging"
	"github.com/tgdscott/DoneCast-sub013/pkg/interfaces"
)

const commandModuleRoot = "sitebuilder.commands"

// CommandLogger returns a module-scoped logger for command handlers tagged with
// the component and command module fields.
func CommandLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	name := strings.TrimSpace(module)
	if name == "" {
		name = "core"
	}
	logger := logging.ModuleLogger(provider, commandModuleRoot+"."+name)
	return logging.WithFields(logger, map[string]any{
		"component":      "command",
		"command_module": name,
	})
}
