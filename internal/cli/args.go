// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import "strings"

// =============================================================================
// COMMANDS
// =============================================================================

// Command identifies the top-level command to run.
type Command string

const (
	// CmdChat starts the interactive chat session (the default).
	CmdChat Command = "chat"

	// CmdModels lists available and installed models.
	CmdModels Command = "models"

	// CmdPull downloads a model, streaming progress.
	CmdPull Command = "pull"

	// CmdServers lists and manages MCP servers.
	CmdServers Command = "servers"

	// CmdStatus reports backend health.
	CmdStatus Command = "status"

	// CmdVersion prints version information.
	CmdVersion Command = "version"

	// CmdHelp prints usage.
	CmdHelp Command = "help"
)

// Args holds the parsed command line.
type Args struct {
	Command Command

	// Model overrides the configured default model.
	Model string

	// BackendURL overrides the configured backend URL.
	BackendURL string

	// ConfigPath overrides the default config file location.
	ConfigPath string

	// Quiet suppresses banners and per-reply statistics.
	Quiet bool

	// Rest holds positional arguments after the command
	// (model name for pull, subcommand for servers).
	Rest []string
}

// Parse reads the raw command line into Args. Unknown flags are ignored
// rather than fatal; the backend is the source of truth for most behavior.
func Parse(argv []string) Args {
	args := Args{Command: CmdChat}

	i := 0
	if len(argv) > 0 && !strings.HasPrefix(argv[0], "-") {
		switch argv[0] {
		case "chat":
			args.Command = CmdChat
		case "models":
			args.Command = CmdModels
		case "pull":
			args.Command = CmdPull
		case "servers", "mcp":
			args.Command = CmdServers
		case "status", "health":
			args.Command = CmdStatus
		case "version", "--version", "-V":
			args.Command = CmdVersion
		case "help", "--help", "-h":
			args.Command = CmdHelp
		default:
			// Unknown word: treat it as a positional of the default
			// command so "mcphive pull mistral" style still works.
			args.Rest = append(args.Rest, argv[0])
		}
		i = 1
	}

	for ; i < len(argv); i++ {
		arg := argv[i]

		value := ""
		if eq := strings.Index(arg, "="); eq >= 0 && strings.HasPrefix(arg, "-") {
			value = arg[eq+1:]
			arg = arg[:eq]
		}
		next := func() string {
			if value != "" {
				return value
			}
			if i+1 < len(argv) {
				i++
				return argv[i]
			}
			return ""
		}

		switch arg {
		case "--model", "-m":
			args.Model = next()
		case "--backend", "-b":
			args.BackendURL = next()
		case "--config", "-c":
			args.ConfigPath = next()
		case "--quiet", "-q":
			args.Quiet = true
		case "--help", "-h":
			args.Command = CmdHelp
		case "--version", "-V":
			args.Command = CmdVersion
		default:
			if !strings.HasPrefix(arg, "-") {
				args.Rest = append(args.Rest, arg)
			}
		}
	}

	return args
}
