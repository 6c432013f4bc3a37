// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/Capskiller/MCP-HIVE-IHM/internal/api"
	"github.com/Capskiller/MCP-HIVE-IHM/internal/util"
)

// =============================================================================
// MCP SERVERS COMMAND
// =============================================================================

// HandleServers dispatches the servers command:
//
//	servers              List registered MCP servers
//	servers toggle NAME  Enable or disable a server
//	servers tools NAME   List the tools of a server
func HandleServers(client *api.Client, rest []string) error {
	if len(rest) == 0 {
		return printServers(client)
	}

	switch rest[0] {
	case "toggle":
		if len(rest) < 2 {
			return fmt.Errorf("usage: servers toggle NOM")
		}
		return toggleServer(client, rest[1])
	case "tools":
		if len(rest) < 2 {
			return fmt.Errorf("usage: servers tools NOM")
		}
		return printServerTools(client, rest[1])
	default:
		return fmt.Errorf("sous-commande inconnue: %s", rest[0])
	}
}

// printServers lists registered MCP servers with their connection state.
func printServers(client *api.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	servers, err := client.ListServers(ctx)
	if err != nil {
		return err
	}
	if len(servers) == 0 {
		fmt.Println(infoStyle.Render("[Aucun serveur MCP]"))
		return nil
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Serveurs MCP"))
	fmt.Println()
	for _, srv := range servers {
		state := errorStyle.Render("● déconnecté")
		if srv.Connected {
			state = commandStyle.Render("● connecté")
		}
		if !srv.Enabled {
			state = mutedStyle.Render("○ désactivé")
		}

		line := fmt.Sprintf("  %s %s %s  %s",
			util.PadRight(srv.Name, 20), state,
			mutedStyle.Render(fmt.Sprintf("(%s)", srv.Transport)),
			mutedStyle.Render(fmt.Sprintf("%d outils", srv.ToolsCount)))
		if srv.LastPingMs > 0 {
			line += mutedStyle.Render("  " + util.FormatMillis(srv.LastPingMs))
		}
		fmt.Println(line)
	}
	fmt.Println()
	return nil
}

// toggleServer flips a server's enabled state.
func toggleServer(client *api.Client, name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	servers, err := client.ListServers(ctx)
	if err != nil {
		return err
	}

	enabled := true
	for _, srv := range servers {
		if srv.Name == name {
			enabled = !srv.Enabled
			break
		}
	}

	result, err := client.ToggleServer(ctx, name, enabled)
	if err != nil {
		return err
	}

	state := "désactivé"
	if result.Enabled {
		state = "activé"
	}
	fmt.Printf("%s %s %s\n", commandStyle.Render("[OK]"), result.Server, state)
	return nil
}

// printServerTools lists the tools one MCP server exposes.
func printServerTools(client *api.Client, name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tools, err := client.ServerToolList(ctx, name)
	if err != nil {
		return err
	}
	if len(tools.Tools) == 0 {
		fmt.Println(infoStyle.Render("[Aucun outil]"))
		return nil
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Outils de " + tools.Server))
	fmt.Println()
	for _, tool := range tools.Tools {
		fmt.Printf("  %s  %s\n",
			commandStyle.Render(util.PadRight(tool.Name, 24)),
			infoStyle.Render(util.TruncateRunes(tool.Description, 60)))
	}
	fmt.Println()
	return nil
}
