// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Capskiller/MCP-HIVE-IHM/internal/api"
	"github.com/Capskiller/MCP-HIVE-IHM/internal/util"
)

// =============================================================================
// STATUS COMMAND
// =============================================================================

// HandleStatus reports backend health and readiness.
func HandleStatus(client *api.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health, err := client.GetHealth(ctx)
	if err != nil {
		fmt.Printf("%s backend injoignable (%s)\n",
			errorStyle.Render("●"), client.Config().BaseURL)
		return err
	}

	status := commandStyle.Render("● " + health.Status)
	if health.Status != "ok" && health.Status != "healthy" {
		status = warningStyle.Render("● " + health.Status)
	}
	fmt.Printf("%s %s", status, client.Config().BaseURL)
	if health.Version != "" {
		fmt.Printf(" %s", mutedStyle.Render("(v"+health.Version+")"))
	}
	fmt.Println()

	// Stable order for component listing.
	names := make([]string, 0, len(health.Components))
	for name := range health.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		comp := health.Components[name]
		mark := commandStyle.Render("✓")
		if comp.Status != "ok" && comp.Status != "healthy" {
			mark = errorStyle.Render("✗")
		}
		fmt.Printf("  %s %s %s\n", mark, util.PadRight(name, 20),
			mutedStyle.Render(comp.Status))
	}

	if ready, err := client.Ready(ctx); err == nil && ready.Status != "ready" {
		reason := ready.Reason
		if reason == "" {
			reason = ready.Status
		}
		fmt.Printf("%s %s\n", warningStyle.Render("[Non prêt]"), reason)
	}

	return nil
}
