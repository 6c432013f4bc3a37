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
// MODELS COMMAND
// =============================================================================

// HandleModels lists the models the backend knows about, marking the
// installed ones.
func HandleModels(client *api.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	models, err := client.ListModels(ctx)
	if err != nil {
		return err
	}

	installed := map[string]bool{}
	if local, err := client.InstalledModels(ctx); err == nil {
		for _, m := range local {
			installed[m.Name] = true
		}
	}

	return printModelTable(models, installed)
}

// printModels is the in-chat variant (/models).
func printModels(client *api.Client) error {
	return HandleModels(client)
}

func printModelTable(models []api.Model, installed map[string]bool) error {
	if len(models) == 0 {
		fmt.Println(infoStyle.Render("[Aucun modèle]"))
		return nil
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Modèles"))
	fmt.Println()
	for _, m := range models {
		marker := "  "
		if installed[m.Name] {
			marker = commandStyle.Render("✓ ")
		}
		line := marker + util.PadRight(m.Name, 36)
		if m.Size > 0 {
			line += mutedStyle.Render(formatBytes(m.Size))
		}
		fmt.Println(line)
	}
	fmt.Println()
	return nil
}

// HandlePull downloads a model, showing streamed progress.
func HandlePull(client *api.Client, name string) error {
	if name == "" {
		return fmt.Errorf("usage: pull NOM_MODELE")
	}

	fmt.Printf("%s %s\n", infoStyle.Render("[Téléchargement]"), name)

	lastStatus := ""
	err := client.PullModel(context.Background(), name, func(p api.PullProgress) {
		if p.Total > 0 {
			pct := float64(p.Completed) / float64(p.Total) * 100
			fmt.Printf("\r%s %.1f%% (%s / %s)   ",
				infoStyle.Render(p.Status), pct,
				formatBytes(p.Completed), formatBytes(p.Total))
		} else if p.Status != lastStatus {
			fmt.Printf("\n%s", infoStyle.Render(p.Status))
		}
		lastStatus = p.Status
	})
	fmt.Println()
	if err != nil {
		return err
	}

	fmt.Printf("%s %s installé\n", commandStyle.Render("[OK]"), name)
	return nil
}

// formatBytes renders a byte count as a human-readable size.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
