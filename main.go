// MCP-HIVE IHM - Terminal client for the MCP-HIVE chat backend.
//
// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Capskiller/MCP-HIVE-IHM/internal/api"
	"github.com/Capskiller/MCP-HIVE-IHM/internal/cli"
	"github.com/Capskiller/MCP-HIVE-IHM/internal/config"
)

// Version information (set at build time)
var (
	Version   = "0.4.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	args := cli.Parse(os.Args[1:])
	cli.ConfigureColors()

	if args.Command == cli.CmdVersion {
		fmt.Printf("mcphive %s (%s, %s)\n", Version, GitCommit, BuildDate)
		return
	}
	if args.Command == cli.CmdHelp {
		printUsage()
		return
	}

	cfg, err := loadConfig(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcphive: %v\n", err)
		os.Exit(1)
	}

	if err := run(args, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "mcphive: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves configuration and applies command-line overrides.
func loadConfig(args cli.Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if args.BackendURL != "" {
		cfg.Backend.URL = args.BackendURL
	}
	if args.Model != "" {
		cfg.Chat.DefaultModel = args.Model
	}
	return cfg, cfg.Validate()
}

// run dispatches to the command handlers.
func run(args cli.Args, cfg *config.Config) error {
	client := api.NewClientWithConfig(&api.ClientConfig{
		BaseURL:      cfg.Backend.URL,
		Timeout:      time.Duration(cfg.Backend.TimeoutSecs) * time.Second,
		DefaultModel: cfg.Chat.DefaultModel,
	})

	switch args.Command {
	case cli.CmdChat:
		return cli.HandleChat(args, cfg)
	case cli.CmdModels:
		return cli.HandleModels(client)
	case cli.CmdPull:
		name := ""
		if len(args.Rest) > 0 {
			name = args.Rest[0]
		}
		return cli.HandlePull(client, name)
	case cli.CmdServers:
		return cli.HandleServers(client, args.Rest)
	case cli.CmdStatus:
		return cli.HandleStatus(client)
	default:
		return cli.HandleChat(args, cfg)
	}
}

func printUsage() {
	fmt.Print(`mcphive - client terminal pour le backend MCP-HIVE

Usage:
  mcphive [chat]             Session de chat interactive (défaut)
  mcphive models             Lister les modèles
  mcphive pull NOM           Télécharger un modèle
  mcphive servers            Lister les serveurs MCP
  mcphive servers toggle NOM Activer/désactiver un serveur
  mcphive servers tools NOM  Outils d'un serveur
  mcphive status             État du backend
  mcphive version            Version

Options:
  -m, --model NOM      Modèle à utiliser
  -b, --backend URL    URL du backend (défaut http://127.0.0.1:8000)
  -c, --config CHEMIN  Fichier de configuration
  -q, --quiet          Sortie minimale
  -h, --help           Cette aide

Variables d'environnement:
  MCPHIVE_BACKEND_URL, MCPHIVE_MODEL, MCPHIVE_TIMEOUT_SECS,
  MCPHIVE_HISTORY_PATH, MCPHIVE_THEME
`)
}
