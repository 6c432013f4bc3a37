// Copyright (c) 2025 Capskiller
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat session against the MCP-HIVE backend.
//
// Provides a REPL that streams assistant replies token by token, shows MCP
// tool executions as they happen, and keeps a local conversation history.
//
// Interactive commands (during chat):
//   /help, /h           Show available commands
//   /new                Start a new conversation
//   /list               List conversations
//   /switch N           Switch to conversation N
//   /delete [N]         Delete current (or Nth) conversation
//   /clear              Delete all conversations
//   /history            Show the current conversation
//   /model [name]       Show or switch model
//   /models             List backend models
//   /servers            List MCP servers
//   /tools NAME         List tools of an MCP server
//   /timeline           Show tool executions of this session
//   /quit, /q           Exit
//   Ctrl+C              Cancel the reply being streamed
//   Ctrl+D              Exit

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/Capskiller/MCP-HIVE-IHM/internal/api"
	"github.com/Capskiller/MCP-HIVE-IHM/internal/chat"
	"github.com/Capskiller/MCP-HIVE-IHM/internal/config"
	"github.com/Capskiller/MCP-HIVE-IHM/internal/session"
	"github.com/Capskiller/MCP-HIVE-IHM/internal/timeline"
	"github.com/Capskiller/MCP-HIVE-IHM/internal/transcript"
	"github.com/Capskiller/MCP-HIVE-IHM/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.Dir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history with restrictive permissions.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0755); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state for an interactive chat session.
type ChatSession struct {
	Config *config.Config
	Client *api.Client

	Store    *transcript.Store
	Timeline *timeline.Registry
	Orch     *session.Orchestrator
	Archive  *transcript.Archive

	InputCLI *ChatCLI
	Quiet    bool

	StartTime   time.Time
	TotalTokens int
	Exchanges   int
}

// NewChatSession wires the client, stores and orchestrator together.
func NewChatSession(args Args, cfg *config.Config) *ChatSession {
	client := api.NewClientWithConfig(&api.ClientConfig{
		BaseURL:      cfg.Backend.URL,
		Timeout:      time.Duration(cfg.Backend.TimeoutSecs) * time.Second,
		DefaultModel: cfg.Chat.DefaultModel,
	})

	store := transcript.NewStore()
	reg := timeline.NewRegistry()
	orch := session.New(client, store, reg)

	model := args.Model
	if model == "" {
		model = cfg.Chat.DefaultModel
	}
	orch.SetModel(model)

	return &ChatSession{
		Config:    cfg,
		Client:    client,
		Store:     store,
		Timeline:  reg,
		Orch:      orch,
		InputCLI:  NewChatCLI(),
		Quiet:     args.Quiet,
		StartTime: time.Now(),
	}
}

// openArchive loads previously archived conversations into the store.
// History failures are reported but never prevent chatting.
func (s *ChatSession) openArchive() {
	if !s.Config.History.Enabled {
		return
	}
	path, err := s.Config.HistoryPath()
	if err != nil {
		return
	}
	archive, err := transcript.OpenArchive(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s historique indisponible: %v\n",
			warningStyle.Render("[Avertissement]"), err)
		return
	}
	s.Archive = archive

	if convs, err := archive.LoadAll(); err == nil && len(convs) > 0 {
		s.Store.Restore(convs)
	}
}

// closeArchive flushes every conversation and prunes old ones.
func (s *ChatSession) closeArchive() {
	if s.Archive == nil {
		return
	}
	if err := s.Archive.SaveAll(s.Store); err == nil {
		s.Archive.Prune(s.Config.History.MaxConversations)
	}
	s.Archive.Close()
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat runs the interactive chat session.
func HandleChat(args Args, cfg *config.Config) error {
	if !IsTTY() {
		return fmt.Errorf("le chat interactif nécessite un terminal")
	}

	sess := NewChatSession(args, cfg)
	SetMarkdownTheme(cfg.UI.Theme)

	// Backend reachability check up front, with a friendly message.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	health, err := sess.Client.GetHealth(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("le backend MCP-HIVE ne répond pas sur %s: %w", cfg.Backend.URL, err)
	}

	sess.openArchive()
	defer sess.closeArchive()
	defer sess.InputCLI.Close()

	// Pick up config edits while the session runs. Only settings that are
	// safe to change mid-session are applied.
	if configPath, err := configFilePath(args); err == nil {
		if watcher, err := config.NewWatcher(configPath, func(updated *config.Config) {
			sess.Config.UI = updated.UI
			if !sess.Orch.IsStreaming() && updated.Chat.DefaultModel != "" {
				sess.Orch.SetModel(updated.Chat.DefaultModel)
			}
		}); err == nil {
			if err := watcher.Watch(); err == nil {
				defer watcher.Close()
			} else {
				watcher.Close()
			}
		}
	}

	if !sess.Quiet {
		printWelcome(sess, health)
	}

	// Ctrl+C cancels the stream in flight rather than killing the process.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		for range sigChan {
			if sess.Orch.IsStreaming() {
				sess.Orch.CancelStream()
				fmt.Fprintln(os.Stderr, "\n"+warningStyle.Render("[Annulé]"))
			}
		}
	}()

	for {
		input, err := sess.InputCLI.ReadInput(promptStyle.Render("mcp-hive> "))
		if err != nil {
			// liner.ErrPromptAborted (Ctrl+C) or EOF (Ctrl+D): exit.
			fmt.Println()
			printExitSummary(sess)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			keepGoing, err := handleSlashCommand(input, sess)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Erreur]"), err)
			}
			if !keepGoing {
				printExitSummary(sess)
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			printExitSummary(sess)
			return nil
		}

		if err := processMessage(sess, input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Erreur]"), err)
		}
	}
}

// configFilePath resolves the config file the session should watch.
func configFilePath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	return config.Path()
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage runs one exchange and displays the streamed reply.
func processMessage(sess *ChatSession, input string) error {
	useMarkdown := sess.Config.UI.RenderMarkdown && IsStdoutTTY()
	start := time.Now()

	// Live output: raw deltas unless we will re-render as markdown at the
	// end, tool executions inline either way.
	streamed := 0
	sess.Orch.SetDeltaCallback(func() {
		if useMarkdown {
			return
		}
		conv := sess.Store.Current()
		if conv == nil {
			return
		}
		msg := conv.LastMessage()
		if msg == nil {
			return
		}
		// Print only the part not yet written.
		if len(msg.Content) > streamed {
			fmt.Print(msg.Content[streamed:])
			streamed = len(msg.Content)
		}
	})
	if sess.Config.UI.ShowToolCalls {
		sess.Orch.SetToolCallback(func() {
			printLatestToolEvent(sess)
		})
	} else {
		sess.Orch.SetToolCallback(nil)
	}

	fmt.Println()
	err := sess.Orch.SendMessage(context.Background(), input)
	if err != nil {
		return err
	}

	conv := sess.Store.Current()
	if conv == nil {
		return nil
	}
	msg := conv.LastMessage()
	if msg == nil {
		return nil
	}

	switch sess.Orch.State() {
	case session.StateCompleted:
		if useMarkdown {
			fmt.Print(renderMarkdown(msg.Content))
		} else {
			fmt.Println()
		}
	case session.StateCancelled:
		// Partial content was already streamed; just move on.
		fmt.Println()
	case session.StateErrored:
		fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("[Erreur]"), msg.Content)
	}
	fmt.Println()

	sess.Exchanges++
	if msg.Tokens != nil {
		sess.TotalTokens += msg.Tokens.Total
	}

	if !sess.Quiet && sess.Config.UI.ShowTokens && msg.Tokens != nil {
		fmt.Fprintf(os.Stderr, "%s %d tokens (%d + %d) | %s\n",
			mutedStyle.Render("[Stats]"),
			msg.Tokens.Total, msg.Tokens.Prompt, msg.Tokens.Completion,
			time.Since(start).Round(time.Millisecond))
	}

	return nil
}

// printLatestToolEvent renders the most recent tool call transition.
func printLatestToolEvent(sess *ChatSession) {
	calls := sess.Timeline.All()
	if len(calls) == 0 {
		return
	}
	tc := calls[len(calls)-1]

	switch tc.Status {
	case chat.ToolRunning:
		fmt.Fprintf(os.Stderr, "\n%s %s (%s)...\n",
			toolStyle.Render("[Outil]"), tc.ToolName, tc.ServerName)
	case chat.ToolSuccess:
		fmt.Fprintf(os.Stderr, "%s %s terminé en %s\n",
			commandStyle.Render("[Outil]"), tc.ToolName, util.FormatMillis(tc.DurationMs))
	case chat.ToolError:
		fmt.Fprintf(os.Stderr, "%s %s a échoué\n",
			errorStyle.Render("[Outil]"), tc.ToolName)
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes slash commands.
// Returns (keepGoing, error) where keepGoing=false means exit.
func handleSlashCommand(cmd string, sess *ChatSession) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return true, nil
	}

	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?", "/":
		printHelp()
		return true, nil

	case "/new", "/n":
		conv := sess.Store.CreateConversation()
		fmt.Printf("%s %s\n", commandStyle.Render("[Nouvelle conversation]"), conv.ID[:8])
		return true, nil

	case "/list", "/l":
		printConversationList(sess)
		return true, nil

	case "/switch", "/s":
		return handleSwitch(sess, args)

	case "/delete", "/d":
		return handleDelete(sess, args)

	case "/clear":
		sess.Store.ClearAll()
		sess.Timeline.ClearAll()
		if sess.Archive != nil {
			sess.Archive.Clear()
		}
		fmt.Println(commandStyle.Render("[Conversations supprimées]"))
		return true, nil

	case "/history":
		printHistory(sess)
		return true, nil

	case "/model", "/m":
		return handleModel(sess, args)

	case "/models":
		return true, printModels(sess.Client)

	case "/servers":
		return true, printServers(sess.Client)

	case "/tools":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /tools NOM_SERVEUR")
		}
		return true, printServerTools(sess.Client, args[0])

	case "/timeline", "/t":
		printTimeline(sess)
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("commande inconnue: %s (/help pour la liste)", command)
	}
}

// handleSwitch selects a conversation by list index or id prefix.
func handleSwitch(sess *ChatSession, args []string) (bool, error) {
	if len(args) == 0 {
		return true, fmt.Errorf("usage: /switch N")
	}
	conv, err := resolveConversation(sess, args[0])
	if err != nil {
		return true, err
	}
	sess.Store.SetCurrent(conv.ID)
	fmt.Printf("%s %s\n", commandStyle.Render("[Conversation]"), conv.Title)
	return true, nil
}

// handleDelete removes the current conversation, or the one referenced.
func handleDelete(sess *ChatSession, args []string) (bool, error) {
	var conv *chat.Conversation
	if len(args) == 0 {
		conv = sess.Store.Current()
		if conv == nil {
			return true, fmt.Errorf("aucune conversation active")
		}
	} else {
		var err error
		conv, err = resolveConversation(sess, args[0])
		if err != nil {
			return true, err
		}
	}

	sess.Store.DeleteConversation(conv.ID)
	sess.Timeline.ClearConversation(conv.ID)
	if sess.Archive != nil {
		sess.Archive.Delete(conv.ID)
	}
	// Deleting what the backend knows about is best-effort.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	sess.Client.DeleteConversation(ctx, conv.ID)
	cancel()

	fmt.Printf("%s %s\n", commandStyle.Render("[Supprimée]"), conv.Title)
	return true, nil
}

// resolveConversation accepts a 1-based list index or an id prefix.
func resolveConversation(sess *ChatSession, ref string) (*chat.Conversation, error) {
	convs := sess.Store.List()

	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(convs) {
			return nil, fmt.Errorf("numéro %d hors limites (1-%d)", n, len(convs))
		}
		return convs[n-1], nil
	}

	for _, conv := range convs {
		if strings.HasPrefix(conv.ID, ref) {
			return conv, nil
		}
	}
	return nil, fmt.Errorf("conversation %q introuvable", ref)
}

// handleModel shows or switches the model.
func handleModel(sess *ChatSession, args []string) (bool, error) {
	if len(args) == 0 {
		model := sess.Orch.Model()
		if model == "" {
			model = "(défaut du backend)"
		}
		fmt.Printf("%s %s\n", infoStyle.Render("[Modèle]"), commandStyle.Render(model))
		return true, nil
	}

	sess.Orch.SetModel(args[0])
	fmt.Printf("%s modèle: %s\n", commandStyle.Render("[OK]"), args[0])
	return true, nil
}

// =============================================================================
// DISPLAY FUNCTIONS
// =============================================================================

// printWelcome prints the welcome banner.
func printWelcome(sess *ChatSession, health *api.Health) {
	fmt.Println()
	fmt.Println(welcomeStyle.Render("MCP-HIVE"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 30)))

	fmt.Printf("%s %s\n", infoStyle.Render("Backend:"), commandStyle.Render(sess.Config.Backend.URL))

	model := sess.Orch.Model()
	if model == "" {
		model = "défaut du backend"
	}
	fmt.Printf("%s %s\n", infoStyle.Render("Modèle:"), commandStyle.Render(model))

	if health != nil {
		status := commandStyle.Render(health.Status)
		if health.Status != "ok" && health.Status != "healthy" {
			status = warningStyle.Render(health.Status)
		}
		fmt.Printf("%s %s\n", infoStyle.Render("État:"), status)
	}

	if n := sess.Store.Len(); n > 0 {
		fmt.Printf("%s %d conversation(s) restaurée(s)\n", infoStyle.Render("Historique:"), n)
	}

	fmt.Println()
	fmt.Println(infoStyle.Render("Tapez votre message puis Entrée. Commandes: /help, /quit"))
	fmt.Println()
}

// printHelp prints available commands.
func printHelp() {
	fmt.Println()
	fmt.Println(headerStyle.Render("Commandes"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Afficher cette aide"},
		{"/new", "Nouvelle conversation"},
		{"/list", "Lister les conversations"},
		{"/switch N", "Changer de conversation"},
		{"/delete [N]", "Supprimer une conversation"},
		{"/clear", "Tout supprimer"},
		{"/history", "Afficher la conversation courante"},
		{"/model [nom]", "Afficher ou changer de modèle"},
		{"/models", "Lister les modèles du backend"},
		{"/servers", "Lister les serveurs MCP"},
		{"/tools NOM", "Outils d'un serveur MCP"},
		{"/timeline", "Exécutions d'outils de la session"},
		{"/quit, /q", "Quitter"},
	}

	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			commandStyle.Render(util.PadRight(c.cmd, 15)),
			infoStyle.Render(c.desc))
	}

	fmt.Println()
	fmt.Println(infoStyle.Render("Astuce: Ctrl+C annule la réponse en cours, Ctrl+D quitte"))
	fmt.Println()
}

// printConversationList prints every conversation, current one marked.
func printConversationList(sess *ChatSession) {
	convs := sess.Store.List()
	if len(convs) == 0 {
		fmt.Println(infoStyle.Render("[Aucune conversation]"))
		return
	}

	currentID := sess.Store.CurrentID()
	fmt.Println()
	for i, conv := range convs {
		marker := "  "
		if conv.ID == currentID {
			marker = commandStyle.Render("* ")
		}
		fmt.Printf("%s%d. %s %s\n",
			marker, i+1,
			util.PadRight(util.TruncateWidth(conv.Title, 40), 40),
			mutedStyle.Render(fmt.Sprintf("%d messages", conv.MessageCount())))
	}
	fmt.Println()
}

// printHistory prints the current conversation.
func printHistory(sess *ChatSession) {
	conv := sess.Store.Current()
	if conv == nil || len(conv.Messages) == 0 {
		fmt.Println(infoStyle.Render("[Aucun message]"))
		return
	}

	fmt.Println()
	fmt.Println(headerStyle.Render(conv.Title))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 25)))
	fmt.Println()

	for i, msg := range conv.Messages {
		role := string(msg.Role)
		switch msg.Role {
		case chat.RoleUser:
			role = promptStyle.Render("Vous")
		case chat.RoleAssistant:
			role = welcomeStyle.Render("IA")
		case chat.RoleSystem:
			role = warningStyle.Render("Système")
		}

		content := strings.ReplaceAll(msg.Content, "\n", " ")
		content = util.TruncateRunes(content, 100)
		fmt.Printf("  %d. %s: %s\n", i+1, role, content)

		for _, tc := range msg.ToolCalls {
			fmt.Printf("     %s %s (%s) %s\n",
				toolStyle.Render("→"), tc.Name, tc.Server, string(tc.Status))
		}
	}
	fmt.Println()
}

// printTimeline prints the tool executions observed this session.
func printTimeline(sess *ChatSession) {
	calls := sess.Timeline.All()
	if len(calls) == 0 {
		fmt.Println(infoStyle.Render("[Aucune exécution d'outil]"))
		return
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Exécutions d'outils"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 25)))
	fmt.Println()

	for _, tc := range calls {
		status := string(tc.Status)
		switch tc.Status {
		case chat.ToolRunning:
			status = warningStyle.Render("en cours")
		case chat.ToolSuccess:
			status = commandStyle.Render("succès")
		case chat.ToolError:
			status = errorStyle.Render("échec")
		}

		line := fmt.Sprintf("  %s  %s/%s  %s",
			tc.StartTime.Format("15:04:05"), tc.ServerName, tc.ToolName, status)
		if tc.DurationMs > 0 {
			line += mutedStyle.Render("  " + util.FormatMillis(tc.DurationMs))
		}
		fmt.Println(line)

		if tc.ResultPreview != "" {
			preview := util.TruncateRunes(util.FirstLine(tc.ResultPreview), 80)
			fmt.Printf("      %s\n", mutedStyle.Render(preview))
		}
	}
	fmt.Println()
}

// printExitSummary prints the session summary on exit.
func printExitSummary(sess *ChatSession) {
	if sess.Exchanges == 0 {
		fmt.Println(infoStyle.Render("Au revoir !"))
		return
	}

	elapsed := time.Since(sess.StartTime).Round(time.Second)

	fmt.Println()
	fmt.Println(headerStyle.Render("Résumé de session"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 18)))
	fmt.Printf("  %s %d\n", infoStyle.Render("Échanges:"), sess.Exchanges)
	fmt.Printf("  %s %d\n", infoStyle.Render("Tokens:"), sess.TotalTokens)
	fmt.Printf("  %s %s\n", infoStyle.Render("Durée:"), elapsed.String())
	fmt.Println()
	fmt.Println(infoStyle.Render("Au revoir !"))
}
