package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/loopsmith/loopsmith/internal/agent"
	"github.com/loopsmith/loopsmith/internal/config"
	"github.com/loopsmith/loopsmith/internal/cost"
	"github.com/loopsmith/loopsmith/internal/mcp"
	"github.com/loopsmith/loopsmith/internal/prompt"
	"github.com/loopsmith/loopsmith/internal/provider"
	"github.com/loopsmith/loopsmith/internal/safety"
	"github.com/loopsmith/loopsmith/internal/session"
	"github.com/loopsmith/loopsmith/internal/tool"
	"github.com/loopsmith/loopsmith/internal/tool/builtin"
	"github.com/loopsmith/loopsmith/internal/util"
	"github.com/loopsmith/loopsmith/internal/web"
)

// toolsCommandDescriptionWidth bounds how much of a tool's description
// /tools prints per line (§6: "list registered tools with truncated
// descriptions").
const toolsCommandDescriptionWidth = 72

// apiKeyEnvVar maps a provider name to the environment variable holding its
// API key (§6).
var apiKeyEnvVar = map[string]string{
	"gemini":    "GEMINI_API_KEY",
	"google":    "GEMINI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
}

func main() {
	config.LoadEnv()

	fmt.Println("loopsmith — interactive coding agent")

	providerName := envOr("LLM_PROVIDER", "gemini")
	model := envOr("LLM_MODEL", "gemini-2.5-pro")

	keyVar := apiKeyEnvVar[strings.ToLower(providerName)]
	if keyVar == "" {
		keyVar = "GEMINI_API_KEY"
	}
	apiKey := os.Getenv(keyVar)
	if apiKey == "" || strings.Contains(apiKey, "your_") || strings.Contains(apiKey, "YOUR_") {
		log.Fatalf("fatal: %s is not set (or still holds its placeholder value)", keyVar)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	llm, err := provider.New(ctx, provider.Config{
		Name:   providerName,
		Model:  model,
		APIKey: apiKey,
	})
	if err != nil {
		log.Fatalf("fatal: provider %q: %v", providerName, err)
	}
	fmt.Printf("provider: %s (%s)\n", llm.Name(), llm.Model())

	workspaceDir := envOr("WORKSPACE_DIR", "")
	if workspaceDir == "" {
		workspaceDir, err = os.Getwd()
		if err != nil {
			log.Fatalf("fatal: resolve working directory: %v", err)
		}
	}
	if info, statErr := os.Stat(workspaceDir); statErr != nil || !info.IsDir() {
		log.Fatalf("fatal: WORKSPACE_DIR %q does not exist or is not a directory", workspaceDir)
	}
	fmt.Printf("workspace: %s\n", workspaceDir)

	policy := safety.NewPolicy(workspaceDir, stdinConfirm)
	registry := tool.NewRegistry()
	registry.Register(builtin.NewReadFileTool(policy))
	registry.Register(builtin.NewWriteFileTool(policy))
	registry.Register(builtin.NewEditFileTool(policy))
	registry.Register(builtin.NewListDirTool(policy))
	registry.Register(builtin.NewInsertLinesTool(policy))
	registry.Register(builtin.NewDeleteLinesTool(policy))
	registry.Register(builtin.NewGrepSearchTool(policy))
	registry.Register(builtin.NewRunCommandTool(policy))

	if err := registry.InitAll(ctx); err != nil {
		log.Fatalf("fatal: initialize tools: %v", err)
	}
	defer registry.CloseAll()

	promptsDir := envOr("PROMPTS_DIR", filepath.Join(workspaceDir, "prompts"))
	rulesPath := envOr("USER_RULES_PATH", filepath.Join(workspaceDir, "rules.md"))
	promptLoader := prompt.NewPromptLoader(promptsDir, rulesPath)

	// MCP bridge is opt-in (Supplemented Features): disabled unless the
	// operator sets MCP_ENABLED explicitly.
	if os.Getenv("MCP_ENABLED") == "true" {
		mcpConfigPath := envOr("MCP_CONFIG", "mcp.json")
		mcpMgr := mcp.NewManager(mcpConfigPath)

		n, connectErrs := mcpMgr.ConnectAll(ctx)
		for _, e := range connectErrs {
			log.Printf("mcp connect: %v", e)
		}
		if n > 0 {
			if err := mcpMgr.RegisterTools(ctx, registry); err != nil {
				log.Printf("mcp register tools: %v", err)
			}
			fmt.Printf("mcp: %d server(s) connected\n", n)
		}
		defer mcpMgr.CloseAll()
	}

	systemPrompt := buildSystemPrompt(promptLoader, registry)

	agentConfig := agent.DefaultConfig()
	if v, ok := envInt("AGENT_MAX_TOOL_ROUNDS"); ok {
		agentConfig.MaxToolRounds = v
	}
	if v, ok := envInt("AGENT_MAX_REPETITIONS"); ok {
		agentConfig.MaxRepetitions = v
	}
	if v, ok := envInt("AGENT_HISTORY_WINDOW"); ok {
		agentConfig.HistoryWindowSize = v
	}
	if v, ok := envInt("AGENT_TURN_TIMEOUT_SECONDS"); ok {
		agentConfig.TurnTimeout = time.Duration(v) * time.Second
	}
	agentConfig.DebugPrompts = os.Getenv("DEBUG_PROMPTS") == "1"

	ledger := cost.NewLedger(model)
	a := agent.New(llm, registry, ledger, agentConfig, systemPrompt)

	verbose := &atomic.Bool{}
	verbose.Store(agentConfig.Verbose)
	a.SetLogFunc(agent.NewStdoutLogger(verbose))

	if os.Getenv("WEB_ENABLED") == "true" {
		srv, err := web.NewServer(web.Dependencies{
			Model:      model,
			Registry:   registry,
			Ledger:     ledger,
			Transcript: a.Transcript,
		})
		if err != nil {
			log.Printf("web: disabled, could not start: %v", err)
		} else {
			go func() {
				if err := srv.Start(ctx); err != nil {
					log.Printf("web: %v", err)
				}
			}()
		}
	}

	runREPL(ctx, a, ledger, registry, verbose)
}

func runREPL(ctx context.Context, a *agent.Agent, ledger *cost.Ledger, registry *tool.Registry, verbose *atomic.Bool) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	printPrompt()

	for scanner.Scan() {
		if ctx.Err() != nil {
			fmt.Println("\ninterrupted")
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			printPrompt()
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := handleMetaCommand(line, a, ledger, registry, verbose); quit {
				return
			}
			printPrompt()
			continue
		}

		reply, err := a.ProcessMessage(ctx, line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			printPrompt()
			continue
		}
		fmt.Println(reply)
		fmt.Printf("[%s]\n", ledger.Short())
		printPrompt()
	}
}

// handleMetaCommand dispatches a `/`-prefixed line (§6). It returns true
// when the REPL should exit.
func handleMetaCommand(line string, a *agent.Agent, ledger *cost.Ledger, registry *tool.Registry, verbose *atomic.Bool) bool {
	fields := strings.Fields(line)
	cmd := fields[0]

	switch cmd {
	case "/help":
		printHelp()
	case "/clear":
		a.Clear()
		fmt.Println("transcript cleared")
	case "/tools":
		for _, def := range registry.Definitions() {
			fmt.Printf("  %-16s %s\n", def.Name, util.TruncateRunes(def.Description, toolsCommandDescriptionWidth))
		}
	case "/exit", "/quit":
		fmt.Println("bye")
		return true
	case "/verbose":
		verbose.Store(!verbose.Load())
		fmt.Printf("verbose = %v\n", verbose.Load())
	case "/cost":
		fmt.Print(ledger.Detailed())
	case "/save":
		if len(fields) < 2 {
			fmt.Println("usage: /save <path>")
			return false
		}
		if err := session.Save(fields[1], a.Transcript()); err != nil {
			fmt.Printf("save failed: %v\n", err)
			return false
		}
		fmt.Printf("saved transcript to %s\n", fields[1])
	case "/load":
		if len(fields) < 2 {
			fmt.Println("usage: /load <path>")
			return false
		}
		transcript, err := session.Load(fields[1])
		if err != nil {
			fmt.Printf("load failed: %v\n", err)
			return false
		}
		a.LoadTranscript(transcript)
		fmt.Printf("loaded transcript from %s (%d messages)\n", fields[1], len(transcript))
	default:
		fmt.Printf("unrecognized command %q; try /help\n", cmd)
	}
	return false
}

func printHelp() {
	fmt.Println(`commands:
  /help              show this message
  /clear             reset the conversation transcript
  /tools             list registered tools
  /verbose           toggle verbose round-by-round logging
  /cost              print the cost ledger's detailed report
  /save <path>       save the transcript to a JSON file
  /load <path>       load a transcript from a JSON file
  /exit, /quit       exit`)
}

func printPrompt() {
	fmt.Print("> ")
}

// buildSystemPrompt renders the base L2 template with the live tool catalog
// patched in, then appends any L3 user rules.
func buildSystemPrompt(loader *prompt.PromptLoader, registry *tool.Registry) string {
	loader.PatchFile("system_base.md", "{{TOOLS}}", registry.GenerateToolsPrompt())
	base := loader.Load("system_base.md")
	rules := loader.LoadUserRules()
	if rules == "" {
		return base
	}
	return base + "\n\nProject rules:\n" + rules
}

// stdinConfirm implements safety.ConfirmationHandler against the REPL's own
// stdin, separate from the conversation scanner so a confirmation prompt
// can interleave with a tool call mid-turn.
func stdinConfirm(question string) bool {
	fmt.Printf("%s [y/N] ", question)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("ignoring invalid %s=%q: %v", key, v, err)
		return 0, false
	}
	return n, true
}
