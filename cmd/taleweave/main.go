package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	taleweave "github.com/taleweave/taleweave/src"
	"github.com/taleweave/taleweave/storybook"
)

var (
	genre    = flag.String("genre", "", "Genre id to play (see -list)")
	language = flag.String("language", "", "Narrative language (default English)")
	list     = flag.Bool("list", false, "List available genres and exit")
	outDir   = flag.String("out", "", "Directory to save the finished story to")
	pdfPath  = flag.String("pdf", "", "Write the finished story as a PDF storybook")
)

// consoleProgress prints engine progress lines to the terminal.
type consoleProgress struct{}

func (consoleProgress) UpdateOutput(message string) {
	fmt.Println("  ...", message)
}

func main() {
	flag.Parse()
	_ = godotenv.Load()

	if *list {
		for _, g := range taleweave.Genres() {
			fmt.Printf("%-16s %s\n", g.ID, g.Description)
		}
		return
	}
	if *genre == "" {
		fmt.Println("Please provide a genre with -genre (use -list to see them)")
		os.Exit(1)
	}

	cfg, err := taleweave.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Configuration error: %v\n", err)
		os.Exit(1)
	}

	orch, err := buildOrchestrator(cfg)
	if err != nil {
		fmt.Printf("Error building providers: %v\n", err)
		os.Exit(1)
	}

	engine := taleweave.NewEngine(orch, taleweave.NewMemoryStore(), consoleProgress{})
	ctx := context.Background()

	if err := engine.StartSession(ctx, *genre, *language); err != nil {
		fmt.Printf("Error starting story: %v\n", err)
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		state := engine.State()
		fmt.Printf("\n=== Turn %d of %d ===\n\n%s\n", state.CurrentTurn, state.MaxTurns, state.Narrative)

		if state.Phase == taleweave.PhaseEpilogue {
			fmt.Println("\n--- The End ---")
			break
		}

		fmt.Println()
		for i, choice := range state.Choices {
			fmt.Printf("  %d) %s\n", i+1, choice)
		}
		choice := readChoice(reader, state.Choices)

		if err := engine.SelectChoice(ctx, choice); err != nil {
			fmt.Printf("Error generating next turn: %v\n", err)
			if retryPrompt(reader) {
				if err := engine.Retry(ctx); err != nil {
					fmt.Printf("Retry failed: %v\n", err)
					os.Exit(1)
				}
				continue
			}
			os.Exit(1)
		}
	}

	final := engine.State()
	if *outDir != "" {
		if err := taleweave.SaveStory(final, *outDir); err != nil {
			fmt.Printf("Error saving story: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Story saved to %s\n", *outDir)
	}
	if *pdfPath != "" {
		pdf, err := storybook.NewCompiler().Compile(final)
		if err != nil {
			fmt.Printf("Error compiling storybook: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*pdfPath, pdf, 0o644); err != nil {
			fmt.Printf("Error writing storybook: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Storybook written to %s\n", *pdfPath)
	}
}

func readChoice(reader *bufio.Reader, choices []string) string {
	for {
		fmt.Print("\nYour choice: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nGoodbye.")
			os.Exit(0)
		}
		line = strings.TrimSpace(line)
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(choices) {
			return choices[n-1]
		}
		fmt.Printf("Please enter a number between 1 and %d\n", len(choices))
	}
}

func retryPrompt(reader *bufio.Reader) bool {
	fmt.Print("Retry? [y/N]: ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

func buildOrchestrator(cfg *taleweave.Config) (*taleweave.Orchestrator, error) {
	textPrimary, err := taleweave.NewTextProvider(cfg.TextPrimary, cfg)
	if err != nil {
		return nil, err
	}
	textSecondary, err := taleweave.NewTextProvider(cfg.TextSecondary, cfg)
	if err != nil {
		return nil, err
	}
	imagePrimary, err := taleweave.NewImageProvider(cfg.ImagePrimary, cfg)
	if err != nil {
		return nil, err
	}
	imageSecondary, err := taleweave.NewImageProvider(cfg.ImageSecondary, cfg)
	if err != nil {
		return nil, err
	}
	return &taleweave.Orchestrator{
		TextPrimary:    textPrimary,
		TextSecondary:  textSecondary,
		ImagePrimary:   imagePrimary,
		ImageSecondary: imageSecondary,
	}, nil
}
