package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/raphaelgruber/tablemap-go/internal/importer"
	"github.com/raphaelgruber/tablemap-go/internal/models"
	"github.com/spf13/cobra"
)

var (
	chatSheet       string
	chatInstruction string
)

var chatCmd = &cobra.Command{
	Use:   "chat <file-id>",
	Short: "Negotiate a mapping plan interactively with the assistant",
	Long: `Open a conversation with the mapping assistant for one file.

When the file previously failed, the last error is handed to the
assistant so it does not repeat the same plan. Inside the chat:

  /execute   run the negotiated plan (once the assistant has one)
  /confirm   quick action: CONFIRM IMPORT
  /new-table quick action: request a new table
  /adjust    quick action: adjust the column mapping
  /dups      quick action: review duplicate handling
  /quit      abandon the conversation

Examples:
  tablemap chat 7f3a91
  tablemap chat 7f3a91 --sheet "Q3 Orders"`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSheet, "sheet", "", "workbook sheet to map")
	chatCmd.Flags().StringVar(&chatInstruction, "instruction", "", "saved instruction name to apply")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ctrl := newController()
	defer ctrl.Close()

	file, err := ctrl.LoadFile(ctx, args[0])
	if err != nil {
		return fmt.Errorf("load file: %w", err)
	}

	instruction, err := resolveInstruction(ctx, chatInstruction)
	if err != nil {
		return err
	}

	state, err := ctrl.StartInteractive(ctx, importer.StartOptions{
		SheetName:   chatSheet,
		Instruction: instruction,
	})
	if errors.Is(err, importer.ErrJobActive) {
		return fmt.Errorf("a mapping job is already running for %s; wait for it first", file.Name)
	}
	if err != nil {
		return fmt.Errorf("start conversation: %w", err)
	}

	printAssistantTurn(state)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println("\nConversation abandoned.")
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/q":
			fmt.Println("Conversation abandoned.")
			return nil

		case "/execute":
			result, err := ctrl.ExecuteThread(ctx)
			if errors.Is(err, importer.ErrCannotExecute) {
				fmt.Println("The assistant has no executable plan yet; keep negotiating.")
				continue
			}
			if err != nil {
				return fmt.Errorf("execute: %w", err)
			}
			if result.Success {
				fmt.Printf("Imported %d rows into %s (%.1fs)\n",
					result.RowsImported, result.TableName, result.ProcessingTime)
				printPostImport(ctrl.State())
				return nil
			}
			// Failure keeps the thread open; show what came back.
			fmt.Printf("Execution failed: %s\n", result.Message)
			if result.FollowUp != nil && *result.FollowUp != "" {
				fmt.Printf("\nassistant: %s\n", *result.FollowUp)
			}
			continue

		case "/confirm", "/new-table", "/adjust", "/dups":
			conv := ctrl.Conversation()
			if conv == nil {
				return importer.ErrNoThread
			}
			state, err := conv.Quick(ctx, quickActionFor(line))
			if err != nil {
				return fmt.Errorf("quick action: %w", err)
			}
			printAssistantTurn(state)
			continue
		}

		state, err := ctrl.SendMessage(ctx, line)
		if errors.Is(err, importer.ErrTurnInFlight) {
			fmt.Println("Still waiting on the assistant; try again in a moment.")
			continue
		}
		if err != nil {
			return fmt.Errorf("send: %w", err)
		}
		printAssistantTurn(state)
	}
}

func quickActionFor(command string) importer.QuickAction {
	switch command {
	case "/confirm":
		return importer.QuickConfirmImport
	case "/new-table":
		return importer.QuickNewTable
	case "/adjust":
		return importer.QuickAdjustMapping
	default:
		return importer.QuickReviewDuplicates
	}
}

func printAssistantTurn(state *models.ConversationState) {
	if state == nil || len(state.Messages) == 0 {
		return
	}
	last := state.Messages[len(state.Messages)-1]
	fmt.Printf("\nassistant: %s\n\n", last.Content)
	if state.CanExecute {
		fmt.Println("(a mapping plan is ready; /execute to run it)")
	}
}
