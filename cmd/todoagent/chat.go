package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/todoagent/config"
	"github.com/mohammad-safakhou/todoagent/internal/agent/core"
	"github.com/mohammad-safakhou/todoagent/internal/agent/runtime"
	"github.com/mohammad-safakhou/todoagent/internal/agent/telemetry"
	"github.com/mohammad-safakhou/todoagent/internal/todos"
)

func chatCMD() *cobra.Command {
	var cfgPath string
	var chat = &cobra.Command{
		Use:   "chat",
		Short: "Interactive terminal chat with the todo agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := cmd.Context()

			tele := telemetry.NewTelemetry(nil)
			source := todos.NewClient(cfg.TodoSource.BaseURL, cfg.TodoSource.Timeout)
			rt := runtime.NewRuntime(cfg, source, tele, nil)

			fmt.Println("Todo Agent CLI - Type 'exit' to quit")
			fmt.Println()

			var history []core.Message
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("You: ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				input := strings.TrimSpace(scanner.Text())
				if strings.EqualFold(input, "exit") {
					return nil
				}
				if input == "" {
					continue
				}

				fmt.Print("Agent: ")
				var reply strings.Builder
				err := rt.StreamTurn(ctx, history, input, func(e runtime.Event) {
					if e.Type == runtime.EventMessage {
						fmt.Print(e.Content)
						reply.WriteString(e.Content)
					}
				})
				fmt.Println()
				fmt.Println()
				if err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
					continue
				}

				history = append(history,
					core.Message{Role: core.RoleUser, Content: input},
					core.Message{Role: core.RoleAssistant, Content: reply.String()},
				)
			}
		},
	}
	chat.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return chat
}
