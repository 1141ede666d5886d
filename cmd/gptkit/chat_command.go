package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"gptkit/internal/logging"
	"gptkit/internal/usage"
	"gptkit/pkg/chat"
)

type chatOptions struct {
	model     string
	system    string
	tools     []string
	maxTokens int
	execute   bool
	raw       bool
	showUsage bool
}

func newChatCommand(ctx *commandContext) *cobra.Command {
	var opts chatOptions

	cmd := &cobra.Command{
		Use:   "chat [prompt...]",
		Short: "Send a prompt and print the reply",
		Long: "Send a single chat completion request. The prompt is taken from the arguments, " +
			"or from stdin when no arguments are given. Attach tools with --tool; when the model " +
			"answers with a tool call, --execute runs it once and prints the result.",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return runChat(cmd, ctx, opts, prompt)
		},
	}

	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "Model to use (default: openai.default_model)")
	cmd.Flags().StringVarP(&opts.system, "system", "s", "", "System message sent before the prompt")
	cmd.Flags().StringArrayVarP(&opts.tools, "tool", "t", nil, "Attach a registered tool (repeatable)")
	cmd.Flags().IntVar(&opts.maxTokens, "max-tokens", 0, "Upper bound on completion tokens")
	cmd.Flags().BoolVarP(&opts.execute, "execute", "x", false, "Run the requested tool call and print its result")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Print the raw provider response as JSON")
	cmd.Flags().BoolVar(&opts.showUsage, "show-usage", false, "Print token usage to stderr")
	return cmd
}

func readPrompt(in io.Reader, args []string) (string, error) {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt != "" {
		return prompt, nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read prompt from stdin: %w", err)
	}
	prompt = strings.TrimSpace(string(data))
	if prompt == "" {
		return "", errors.New("prompt is required (pass it as arguments or on stdin)")
	}
	return prompt, nil
}

func runChat(cmd *cobra.Command, ctx *commandContext, opts chatOptions, prompt string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	client, err := ctx.providerClient()
	if err != nil {
		return err
	}
	registry, err := ctx.toolRegistry()
	if err != nil {
		return err
	}

	builder := chat.New(client, chat.Options{
		DefaultModel: cfg.OpenAI.DefaultModel,
		Registry:     registry,
		Logger:       logger,
	}).Model(opts.model)
	if system := strings.TrimSpace(opts.system); system != "" {
		builder.AddMessage(chat.RoleSystem, system)
	}
	builder.Prompt(prompt).Tools(opts.tools...).MaxOutputTokens(opts.maxTokens)

	requestCtx := cmd.Context()
	resp, err := builder.Send(requestCtx)
	if err != nil {
		return err
	}

	model := resp.Model
	if model == "" {
		model = firstNonEmpty(opts.model, cfg.OpenAI.DefaultModel)
	}
	recordUsage(requestCtx, ctx, model, resp)

	if opts.showUsage {
		fmt.Fprintf(cmd.ErrOrStderr(), "model: %s  prompt: %d  completion: %d  total: %d\n",
			model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens)
	}
	if opts.raw {
		return writeJSON(cmd, resp.Raw)
	}
	return printChatResponse(requestCtx, cmd, resp, opts.execute)
}

func printChatResponse(ctx context.Context, cmd *cobra.Command, resp *chat.Response, execute bool) error {
	out := cmd.OutOrStdout()
	if resp.ToolCall == nil {
		if resp.RequestedTool != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Model requested unknown tool %q; ignoring\n", resp.RequestedTool)
		}
		fmt.Fprintln(out, resp.Content)
		return nil
	}

	fmt.Fprintf(out, "Tool call: %s\n", resp.ToolCall.Name)
	if err := writeJSON(cmd, resp.ToolCall.Args); err != nil {
		return err
	}
	if !execute {
		return nil
	}
	result, err := resp.ToolCall.Execute(ctx)
	if err != nil {
		return fmt.Errorf("execute tool %s: %w", resp.ToolCall.Name, err)
	}
	fmt.Fprintln(out, "Result:")
	return writeJSON(cmd, result)
}

// recordUsage appends the response to the usage ledger. Ledger failures are
// logged and never fail the command.
func recordUsage(reqCtx context.Context, ctx *commandContext, model string, resp *chat.Response) {
	logger, err := ctx.ensureLogger()
	if err != nil {
		return
	}
	store, err := ctx.openUsage()
	if err != nil {
		logger.Warn("usage ledger unavailable",
			logging.String(logging.FieldEventType, "usage_open_failed"),
			logging.Error(err),
		)
		return
	}
	if store == nil {
		return
	}
	defer store.Close()

	entry := usage.Entry{
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	if resp.ToolCall != nil {
		entry.Tool = resp.ToolCall.Name
	}
	if _, err := store.Record(reqCtx, entry); err != nil {
		logger.Warn("usage entry not recorded",
			logging.String(logging.FieldEventType, "usage_record_failed"),
			logging.Error(err),
		)
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
