package main

import (
	"os"

	"RouteDesk/internal/backend"
	"RouteDesk/internal/chatbot"

	"github.com/spf13/cobra"
)

var (
	chatSessionID  string
	chatNewSession bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat with the support pipeline",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSessionID, "session-id", "", "Use this pipeline session id")
	chatCmd.Flags().BoolVar(&chatNewSession, "new-session", false, "Start with a freshly generated session id")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	if chatSessionID != "" {
		cfg.SessionID = chatSessionID
	}
	cfg.NewSession = chatNewSession

	pipeline, err := backend.NewPipelineClient(cfg.PipelineURL, a.logger, a.inst)
	if err != nil {
		return err
	}

	bot, err := chatbot.NewChatBot(ctx, cfg, pipeline, a.store, a.logger, a.inst.Meter, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}

	return bot.Run(ctx)
}
