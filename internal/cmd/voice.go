package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"auravox/internal/bootstrap"
	"auravox/internal/domain"
	"auravox/internal/rules"
)

func NewVoiceCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voice-check",
		Short: "Report which speech input method this machine would use",
		Long: `Probe the local runtime the same way the desktop app does and print the
detected capabilities and the selected input method.

Examples:
  auravoxd voice-check
  auravoxd voice-check --apply "open a pull request"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			coordinator, err := bootstrap.NewCoordinator(cfg, logSink{logger: logger.WithName("voice-check")}, logger)
			if err != nil {
				return err
			}
			defer coordinator.Close()

			status := coordinator.Status()
			out := map[string]any{
				"capabilities": coordinator.Capabilities(),
				"method":       status.Method,
				"supported":    status.IsSupported,
				"serverURL":    cfg.Voice.ServerURL,
				"rulesFile":    cfg.Rules.Path,
			}

			if text, _ := cmd.Flags().GetString("apply"); text != "" {
				engine, err := rules.NewEngine(cfg.Rules.Path, cfg.Rules.IterationLimit)
				if err != nil {
					return err
				}
				transformed, err := engine.Apply(text)
				if err != nil {
					return fmt.Errorf("apply rules: %w", err)
				}
				out["rules"] = engine.Len()
				out["transformed"] = transformed
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().String("apply", "", "Run this text through the substitution rules")

	return cmd
}

// logSink reports coordinator events to the log instead of a UI.
type logSink struct {
	logger logr.Logger
}

func (s logSink) StateChanged(status domain.Status, reason domain.StateReason) {
	s.logger.V(1).Info("state", "state", status.State, "method", status.Method, "reason", reason)
}

func (s logSink) InterimTranscript(text string) {
	s.logger.V(1).Info("interim", "text", text)
}

func (s logSink) FinalTranscript(result domain.FinalTranscript) {
	s.logger.Info("final", "method", result.Method, "text", result.Transformed)
}

func (s logSink) RecognitionError(record domain.ErrorRecord) {
	s.logger.Info("recognition error", "kind", record.Kind, "message", record.Message)
}

func (s logSink) MethodChanged(from domain.Strategy, to domain.Strategy) {
	s.logger.Info("method changed", "from", from, "to", to)
}
