package main

import (
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ashureev/coachlab/internal/coach"
	"github.com/ashureev/coachlab/internal/domain"
	"github.com/ashureev/coachlab/internal/scenario"
	"github.com/ashureev/coachlab/internal/session"
)

// --- scenarios ---

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List the role-play scenarios",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, sc := range scenario.Default().All() {
			fmt.Fprintf(tw, "%s\t%s\n", sc.Name, sc.Description)
		}
		return tw.Flush()
	},
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <challenge...>",
	Short: "Get one-shot coaching advice for a managerial challenge",
	Long: `Get one-shot coaching advice for a managerial challenge.

Examples:
  coachd ask "My team is unmotivated"
  coachd ask --industry Finance --size "Large (501-5000)" --level "Senior Manager" \
    How do I prioritize competing projects?`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		industry, _ := cmd.Flags().GetString("industry")
		size, _ := cmd.Flags().GetString("size")
		level, _ := cmd.Flags().GetString("level")

		profile, err := domain.ManagerProfile{
			Industry:     industry,
			CompanySize:  size,
			ManagerLevel: level,
		}.Normalize()
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		completer, err := newCompleter(cmd.Context(), cfg.LLM)
		if err != nil {
			return err
		}

		d := coach.NewDispatcher(completer, cfg.LLM.Model)
		slog.Debug("Requesting coaching advice", "model", d.Model(), "profile", profile)
		turn := d.Coaching(session.NewTranscript(), profile).HandleUserInput(cmd.Context(), strings.Join(args, " "))

		_, err = fmt.Fprintln(cmd.OutOrStdout(), turn.Content)
		return err
	},
}

func init() {
	def := domain.DefaultProfile()
	askCmd.Flags().String("industry", def.Industry, "industry: "+strings.Join(domain.Industries, ", "))
	askCmd.Flags().String("size", def.CompanySize, "company size: "+strings.Join(domain.CompanySizes, ", "))
	askCmd.Flags().String("level", def.ManagerLevel, "manager level: "+strings.Join(domain.ManagerLevels, ", "))
}
