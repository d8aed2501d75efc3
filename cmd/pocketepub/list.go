package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/pocketepub/pkg/data"
	"github.com/spf13/cobra"
)

func newListCmd(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List processed chapters",
		Long:  "Display the chapter history in a formatted table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if cfg.Paths.HistoryDB == "" {
				fmt.Fprintln(out, "History is disabled (paths.history_db is empty).")
				return nil
			}

			if _, err := os.Stat(cfg.Paths.HistoryDB); os.IsNotExist(err) {
				fmt.Fprintln(out, "📚 No chapters yet. Use 'pocketepub download <url>' to fetch one.")
				return nil
			}

			repo, err := data.NewDuckDBRepository(cfg.Paths.HistoryDB)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer repo.Close()

			chapters, err := repo.ListChapters()
			if err != nil {
				return err
			}

			if len(chapters) == 0 {
				fmt.Fprintln(out, "📚 No chapters yet. Use 'pocketepub download <url>' to fetch one.")
				return nil
			}

			fmt.Fprintf(out, "\n📚 History (%d chapters)\n\n", len(chapters))
			fmt.Fprintln(out, historyTable(chapters).View())
			return nil
		},
	}
}

func historyTable(chapters []*data.Chapter) table.Model {
	columns := []table.Column{
		{Title: "Chapter", Width: 22},
		{Title: "Title", Width: 30},
		{Title: "Status", Width: 12},
		{Title: "Pages", Width: 6},
		{Title: "Updated", Width: 16},
	}

	rows := make([]table.Row, 0, len(chapters))
	for _, chapter := range chapters {
		status := chapter.Status
		if status == "" {
			status = "unknown"
		}
		rows = append(rows, table.Row{
			truncateString(chapter.ID, 20),
			truncateString(chapter.Title, 28),
			status,
			fmt.Sprintf("%d", chapter.Pages),
			chapter.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.NoColor{}).
		Bold(false)
	t.SetStyles(s)
	return t
}

func truncateString(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
