package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/xdash/internal/app"
	"github.com/ibeckermayer/xdash/internal/config"
	"github.com/ibeckermayer/xdash/internal/probe"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the loaded posts to a dated CSV file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			path, err := a.ExportCSV()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build the weekly report, save it and mail it if email is configured",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetBool("raw")
		return withApp(cmd, func(a *app.App) error {
			w, err := a.WeeklyReport(cmd.Context())
			if err != nil {
				return err
			}
			return renderMarkdown(cmd.OutOrStdout(), w.Markdown, raw)
		})
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check every account's API endpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			rep := a.Probe(cmd.Context())
			fmt.Fprint(cmd.OutOrStdout(), probeTable(rep))
			if !rep.Connected() {
				return fmt.Errorf("no account endpoint reachable")
			}
			return nil
		})
	},
}

var copyCmd = &cobra.Command{
	Use:   "copy [index]",
	Short: "Copy a post's text to the clipboard (the best post without an index)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			if len(args) == 0 {
				p, err := a.CopyBestPost()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "copied best post (%d likes)\n", p.Likes)
				return nil
			}
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q", args[0])
			}
			if err := a.CopyPost(index); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "copied post %d\n", index)
			return nil
		})
	},
}

var openCmd = &cobra.Command{
	Use:       "open <config|data|reports>",
	Short:     "Open the config file or a data directory",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"config", "data", "reports"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := openTarget(args[0])
		if err != nil {
			return err
		}
		return browser.OpenFile(path)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.json>...",
	Short: "Import legacy notes.json, abtests.json or accounts.json dumps",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			for _, path := range args {
				slot, err := a.Import(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", path, slot)
			}
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{exportCmd, reportCmd, copyCmd} {
		c.Flags().String("account", "", "account id to select before running")
	}
	reportCmd.Flags().Bool("raw", false, "print markdown without terminal styling")
}

func openTarget(target string) (string, error) {
	switch target {
	case "config":
		return config.ConfigPath()
	case "data":
		return config.DataDir()
	case "reports":
		cfg, err := loadConfig()
		if err != nil {
			return "", err
		}
		return cfg.ReportDir()
	default:
		return "", fmt.Errorf("unknown target: %s", target)
	}
}

func renderMarkdown(w io.Writer, md string, raw bool) error {
	if raw {
		_, err := io.WriteString(w, md)
		return err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return err
	}
	out, err := r.Render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusStyle = map[probe.Status]lipgloss.Style{
		probe.StatusOK:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		probe.StatusDown:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		probe.StatusTimeout: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		probe.StatusError:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		probe.StatusSkipped: dimStyle,
	}
)

func probeTable(rep probe.Report) string {
	var b strings.Builder
	nameW := lipgloss.Width("ACCOUNT")
	for _, r := range rep.Results {
		nameW = max(nameW, lipgloss.Width(r.Name))
	}
	name := lipgloss.NewStyle().Width(nameW + 2)
	status := lipgloss.NewStyle().Width(10)

	b.WriteString(name.Render(headerStyle.Render("ACCOUNT")) + status.Render(headerStyle.Render("STATUS")) + headerStyle.Render("DETAIL") + "\n")
	for _, r := range rep.Results {
		detail := r.Detail
		if r.Status == probe.StatusOK {
			detail = r.Latency.Round(time.Millisecond).String()
		}
		b.WriteString(name.Render(r.Name) + status.Render(statusStyle[r.Status].Render(string(r.Status))) + dimStyle.Render(detail) + "\n")
	}
	return b.String()
}
