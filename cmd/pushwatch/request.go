package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pushwatch/config"
	"github.com/jpalmerr/pushwatch/dialog"
	"github.com/jpalmerr/pushwatch/pageurl"
	"github.com/jpalmerr/pushwatch/request"
)

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Build a push request URL from a shipped review",
	Long: `Build the link that opens the tracking server's request form with
the subject, message and branch of a shipped code review filled in.

The host and ticket URL come from --host and --ticket-url, or from the
request section of a config file given with -c.

With --preview, the URL is parsed back the way the request page reads it
and the prefilled form fields are printed.

Example:
  pushwatch request --host pushmaster.example.com \
    --summary "Fix login" --review-url https://review.example.com/r/12 \
    --reviewer alice --reviewer bob --bugs "123, 456" --branch fix-login`,
	RunE: runRequest,
}

func init() {
	rootCmd.AddCommand(requestCmd)

	f := requestCmd.Flags()
	f.StringP("config", "c", "", "config file supplying request.host and request.ticket_url")
	f.String("host", "", "tracking server host")
	f.String("ticket-url", "", "prefix for ticket numbers (default "+request.DefaultTicketBase+")")
	f.String("summary", "", "review summary, used as the request subject")
	f.String("review-url", "", "code review URL")
	f.StringArray("reviewer", nil, "approving reviewer (repeatable)")
	f.String("bugs", "", "comma separated bugs closed")
	f.String("branch", "", "branch to push")
	f.Bool("preview", false, "print the form fields the URL prefills")
}

func runRequest(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()

	host, _ := f.GetString("host")
	ticketURL, _ := f.GetString("ticket-url")

	if configFile, _ := f.GetString("config"); configFile != "" {
		if err := loadEnv(cmd); err != nil {
			return err
		}
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if host == "" {
			host = cfg.Request.Host
		}
		if ticketURL == "" {
			ticketURL = cfg.Request.TicketURL
		}
	}
	if host == "" {
		return errors.New("a host is required (--host or request.host in config)")
	}
	if ticketURL == "" {
		ticketURL = request.DefaultTicketBase
	}

	review := request.Review{}
	review.Summary, _ = f.GetString("summary")
	review.URL, _ = f.GetString("review-url")
	review.Reviewers, _ = f.GetStringArray("reviewer")
	review.BugsClosed, _ = f.GetString("bugs")
	review.Branch, _ = f.GetString("branch")

	link, err := review.RequestURL(host, ticketURL)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, link)

	if preview, _ := f.GetBool("preview"); preview {
		return printPreview(cmd, link)
	}
	return nil
}

// printPreview shows the Make Request form as the request page would
// prefill it from link.
func printPreview(cmd *cobra.Command, link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("failed to parse request URL: %w", err)
	}

	d := dialog.NewMakeRequest(pageurl.ParseQuery(u.RawQuery))
	opts := d.Options()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%s (%dx%d)", opts.Title, opts.Width, opts.Height)
	if d.IsOpen() {
		fmt.Fprintln(out, " opens on load")
	} else {
		fmt.Fprintln(out, " stays closed")
	}
	fmt.Fprintf(out, "  subject: %s\n", d.Field("subject"))
	fmt.Fprintf(out, "  branch:  %s\n", d.Field("branch"))
	fmt.Fprintf(out, "  message:\n%s\n", indent(d.Field("message")))
	return nil
}

func indent(s string) string {
	if s == "" {
		return "    (empty)"
	}
	return "    " + strings.ReplaceAll(s, "\n", "\n    ")
}
