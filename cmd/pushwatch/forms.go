package main

import (
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pushwatch/config"
	"github.com/jpalmerr/pushwatch/dialog"
	"github.com/jpalmerr/pushwatch/pageurl"
)

var formsCmd = &cobra.Command{
	Use:   "forms",
	Short: "Show the forms a push page offers",
	Long: `Show the dialogs a push page opens: Start Push, Send to Stage
(posting to the push) and, with --reject, Reject Request for one request
on the push.

The push comes from --push-url or push_url in a config file given with -c.

Example:
  pushwatch forms --push-url https://pushmaster.example.com/push/abc \
    --reject /request/r1 --subject "Fix login"`,
	RunE: runForms,
}

func init() {
	rootCmd.AddCommand(formsCmd)

	f := formsCmd.Flags()
	f.StringP("config", "c", "", "config file supplying push_url")
	f.String("push-url", "", "push page URL")
	f.String("reject", "", "request link to build a Reject Request form for")
	f.String("subject", "", "subject of the request given with --reject")
}

func runForms(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()

	pushURL, _ := f.GetString("push-url")
	if configFile, _ := f.GetString("config"); configFile != "" && pushURL == "" {
		if err := loadEnv(cmd); err != nil {
			return err
		}
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		pushURL = cfg.PushURL
	}
	if pushURL == "" {
		return errors.New("a push is required (--push-url or push_url in config)")
	}
	u, err := url.Parse(pushURL)
	if err != nil {
		return fmt.Errorf("invalid push URL: %w", err)
	}

	out := cmd.OutOrStdout()

	start := dialog.NewStartPush()
	describeForm(out, &start.Form)

	stage := dialog.NewSendToStage().SetAction(u.EscapedPath())
	describeForm(out, &stage.Form)

	reject, _ := f.GetString("reject")
	if reject == "" {
		return nil
	}
	if pageurl.IsPlaceholderHref(reject) {
		return fmt.Errorf("request link %q is a placeholder, not a request", reject)
	}
	subject, _ := f.GetString("subject")

	// the reject form returns to the push page without its query switches
	back := *u
	back.RawQuery = ""
	back.Fragment = ""

	rr := dialog.NewRejectRequest().SetRequest(reject, subject, back.String())
	describeForm(out, &rr.Form)
	fmt.Fprintf(out, "  subject:    %s\n", rr.Subject())
	fmt.Fprintf(out, "  return_url: %s\n", rr.Field("return_url"))
	return nil
}

// describeForm prints a form's presentation and action.
func describeForm(out io.Writer, f *dialog.Form) {
	opts := f.Options()
	fmt.Fprintf(out, "%s (%dx%d, top %d)\n", opts.Title, opts.Width, opts.Height, opts.Top)
	if action := f.Action(); action != "" {
		fmt.Fprintf(out, "  posts to:   %s\n", action)
	}
	if !f.Initialized() {
		fmt.Fprintln(out, "  opens on demand")
	}
}
