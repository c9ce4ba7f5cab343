// Package request builds the "make request" redirect used after a code review
// is shipped.
//
// A [Review] carries the values scraped from a code-review page. [Review.RequestURL]
// turns them into a link to the tracking server's request form with subject,
// message and branch prefilled:
//
//	http://pushmaster.example.com/requests?subject=...&message=...&branch=...
package request

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// DefaultTicketBase is prefixed to ticket numbers when no base is configured.
const DefaultTicketBase = "https://trac.example.com/ticket/"

var ticketNumber = regexp.MustCompile(`\d+`)

// Review is the information taken from a shipped code review.
type Review struct {
	// Summary becomes the request subject.
	Summary string

	// URL is the code review's address. Any fragment is ignored.
	URL string

	// Branch is the branch to be pushed.
	Branch string

	// Reviewers are the names of reviewers who approved the change.
	Reviewers []string

	// BugsClosed is the review's comma separated "bugs closed" field.
	BugsClosed string
}

// TicketURL returns ticketBase followed by the first run of digits in bug.
// ok is false when bug contains no digits.
func TicketURL(ticketBase, bug string) (string, bool) {
	n := ticketNumber.FindString(bug)
	if n == "" {
		return "", false
	}
	return ticketBase + n, true
}

// Tickets returns the ticket URLs for every entry in BugsClosed that
// contains a number.
func (r Review) Tickets(ticketBase string) []string {
	var tickets []string
	for _, bug := range strings.Split(r.BugsClosed, ",") {
		if bug == "" {
			continue
		}
		if u, ok := TicketURL(ticketBase, bug); ok {
			tickets = append(tickets, u)
		}
	}
	return tickets
}

// Message composes the request message.
//
// With reviewers it starts "<review url> by a, b". Tickets follow as
// "Ticket: <url>" or "Tickets: <url>, <url>", separated from the review line
// by a blank line. The message is empty when there are neither.
func (r Review) Message(ticketBase string) string {
	var b strings.Builder

	if len(r.Reviewers) > 0 {
		reviewURL, _, _ := strings.Cut(r.URL, "#")
		b.WriteString(reviewURL)
		b.WriteString(" by ")
		b.WriteString(strings.Join(r.Reviewers, ", "))
	}

	tickets := r.Tickets(ticketBase)
	if len(tickets) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if len(tickets) == 1 {
			b.WriteString("Ticket: ")
		} else {
			b.WriteString("Tickets: ")
		}
		b.WriteString(strings.Join(tickets, ", "))
	}

	return b.String()
}

// RequestURL returns the request form link on host with subject, message and
// branch in that order.
func (r Review) RequestURL(host, ticketBase string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", errors.New("request host is required")
	}
	if strings.Contains(host, "/") {
		return "", errors.New("request host must not contain a scheme or path")
	}

	query := strings.Join([]string{
		"subject=" + url.QueryEscape(r.Summary),
		"message=" + url.QueryEscape(r.Message(ticketBase)),
		"branch=" + url.QueryEscape(r.Branch),
	}, "&")

	return "http://" + host + "/requests?" + query, nil
}
