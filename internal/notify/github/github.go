// Package github implements the notify Adapter by filing each message as
// an issue in a GitHub repository.
package github

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bosunhq/bosun/internal/notify"
	gh "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// issuesService abstracts the GitHub Issues API methods we use.
type issuesService interface {
	Create(ctx context.Context, owner, repo string, issue *gh.IssueRequest) (*gh.Issue, *gh.Response, error)
}

// Adapter implements notify.Adapter for GitHub issues.
type Adapter struct {
	issues    issuesService
	token     string
	owner     string
	repo      string
	labels    []string
	mu        sync.Mutex
	connected bool
	lastIssue int
}

// AdapterOpts holds parameters for creating a GitHub Adapter.
type AdapterOpts struct {
	Token  string
	Owner  string
	Repo   string
	Labels []string
	// For testing: inject a mock issues service.
	Issues issuesService
}

// New creates a GitHub Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Issues == nil && opts.Token == "" {
		return nil, fmt.Errorf("github: token is required")
	}
	if opts.Owner == "" || opts.Repo == "" {
		return nil, fmt.Errorf("github: owner and repo are required")
	}
	return &Adapter{
		issues: opts.Issues,
		token:  opts.Token,
		owner:  opts.Owner,
		repo:   opts.Repo,
		labels: opts.Labels,
	}, nil
}

// Connect builds an authenticated API client.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.issues == nil {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: a.token})
		a.issues = gh.NewClient(oauth2.NewClient(ctx, ts)).Issues
	}
	a.connected = true
	return nil
}

// Send files msg as an issue. The message text becomes the title and each
// event a section of the body.
func (a *Adapter) Send(ctx context.Context, msg notify.OutboundMessage) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("github: not connected")
	}
	a.mu.Unlock()

	req := &gh.IssueRequest{
		Title: gh.Ptr(issueTitle(msg)),
		Body:  gh.Ptr(issueBody(msg)),
	}
	if len(a.labels) > 0 {
		labels := append([]string(nil), a.labels...)
		req.Labels = &labels
	}
	issue, _, err := a.issues.Create(ctx, a.owner, a.repo, req)
	if err != nil {
		return fmt.Errorf("github: create issue in %s/%s: %w", a.owner, a.repo, err)
	}
	a.mu.Lock()
	a.lastIssue = issue.GetNumber()
	a.mu.Unlock()
	return nil
}

// Close is a no-op; the HTTP client holds no connection.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = false
	return nil
}

// LastIssue returns the number of the most recently filed issue.
func (a *Adapter) LastIssue() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastIssue
}

func issueTitle(msg notify.OutboundMessage) string {
	if title, _, _ := strings.Cut(msg.Text, "\n"); title != "" {
		return title
	}
	if len(msg.Events) > 0 {
		return msg.Events[0].Title
	}
	return "Maintenance digest"
}

// issueBody renders events as markdown sections with their fields as a
// table.
func issueBody(msg notify.OutboundMessage) string {
	var b strings.Builder
	if _, rest, ok := strings.Cut(msg.Text, "\n"); ok && rest != "" {
		b.WriteString(rest)
		b.WriteString("\n\n")
	}
	for _, evt := range msg.Events {
		fmt.Fprintf(&b, "## %s\n\n", evt.Title)
		for _, line := range strings.Split(evt.Body, "\n") {
			if line != "" {
				fmt.Fprintf(&b, "- %s\n", line)
			}
		}
		if len(evt.Fields) > 0 {
			b.WriteString("\n| | |\n|---|---|\n")
			for _, f := range evt.Fields {
				fmt.Fprintf(&b, "| %s | %s |\n", f.Name, f.Value)
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
