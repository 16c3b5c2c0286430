package services

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/humanand/humanand/pkg/config"
	"github.com/humanand/humanand/pkg/logging"
	"github.com/humanand/humanand/pkg/projects"
)

const prPageSize = 30

// PRMonitor announces newly opened pull requests in a channel. It only
// reads the project cache and never touches pending or logged state.
type PRMonitor struct {
	gh        *github.Client
	owner     string
	repo      string
	channelID string
	interval  time.Duration
	chat      ChannelPoster
	cache     *projects.Cache
	logger    *zap.Logger

	// Highest PR number announced or seen at startup. Only touched by the
	// polling goroutine.
	lastSeen int
	seeded   bool
}

// NewPRMonitor creates a monitor for cfg.Repo. cache may be nil.
func NewPRMonitor(cfg config.GitHubConfig, chat ChannelPoster, cache *projects.Cache, logger *zap.Logger) (*PRMonitor, error) {
	owner, repo, err := cfg.OwnerRepo()
	if err != nil {
		return nil, err
	}

	gh := github.NewClient(nil).WithAuthToken(cfg.Token)
	if cfg.APIURL != "" {
		base, err := url.Parse(strings.TrimRight(cfg.APIURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid github api url: %w", err)
		}
		gh.BaseURL = base
	}

	return &PRMonitor{
		gh:        gh,
		owner:     owner,
		repo:      repo,
		channelID: cfg.ChannelID,
		interval:  cfg.PollInterval,
		chat:      chat,
		cache:     cache,
		logger:    logger.Named("pr-monitor").With(zap.String("repo", cfg.Repo)),
	}, nil
}

// Start polls until ctx is cancelled. The first poll only records the
// newest existing PR so that a restart doesn't re-announce old ones.
func (m *PRMonitor) Start(ctx context.Context) error {
	m.logger.Info("PR monitor started", zap.Duration("interval", m.interval))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if err := m.poll(ctx); err != nil && ctx.Err() == nil {
			m.logger.Warn("PR poll failed", zap.String("error", logging.SanitizeError(err)))
		}

		select {
		case <-ctx.Done():
			m.logger.Info("PR monitor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (m *PRMonitor) poll(ctx context.Context) error {
	prs, _, err := m.gh.PullRequests.List(ctx, m.owner, m.repo, &github.PullRequestListOptions{
		State:       "open",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: prPageSize},
	})
	if err != nil {
		return fmt.Errorf("list pull requests: %w", err)
	}

	if !m.seeded {
		for _, pr := range prs {
			m.lastSeen = max(m.lastSeen, pr.GetNumber())
		}
		m.seeded = true
		m.logger.Debug("PR monitor seeded", zap.Int("last_seen", m.lastSeen))
		return nil
	}

	var fresh []*github.PullRequest
	for _, pr := range prs {
		if pr.GetNumber() > m.lastSeen {
			fresh = append(fresh, pr)
		}
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].GetNumber() < fresh[j].GetNumber() })

	note := m.projectNote(ctx)
	for _, pr := range fresh {
		text := fmt.Sprintf(":git: New PR #%d: %s by %s — %s",
			pr.GetNumber(), pr.GetTitle(), pr.GetUser().GetLogin(), pr.GetHTMLURL())
		if note != "" {
			text += "\n" + note
		}
		if _, err := m.chat.PostMessage(ctx, m.channelID, "", text); err != nil {
			// Leave lastSeen so the next poll tries again.
			return fmt.Errorf("announce PR #%d: %w", pr.GetNumber(), err)
		}
		m.lastSeen = pr.GetNumber()
		m.logger.Info("Announced PR", zap.Int("number", pr.GetNumber()))
	}
	return nil
}

// projectNote describes how much knowledge the channel's project holds.
func (m *PRMonitor) projectNote(ctx context.Context) string {
	if m.cache == nil {
		return ""
	}
	project, err := m.chat.ChannelName(ctx, m.channelID)
	if err != nil {
		m.logger.Debug("No project for PR channel", zap.Error(err))
		return ""
	}
	agent, err := m.cache.Get(ctx, project)
	if err != nil {
		m.logger.Debug("Project not loaded", zap.String("project", project), zap.Error(err))
		return ""
	}
	n := len(agent.Facts())
	if n == 0 {
		return ""
	}
	noun := "fact"
	if n != 1 {
		noun = inflection.Plural(noun)
	}
	return fmt.Sprintf("_*%s* has %d %s on record_", project, n, noun)
}
