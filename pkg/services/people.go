package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/humanand/humanand/pkg/models"
	"github.com/humanand/humanand/pkg/repositories"
)

const (
	defaultActivityLimit = 10
	noRole               = "(no role set)"
	activityTimeLayout   = "2006-01-02 15:04"
)

// PeopleService answers "who is this person" lookups from the knowledge
// files and event logs of every project.
type PeopleService interface {
	// Summary renders a user's projects, roles, recent approved activity
	// and pending items as a chat message.
	Summary(ctx context.Context, userID string) (string, error)
	// Projects lists the projects whose knowledge text mentions the user.
	Projects(ctx context.Context, userID string) ([]ProjectRole, error)
	// Activity returns the user's most recent approved events, newest first.
	Activity(ctx context.Context, userID string, limit int) ([]Activity, error)
}

// ProjectRole is a user's role line in one project's directory.
type ProjectRole struct {
	Project string `json:"project" yaml:"project"`
	Role    string `json:"role" yaml:"role"`
}

// Activity is one approved event authored by a user.
type Activity struct {
	Project string        `json:"project" yaml:"project"`
	Event   *models.Event `json:"event" yaml:"event"`
}

type peopleService struct {
	knowledge repositories.KnowledgeRepository
	events    repositories.EventRepository
	pending   PendingCounter
	logger    *zap.Logger
}

// NewPeopleService creates a people lookup. pending may be nil.
func NewPeopleService(
	knowledge repositories.KnowledgeRepository,
	events repositories.EventRepository,
	pending PendingCounter,
	logger *zap.Logger,
) PeopleService {
	return &peopleService{
		knowledge: knowledge,
		events:    events,
		pending:   pending,
		logger:    logger.Named("people"),
	}
}

var _ PeopleService = (*peopleService)(nil)

func (s *peopleService) Projects(ctx context.Context, userID string) ([]ProjectRole, error) {
	names, err := s.knowledge.Projects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	mention := "<@" + userID + ">"
	var roles []ProjectRole
	for _, name := range names {
		text, err := s.knowledge.Read(ctx, name)
		if err != nil {
			return nil, err
		}
		if strings.Contains(text, mention) {
			roles = append(roles, ProjectRole{Project: name, Role: extractRole(text, userID)})
		}
	}
	return roles, nil
}

// extractRole finds the directory line "* **Name** (<@U123>) — Role".
func extractRole(text, userID string) string {
	marker := "(<@" + userID + ">)"
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, marker) {
			continue
		}
		if _, role, ok := strings.Cut(line, "—"); ok {
			if role = strings.TrimSpace(role); role != "" {
				return role
			}
		}
		return noRole
	}
	return noRole
}

func (s *peopleService) Activity(ctx context.Context, userID string, limit int) ([]Activity, error) {
	names, err := s.events.Projects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	var all []Activity
	for _, name := range names {
		events, err := s.events.List(ctx, name)
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			if ev.AuthorUserID == userID {
				all = append(all, Activity{Project: name, Event: ev})
			}
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Event.Timestamp.After(all[j].Event.Timestamp)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *peopleService) Summary(ctx context.Context, userID string) (string, error) {
	roles, err := s.Projects(ctx, userID)
	if err != nil {
		return "", err
	}
	activity, err := s.Activity(ctx, userID, defaultActivityLimit)
	if err != nil {
		return "", err
	}
	s.logger.Info("Person lookup",
		zap.String("user_id", userID),
		zap.Int("projects", len(roles)),
		zap.Int("activity", len(activity)))

	if len(roles) == 0 {
		return fmt.Sprintf("<@%s> doesn't appear in any project directories.", userID), nil
	}

	lines := []string{fmt.Sprintf("*<@%s>*\n", userID), "*Projects*"}
	for _, r := range roles {
		lines = append(lines, fmt.Sprintf("- *%s* — %s", r.Project, r.Role))
	}

	if len(activity) > 0 {
		lines = append(lines, "\n*Recent Activity*")
		for _, a := range activity {
			line := fmt.Sprintf("- %s | %s | %s | %s",
				a.Event.Timestamp.UTC().Format(activityTimeLayout),
				a.Project,
				strings.ToLower(string(a.Event.EventType)),
				a.Event.FactText)
			if a.Event.Permalink != "" {
				line += fmt.Sprintf(" <%s|link>", a.Event.Permalink)
			}
			lines = append(lines, line)
		}
	}

	if s.pending != nil {
		if n := s.pending.CountByAuthor(userID); n > 0 {
			noun := "item"
			if n != 1 {
				noun = inflection.Plural(noun)
			}
			lines = append(lines, fmt.Sprintf("\n*Pending*\n- %d %s awaiting review", n, noun))
		}
	}

	return strings.Join(lines, "\n"), nil
}
