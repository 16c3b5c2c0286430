package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/humanand/humanand/pkg/apperrors"
	"github.com/humanand/humanand/pkg/classifier"
	"github.com/humanand/humanand/pkg/logging"
	"github.com/humanand/humanand/pkg/models"
	"github.com/humanand/humanand/pkg/pending"
	"github.com/humanand/humanand/pkg/repositories"
)

// DefaultHistoryLimit is how many recent channel messages are read as
// classification context.
const DefaultHistoryLimit = 20

var bareMentionPattern = regexp.MustCompile(`^<@(U[A-Z0-9]+)>$`)

// WorkflowService turns channel messages into proposed facts and records
// them once a channel member approves with a reaction.
type WorkflowService interface {
	HandleMessage(ctx context.Context, ev models.MessageEvent)
	HandleReaction(ctx context.Context, ev models.ReactionEvent)
	HandleMention(ctx context.Context, ev models.MentionEvent)
}

// WorkflowOptions controls thread feedback and context size.
type WorkflowOptions struct {
	HistoryLimit     int
	ConfirmApprovals bool
	ReportFailures   bool
}

type workflowService struct {
	chat       ChatPlatform
	classifier classifier.Classifier
	registry   *pending.Registry
	events     repositories.EventRepository
	knowledge  KnowledgeWriter
	people     PeopleService
	opts       WorkflowOptions
	now        func() time.Time
	logger     *zap.Logger
}

// NewWorkflowService wires the workflow. people may be nil, in which case
// user lookups are answered with the greeting.
func NewWorkflowService(
	chat ChatPlatform,
	cls classifier.Classifier,
	registry *pending.Registry,
	events repositories.EventRepository,
	knowledge KnowledgeWriter,
	people PeopleService,
	opts WorkflowOptions,
	logger *zap.Logger,
) WorkflowService {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	return &workflowService{
		chat:       chat,
		classifier: cls,
		registry:   registry,
		events:     events,
		knowledge:  knowledge,
		people:     people,
		opts:       opts,
		now:        time.Now,
		logger:     logger.Named("workflow"),
	}
}

var _ WorkflowService = (*workflowService)(nil)

func (s *workflowService) HandleMessage(ctx context.Context, ev models.MessageEvent) {
	if ev.FromBot() || strings.TrimSpace(ev.Text) == "" {
		return
	}

	logger := s.logger.With(
		zap.String("channel_id", ev.ChannelID),
		zap.String("user_id", ev.UserID),
		zap.String("message_id", ev.MessageID),
	)

	botID, err := s.chat.BotUserID(ctx)
	if err != nil {
		logger.Warn("Could not resolve bot user id", zap.String("error", logging.SanitizeError(err)))
	}
	if botID != "" && ev.UserID == botID {
		return
	}

	if target, ok := bareMention(ev.Text); ok {
		// Mentions of the bot itself arrive separately as app_mention.
		if target != botID {
			s.replyWithPerson(ctx, ev.ChannelID, threadRoot(ev), target, logger)
		}
		return
	}

	project, err := s.chat.ChannelName(ctx, ev.ChannelID)
	if err != nil {
		logger.Warn("Could not resolve project for channel", zap.String("error", logging.SanitizeError(err)))
		return
	}
	if err := models.ValidateProjectName(project); err != nil {
		logger.Warn("Channel name is not a usable project name", zap.String("project", project), zap.Error(err))
		return
	}
	logger = logger.With(zap.String("project", project))

	conversation, err := s.conversationContext(ctx, ev.ChannelID)
	if err != nil {
		logger.Warn("Could not fetch channel history, classifying without context",
			zap.String("error", logging.SanitizeError(err)))
	}

	result, err := s.classifier.Classify(ctx, ev.Text, conversation)
	if err != nil {
		logger.Warn("Message not classified", zap.String("error", logging.SanitizeError(err)))
		return
	}
	kind, ok := result.EventKind()
	if !ok {
		logger.Debug("Message classified as none")
		return
	}

	thread := threadRoot(ev)
	promptID, err := s.chat.PostMessage(ctx, ev.ChannelID, thread, promptText(kind, project, result.Fact()))
	if err != nil {
		logger.Error("Failed to post confirmation prompt",
			zap.String("kind", string(kind)),
			zap.String("fact", logging.TruncateFact(result.Fact())),
			zap.String("error", logging.SanitizeError(err)))
		return
	}

	item := models.PendingItem{
		PromptID:        promptID,
		Kind:            kind,
		FactText:        result.Fact(),
		AuthorUserID:    ev.UserID,
		SourceChannelID: ev.ChannelID,
		SourceMessageID: ev.MessageID,
		ThreadID:        thread,
		ProjectName:     project,
		CreatedAt:       s.now(),
	}
	if err := s.registry.Register(item); err != nil {
		logger.Error("Failed to register pending item",
			zap.String("prompt_id", promptID),
			zap.Error(err))
		return
	}

	logger.Info("Fact proposed",
		zap.String("prompt_id", promptID),
		zap.String("kind", string(kind)),
		zap.String("fact", logging.TruncateFact(item.FactText)))
}

func (s *workflowService) HandleReaction(ctx context.Context, ev models.ReactionEvent) {
	if ev.Reaction != models.ApprovalReaction {
		return
	}

	item, err := s.registry.Resolve(ev.TargetMessageID)
	if errors.Is(err, apperrors.ErrPendingNotFound) {
		return
	}
	if err != nil {
		s.logger.Error("Failed to resolve pending item", zap.String("prompt_id", ev.TargetMessageID), zap.Error(err))
		return
	}

	logger := s.logger.With(
		zap.String("project", item.ProjectName),
		zap.String("prompt_id", item.PromptID),
		zap.String("kind", string(item.Kind)),
		zap.String("approver_id", ev.UserID),
	)

	member, err := s.chat.IsChannelMember(ctx, item.SourceChannelID, ev.UserID)
	if err != nil {
		logger.Info("Approval discarded, membership lookup failed",
			zap.String("error", logging.SanitizeError(err)))
		return
	}
	if !member {
		logger.Info("Approval discarded", zap.Error(apperrors.ErrUnauthorizedApproval))
		return
	}

	// The item is already out of the registry; finish the writes even if
	// the delivery context goes away.
	ctx = context.WithoutCancel(ctx)

	if err := s.record(ctx, item); err != nil {
		logger.Error("Failed to record approved item",
			zap.String("fact", item.FactText),
			zap.Error(err))
		if s.opts.ReportFailures {
			s.notify(ctx, item, failureText(item), logger)
		}
		return
	}

	logger.Info("Approved item recorded", zap.String("fact", logging.TruncateFact(item.FactText)))
	if s.opts.ConfirmApprovals {
		s.notify(ctx, item, confirmationText(item), logger)
	}
}

// record writes an approved item: updates go to the knowledge file and then
// the event log, questions only to the event log. The first failure stops it.
func (s *workflowService) record(ctx context.Context, item models.PendingItem) error {
	permalink := ""
	if item.SourceMessageID != "" {
		link, err := s.chat.Permalink(ctx, item.SourceChannelID, item.SourceMessageID)
		if err != nil {
			s.logger.Debug("No permalink for source message", zap.String("prompt_id", item.PromptID), zap.Error(err))
		} else {
			permalink = link
		}
	}

	if item.Kind == models.EventKindUpdate {
		if err := s.knowledge.AppendFact(ctx, item.ProjectName, item.FactText); err != nil {
			return fmt.Errorf("knowledge: %w", err)
		}
	}

	event := models.NewApprovedEvent(item, permalink, s.now())
	if err := s.events.Append(ctx, item.ProjectName, event); err != nil {
		return fmt.Errorf("event log: %w", err)
	}
	return nil
}

func (s *workflowService) notify(ctx context.Context, item models.PendingItem, text string, logger *zap.Logger) {
	if _, err := s.chat.PostMessage(ctx, item.SourceChannelID, item.ThreadID, text); err != nil {
		logger.Warn("Failed to post thread note", zap.String("error", logging.SanitizeError(err)))
	}
}

func (s *workflowService) HandleMention(ctx context.Context, ev models.MentionEvent) {
	logger := s.logger.With(zap.String("channel_id", ev.ChannelID), zap.String("user_id", ev.UserID))

	botID, err := s.chat.BotUserID(ctx)
	if err != nil {
		logger.Warn("Could not resolve bot user id", zap.String("error", logging.SanitizeError(err)))
	}

	rest := ev.Text
	if botID != "" {
		rest = strings.ReplaceAll(rest, "<@"+botID+">", "")
	}
	if target, ok := bareMention(rest); ok && target != botID {
		s.replyWithPerson(ctx, ev.ChannelID, ev.MessageID, target, logger)
		return
	}

	user := ev.UserID
	if user == "" {
		user = "someone"
	}
	greeting := fmt.Sprintf("Hello <@%s>, I heard you! HumanAnd is online.", user)
	if _, err := s.chat.PostMessage(ctx, ev.ChannelID, "", greeting); err != nil {
		logger.Warn("Failed to post greeting", zap.String("error", logging.SanitizeError(err)))
	}
}

func (s *workflowService) replyWithPerson(ctx context.Context, channelID, thread, userID string, logger *zap.Logger) {
	if s.people == nil {
		return
	}
	summary, err := s.people.Summary(ctx, userID)
	if err != nil {
		logger.Warn("Person lookup failed", zap.String("target_user_id", userID), zap.Error(err))
		return
	}
	if _, err := s.chat.PostMessage(ctx, channelID, thread, summary); err != nil {
		logger.Warn("Failed to post person summary", zap.String("error", logging.SanitizeError(err)))
	}
}

// conversationContext renders recent human messages, oldest first, one
// "<@user>: text" per line.
func (s *workflowService) conversationContext(ctx context.Context, channelID string) (string, error) {
	history, err := s.chat.RecentMessages(ctx, channelID, s.opts.HistoryLimit)
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(history))
	for _, m := range history {
		if m.BotID != "" || m.SubType != "" || m.Text == "" {
			continue
		}
		user := m.UserID
		if user == "" {
			user = "unknown"
		}
		lines = append(lines, fmt.Sprintf("<@%s>: %s", user, m.Text))
	}
	return strings.Join(lines, "\n"), nil
}

func bareMention(text string) (string, bool) {
	m := bareMentionPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", false
	}
	return m[1], true
}

func threadRoot(ev models.MessageEvent) string {
	if ev.ThreadID != "" {
		return ev.ThreadID
	}
	return ev.MessageID
}

func promptText(kind models.EventKind, project, fact string) string {
	if kind == models.EventKindQuestion {
		return fmt.Sprintf(":question: Open question for *%s*:\n> %s\nReact with :%s: to log it.",
			project, fact, models.ApprovalReaction)
	}
	return fmt.Sprintf(":memo: Proposed update for *%s*:\n> %s\nReact with :%s: to record it.",
		project, fact, models.ApprovalReaction)
}

func confirmationText(item models.PendingItem) string {
	if item.Kind == models.EventKindQuestion {
		return fmt.Sprintf("Logged question for *%s*.", item.ProjectName)
	}
	return fmt.Sprintf("Recorded in *%s* ground truth.", item.ProjectName)
}

func failureText(item models.PendingItem) string {
	return fmt.Sprintf(":warning: Approved, but I couldn't save it to *%s*. Please add it by hand:\n> %s",
		item.ProjectName, item.FactText)
}
