package slack

import (
	"github.com/slack-go/slack/slackevents"

	"github.com/humanand/humanand/pkg/models"
)

func messageFromSlack(ev *slackevents.MessageEvent) models.MessageEvent {
	return models.MessageEvent{
		ChannelID: ev.Channel,
		UserID:    ev.User,
		Text:      ev.Text,
		MessageID: ev.TimeStamp,
		ThreadID:  ev.ThreadTimeStamp,
		BotID:     ev.BotID,
		SubType:   ev.SubType,
	}
}

func reactionFromSlack(ev *slackevents.ReactionAddedEvent) models.ReactionEvent {
	return models.ReactionEvent{
		Reaction:        ev.Reaction,
		UserID:          ev.User,
		TargetMessageID: ev.Item.Timestamp,
		ChannelID:       ev.Item.Channel,
	}
}

func mentionFromSlack(ev *slackevents.AppMentionEvent) models.MentionEvent {
	return models.MentionEvent{
		ChannelID: ev.Channel,
		UserID:    ev.User,
		Text:      ev.Text,
		MessageID: ev.TimeStamp,
	}
}
