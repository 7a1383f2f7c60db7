package bot

import (
	"context"

	log "github.com/sirupsen/logrus"

	"bubbler/service"

	"github.com/bwmarrin/discordgo"
)

// ChannelAnnouncer publishes announcements as embeds to a fixed channel.
type ChannelAnnouncer struct {
	session   *discordgo.Session
	channelID string
}

// NewChannelAnnouncer creates an announcer bound to the given channel
func NewChannelAnnouncer(session *discordgo.Session, channelID string) *ChannelAnnouncer {
	return &ChannelAnnouncer{
		session:   session,
		channelID: channelID,
	}
}

func (a *ChannelAnnouncer) Announce(ctx context.Context, announcement service.Announcement) {
	embed := &discordgo.MessageEmbed{
		Title:       announcement.Title,
		Description: announcement.Body,
		Color:       0x00AE86,
	}
	if announcement.Image != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: announcement.Image}
	}
	if announcement.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: announcement.Thumbnail}
	}
	if announcement.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: announcement.Footer}
	}

	if _, err := a.session.ChannelMessageSendEmbed(a.channelID, embed); err != nil {
		log.WithFields(log.Fields{
			"title": announcement.Title,
			"error": err,
		}).Error("Failed to send announcement")
	}
}
