package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/ysakai/mindbridge/pkg/logger"
)

// Discord connects the gateway to the audio handler. It owns the discordgo
// session and translates incoming message events into MessageContext values.
type Discord struct {
	session *discordgo.Session
	handler *AudioHandler
	logger  *logger.Logger

	mu           sync.RWMutex
	channelNames map[string]string // channel ID -> resolved name cache
}

// NewDiscord creates the gateway client. The session is not opened until
// Start is called. The handler may be nil at construction time and set
// later with SetHandler; the Discord client doubles as the handler's
// Notifier, so wiring happens in two steps.
func NewDiscord(token string, handler *AudioHandler, log *logger.Logger) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	d := &Discord{
		session:      session,
		handler:      handler,
		logger:       log.Named("discord"),
		channelNames: make(map[string]string),
	}

	session.AddHandler(d.onMessageCreate)
	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		d.logger.Info("Discord gateway ready",
			String("username", r.User.Username),
			Int("guilds", len(r.Guilds)))
	})

	return d, nil
}

// SetHandler sets the audio handler receiving message events
func (d *Discord) SetHandler(handler *AudioHandler) {
	d.handler = handler
}

// Start opens the gateway connection
func (d *Discord) Start() error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	d.logger.Info("Discord gateway connected")
	return nil
}

// Stop closes the gateway connection
func (d *Discord) Stop() error {
	d.logger.Info("Closing Discord gateway")
	return d.session.Close()
}

// Reply posts a reply to messageID in channelID and returns the new message ID
func (d *Discord) Reply(ctx context.Context, channelID, messageID, content string) (string, error) {
	msg, err := d.session.ChannelMessageSendReply(channelID, content, &discordgo.MessageReference{
		MessageID: messageID,
		ChannelID: channelID,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to send reply: %w", err)
	}
	return msg.ID, nil
}

// Edit rewrites a previously posted feedback message
func (d *Discord) Edit(ctx context.Context, channelID, feedbackID, content string) error {
	_, err := d.session.ChannelMessageEdit(channelID, feedbackID, content, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

func (d *Discord) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore our own messages and other bots
	if m.Author == nil || m.Author.Bot {
		return
	}
	if d.handler == nil {
		return
	}

	msg := d.buildMessageContext(m)

	// Handlers run on the gateway event loop; process in a goroutine so a
	// slow transcription never blocks heartbeats
	go d.handler.HandleMessage(context.Background(), msg)
}

func (d *Discord) buildMessageContext(m *discordgo.MessageCreate) *MessageContext {
	atts := make([]Attachment, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		atts = append(atts, Attachment{
			ID:          a.ID,
			URL:         a.URL,
			ProxyURL:    a.ProxyURL,
			Filename:    a.Filename,
			Size:        a.Size,
			ContentType: a.ContentType,
		})
	}

	authorID, authorName := "", ""
	if m.Author != nil {
		authorID = m.Author.ID
		authorName = m.Author.Username
	}

	return &MessageContext{
		ID:          m.ID,
		ChannelID:   m.ChannelID,
		ChannelName: d.channelName(m.ChannelID),
		AuthorID:    authorID,
		AuthorName:  authorName,
		Content:     m.Content,
		Timestamp:   m.Timestamp,
		Attachments: atts,
	}
}

// channelName resolves and caches the channel name, falling back to the raw
// ID when the lookup fails
func (d *Discord) channelName(channelID string) string {
	d.mu.RLock()
	name, ok := d.channelNames[channelID]
	d.mu.RUnlock()
	if ok {
		return name
	}

	ch, err := d.session.Channel(channelID)
	if err != nil || ch == nil {
		d.logger.Debug("Failed to resolve channel name",
			String("channel_id", channelID),
			Error(err))
		return channelID
	}

	name = ch.Name
	if name == "" {
		// DM channels have no name
		name = "dm"
	}

	d.mu.Lock()
	d.channelNames[channelID] = name
	d.mu.Unlock()
	return name
}
