package notifier

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/casa-vistamar/booking-api/internal/config"
	"github.com/casa-vistamar/booking-api/internal/models"
)

// Notifier pushes operator-facing alerts to a chat channel, as a faster
// companion to the admin emails. All sends are best-effort.
type Notifier interface {
	NotifyNewRequest(r *models.Reservation) error
	NotifyPaymentFailed(r *models.Reservation, reason string) error
}

type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordNotifier(cfg *config.Config) (*DiscordNotifier, error) {
	if cfg.DiscordBotToken == "" || cfg.DiscordNotificationsChannelID == "" {
		return nil, fmt.Errorf("discord notifier not configured")
	}
	session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		return nil, err
	}
	return &DiscordNotifier{
		session:   session,
		channelID: cfg.DiscordNotificationsChannelID,
	}, nil
}

func (n *DiscordNotifier) NotifyNewRequest(r *models.Reservation) error {
	message := fmt.Sprintf("📬 **New booking request**\n**Guest:** %s %s\n**Dates:** %s - %s\n**Guests:** %d\n**Total:** %.2f EUR",
		r.FirstName,
		r.LastName,
		r.ArrivalDate.Format("2006-01-02"),
		r.DepartureDate.Format("2006-01-02"),
		r.Guests,
		r.Pricing.Total,
	)
	_, err := n.session.ChannelMessageSend(n.channelID, message)
	return err
}

func (n *DiscordNotifier) NotifyPaymentFailed(r *models.Reservation, reason string) error {
	message := fmt.Sprintf("⚠️ **Payment problem**\n**Guest:** %s %s\n**Reservation:** %s\n**Reason:** %s",
		r.FirstName,
		r.LastName,
		r.ID,
		reason,
	)
	_, err := n.session.ChannelMessageSend(n.channelID, message)
	return err
}
