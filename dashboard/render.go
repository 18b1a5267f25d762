package dashboard

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"personal-channel-bot/model"
	"personal-channel-bot/utils"
)

const (
	// EmbedColor is the accent colour of every dashboard.
	EmbedColor = 0xFF7710
	// maxDescription is Discord's embed description limit.
	maxDescription = 4096

	channelTitle   = "📌 Links"
	channelFooter  = "Dashboard for this channel"
	aggregateTitle = "📚 Community links"
	aggregateFoot  = "Links from every personal channel"
)

var (
	titleEscaper = strings.NewReplacer(`\`, `\\`, "[", `\[`, "]", `\]`)
	urlEscaper   = strings.NewReplacer("(", "%28", ")", "%29", " ", "%20")
)

// LinkLine renders one link as a markdown bullet. Brackets in the title and
// parentheses in the URL are escaped so they cannot close the link early.
func LinkLine(l model.LinkRecord) string {
	return fmt.Sprintf("🔗 [%s](%s)", titleEscaper.Replace(l.DisplayTitle()), urlEscaper.Replace(l.URL))
}

// AggregateLine renders one link annotated with its owner.
func AggregateLine(l model.CommunityLink) string {
	return LinkLine(l.LinkRecord) + " · " + utils.UserMention(l.OwnerID)
}

// RenderChannel builds the dashboard embed of a personal channel.
func RenderChannel(links []model.LinkRecord) *discordgo.MessageEmbed {
	lines := make([]string, len(links))
	for i, l := range links {
		lines[i] = LinkLine(l)
	}
	return &discordgo.MessageEmbed{
		Title:       channelTitle,
		Description: joinCapped(lines, maxDescription),
		Color:       EmbedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: channelFooter},
	}
}

// RenderAggregate builds the community-wide dashboard embed.
func RenderAggregate(links []model.CommunityLink) *discordgo.MessageEmbed {
	lines := make([]string, len(links))
	for i, l := range links {
		lines[i] = AggregateLine(l)
	}
	return &discordgo.MessageEmbed{
		Title:       aggregateTitle,
		Description: joinCapped(lines, maxDescription),
		Color:       EmbedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: aggregateFoot},
	}
}

// joinCapped joins lines with newlines, replacing whatever does not fit in
// limit runes with a "…and N more" line.
func joinCapped(lines []string, limit int) string {
	full := strings.Join(lines, "\n")
	if utf8.RuneCountInString(full) <= limit {
		return full
	}

	var b strings.Builder
	used := 0
	for i, line := range lines {
		remaining := len(lines) - i
		more := fmt.Sprintf("…and %d more", remaining)
		cost := utf8.RuneCountInString(line)
		if i > 0 {
			cost++
		}
		// Keep room for the trailer of the lines after this one.
		trailer := 0
		if remaining > 1 {
			trailer = utf8.RuneCountInString(fmt.Sprintf("\n…and %d more", remaining-1))
		}
		if used+cost+trailer > limit {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(more)
			return b.String()
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
		used += cost
	}
	return b.String()
}
