package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/KevinIssaDev/AppMonitor/internal/domain"
)

// Embed palette.
const (
	colorSuccess  = 0x2ecc71
	colorError    = 0xe74c3c
	colorFetching = 0xe67e22
	colorInfo     = 0x1C89F5
	colorHelp     = 0x95a5a6
)

const (
	markerCurrent  = "✅"
	markerOutdated = "⬆"
)

// possessive appends the possessive suffix to a display name: "Chris'" but
// "Kevin's".
func possessive(name string) string {
	if strings.HasSuffix(name, "s") {
		return name + "'"
	}
	return name + "'s"
}

func errorEmbed(description, author, authorIcon string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Color: colorError, Description: description}
	if author != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{Name: author, IconURL: authorIcon}
	}
	return embed
}

func addedEmbed(rec domain.TrackedApplication, authorName string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color: colorSuccess,
		Author: &discordgo.MessageEmbedAuthor{
			Name:    rec.Name,
			URL:     rec.StoreURL,
			IconURL: rec.IconURL,
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Added to %s watch-list.", possessive(authorName)),
		},
	}
}

func batchAddedEmbed(added []domain.TrackedApplication, authorName string) *discordgo.MessageEmbed {
	if len(added) == 1 {
		return addedEmbed(added[0], authorName)
	}
	names := make([]string, 0, len(added))
	for _, rec := range added {
		names = append(names, rec.Name)
	}
	return &discordgo.MessageEmbed{
		Color:       colorSuccess,
		Description: strings.Join(names, ", "),
		Author:      &discordgo.MessageEmbedAuthor{Name: "Applications Added"},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Added to %s watch-list.", possessive(authorName)),
		},
	}
}

func removedEmbed(rec domain.TrackedApplication, authorName string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color: colorError,
		Author: &discordgo.MessageEmbedAuthor{
			Name:    rec.Name,
			URL:     rec.StoreURL,
			IconURL: rec.IconURL,
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Removed from %s watch-list.", possessive(authorName)),
		},
	}
}

func refreshedEmbed(rec domain.TrackedApplication, authorName string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color: colorSuccess,
		Author: &discordgo.MessageEmbedAuthor{
			Name:    rec.Name,
			URL:     rec.StoreURL,
			IconURL: rec.IconURL,
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Updated %s watch-list.", possessive(authorName)),
		},
	}
}

func updateEmbed(app domain.TrackedApplication, latestVersion string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Update Available!",
		Color: colorInfo,
		Author: &discordgo.MessageEmbedAuthor{
			Name:    app.Name,
			URL:     app.StoreURL,
			IconURL: app.IconURL,
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Latest version: v" + latestVersion},
	}
}

func pageEmbed(pv domain.PageView, authorName, authorIcon string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Color: colorSuccess,
		Author: &discordgo.MessageEmbedAuthor{
			Name:    fmt.Sprintf("%s Watch-List (%d/%d)", possessive(authorName), pv.Page, pv.PageCount),
			IconURL: authorIcon,
		},
	}
	if pv.AnyOutdated {
		embed.Color = colorFetching
	}

	for _, entry := range pv.Entries {
		marker := markerCurrent
		if entry.Outdated {
			marker = markerOutdated
		} else if !entry.FreshnessKnown {
			marker = "❔"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   entry.App.Name,
			Value:  fmt.Sprintf("[%s](%s)  |  v%s  |  %s", entry.App.BundleID, entry.App.StoreURL, entry.App.Version, marker),
			Inline: false,
		})
	}
	return embed
}

func searchResultEmbed(entry domain.CatalogEntry) *discordgo.MessageEmbed {
	price := entry.Price
	if price == "" {
		price = "Unknown"
	}
	rating := "N/A"
	if entry.RatingCount > 0 {
		rating = fmt.Sprintf("%.1f/5 out of %d ratings", entry.Rating, entry.RatingCount)
	}
	releaseDate := entry.ReleaseDate
	if releaseDate == "" {
		releaseDate = "N/A"
	}

	return &discordgo.MessageEmbed{
		Title:     entry.Name,
		URL:       entry.StoreURL,
		Color:     colorInfo,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: entry.IconURL},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Bundle ID", Value: entry.BundleID, Inline: true},
			{Name: "Price", Value: price, Inline: true},
			{Name: "Rating", Value: rating, Inline: true},
			{Name: "Update Date", Value: releaseDate, Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("v%s by %s", entry.Version, entry.Seller),
		},
	}
}
