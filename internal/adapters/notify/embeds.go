package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"

	"github.com/okian/wrchecker/internal/domain/model"
	"github.com/okian/wrchecker/internal/domain/record"
)

// MaxEmbeds is the number of embeds Discord accepts per message.
const MaxEmbeds = 10

// Embed colors.
const (
	ColorRecord = 15844367
	ColorWeekly = 5763719
	ColorRecap  = 3447003
)

const (
	footerIconURL   = "https://cdn.discordapp.com/attachments/365772775832420353/1144432467013533757/discord_pfp.webp"
	recordThumbnail = "https://cdn.discordapp.com/emojis/592218899441909760.webp?size=96&quality=lossless"
	recapThumbnail  = "https://cdn.discordapp.com/emojis/500104801691107328.webp?size=96&quality=lossless"
	weeklyImage     = "http://blueteak.io/img/portfolio/MIU_ChallengeSmall.png"
	recapDateLayout = "2006-01-02"
)

func footer(version string) string {
	return fmt.Sprintf("MIUU:OB/%s By VilleOlof", version)
}

// RecordEmbed describes one new world record.
func RecordEmbed(a record.Announcement, levelTitle, version string) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("***New Ultra World Record!***").
		SetDescription(fmt.Sprintf("Level: **%s**\nImprovement: -**%.6f**", levelTitle, a.Improvement())).
		SetColor(ColorRecord).
		SetTimestamp(a.New.UpdatedAt).
		SetFooter(footer(version), footerIconURL).
		SetThumbnail(recordThumbnail).
		AddField("New:", scoreLines(a.New), true).
		AddField("Old:", scoreLines(a.Previous), true).
		Build()
}

func scoreLines(s model.Score) string {
	return s.FormattedTime() + "\n" + s.Username + "\n" + s.Platform + "\n"
}

// WeeklyEmbed announces the current challenge and the winners of the
// previous one. finals are in previous-bucket order.
func WeeklyEmbed(c model.Challenge, finals []model.Score, now time.Time, version string) discord.Embed {
	current, previous := c.Buckets.Current, c.Buckets.Previous

	names := make([]string, 0, len(current.Levels))
	for _, l := range current.Levels {
		names = append(names, l.Name)
	}

	b := discord.NewEmbedBuilder().
		SetTitle("***New Ultra Weekly Challenge Starts Now!***").
		SetDescription("**Current Challenge:**\n" + current.Name(model.LangEnglish)).
		SetColor(ColorWeekly).
		SetTimestamp(now).
		SetFooter(footer(version), footerIconURL).
		SetImage(weeklyImage).
		AddField("Current Modifiers:", orDash(firstModifiers(current)), true).
		AddField("Current Levels:", orDash(strings.Join(names, "\n")), true).
		AddField("Previous Challenge:", previous.Name(model.LangEnglish), false).
		AddField("Previous Modifiers:", orDash(firstModifiers(previous)), false)

	for i, s := range finals {
		name := s.LevelID
		if i < len(previous.Levels) {
			name = previous.Levels[i].Name
		}
		b.AddField(name, fmt.Sprintf("*%s: %s - %s*", s.Platform, s.Username, s.FormattedTime()), true)
	}
	return b.Build()
}

// firstModifiers renders the modifiers of the first level; every level of a
// challenge shares them.
func firstModifiers(b model.Bucket) string {
	if len(b.Levels) == 0 {
		return ""
	}
	return strings.Join(b.Levels[0].Modifiers.Strings(), "\n")
}

// Discord rejects empty field values.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// RecapEmbed summarizes the records of the window [start, end].
func RecapEmbed(entries []model.RecapEntry, start, end time.Time, version string) discord.Embed {
	var (
		records int
		total   float64
	)
	for _, e := range entries {
		records += len(e.Scores)
		total += e.Improvement
	}

	b := discord.NewEmbedBuilder().
		SetTitle("***New Weekly Ultra WR Recap!***").
		SetDescription(fmt.Sprintf("*Date: %s  >  %s*\nTotal New World Records: **%d**\nTotal Improvement: **-%s**",
			start.Format(recapDateLayout), end.Format(recapDateLayout), records,
			strconv.FormatFloat(float64(float32(total)), 'f', -1, 32))).
		SetColor(ColorRecap).
		SetTimestamp(end).
		SetFooter(footer(version), footerIconURL).
		SetThumbnail(recapThumbnail)

	for _, e := range entries {
		lines := make([]string, 0, len(e.Scores)+1)
		for _, s := range e.Scores {
			lines = append(lines, fmt.Sprintf("- %s: **%s**", s.Username, s.FormattedTime()))
		}
		lines = append(lines, fmt.Sprintf("*Improvement:* ***-%.6f***", e.Improvement))
		b.AddField(e.LevelTitle, strings.Join(lines, "\n"), false)
	}
	return b.Build()
}

// Chunk splits embeds into messages of at most MaxEmbeds.
func Chunk(embeds []discord.Embed) [][]discord.Embed {
	var out [][]discord.Embed
	for len(embeds) > MaxEmbeds {
		out = append(out, embeds[:MaxEmbeds:MaxEmbeds])
		embeds = embeds[MaxEmbeds:]
	}
	if len(embeds) > 0 {
		out = append(out, embeds)
	}
	return out
}
