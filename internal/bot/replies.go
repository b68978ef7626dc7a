package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/markdave123-py/fieldreport/internal/core/quota"
	"github.com/markdave123-py/fieldreport/internal/models"
	"github.com/markdave123-py/fieldreport/internal/services"
)

const previewRunes = 60

const (
	welcomeText = "🌾 Welcome to Field Report Bot!\n\n" +
		"Send me:\n" +
		"📝 Text notes about your field work\n" +
		"📷 Photos to document your inspection\n" +
		"📎 Documents to add their text as notes\n\n" +
		"/report - Generate PDF report (/report word for Word)\n" +
		"/clear - Clear current session\n" +
		"/help - Show commands"

	helpText = "📖 Available Commands:\n\n" +
		"/start - Start bot\n" +
		"/report - Generate PDF report\n" +
		"/report word - Generate an editable Word document\n" +
		"/report framed - Generate the drawing-frame PDF layout\n" +
		"/status - Show what the current session holds\n" +
		"/quota - Show reports left today\n" +
		"/units - Metric and imperial reference\n" +
		"/memory - Show remembered clients and sites\n" +
		"/clear - Clear session data\n" +
		"/help - Show this message\n\n" +
		"💡 Tip: Send multiple notes and photos before generating your report!\n" +
		"Captions with cover, before, during, after or final sort photos into sections."

	clearedText    = "✅ Session cleared! Start fresh by sending new notes and photos."
	noDataText     = "❌ No data collected yet.\n\nPlease send:\n• Text notes\n• Photos\n\nThen type /report again."
	afterReport    = "💡 Session cleared. Ready for your next report!"
	photoErrorText = "❌ Error saving photo. Please try again."
	noteErrorText  = "❌ Error saving note. Please try again."
	unknownText    = "🤔 Unknown command. Type /help to see what I can do."
	noMemoryText   = "🧠 Nothing remembered yet. Mention \"client:\", \"site:\" or \"equipment:\" in your notes."
	busyText       = "⚠️ Something went wrong. Please try again."
)

func preview(text string) string {
	r := []rune(text)
	if len(r) <= previewRunes {
		return text
	}
	return string(r[:previewRunes]) + "..."
}

func sessionLines(c services.Counts) string {
	return fmt.Sprintf("📊 Current session:\n• %d note(s)\n• %d photo(s)\n\nType /report when ready to generate PDF.", c.Notes, c.Photos)
}

func noteSavedText(text string, c services.Counts) string {
	return fmt.Sprintf("✅ Note %d saved!\n\n\"%s\"\n\n%s", c.Notes, preview(text), sessionLines(c))
}

func photoSavedText(cat models.Category, c services.Counts) string {
	return fmt.Sprintf("📷 Photo %d saved! (%s)\n\n%s", c.Photos, cat.Title(), sessionLines(c))
}

func documentSavedText(added int, c services.Counts) string {
	return fmt.Sprintf("📎 Document added as %d note(s)!\n\n%s", added, sessionLines(c))
}

func statusText(c services.Counts) string {
	if c.Notes == 0 && c.Photos == 0 {
		return "📭 Your session is empty. Send notes or photos to start a report."
	}
	return sessionLines(c)
}

func quotaText(st quota.Status) string {
	return fmt.Sprintf("📊 Reports left today: %d of %d\n⏰ Resets at %s", st.Remaining, st.Limit, st.ResetAt.UTC().Format("2006-01-02 15:04 MST"))
}

func quotaExceededText(e *quota.QuotaExceededError, now time.Time) string {
	wait := e.ResetAt.Sub(now).Round(time.Minute)
	if wait < 0 {
		wait = 0
	}
	return fmt.Sprintf("⛔ Daily limit of %d reports reached.\n\nYour notes and photos are kept. Try again in %s (resets %s).",
		e.Limit, wait, e.ResetAt.UTC().Format("15:04 MST"))
}

func reportCaption(a *models.ReportArtifact) string {
	link := a.StorageURL
	if link == "" {
		link = "Processing..."
	}
	return fmt.Sprintf("✅ Field Report Generated\n\n📝 Notes: %d\n📷 Photos: %d\n\n🔗 View online: %s", a.NoteCount, a.PhotoCount, link)
}

func formatLabel(f models.ReportFormat) string {
	if f == models.FormatDOCX {
		return "Word document"
	}
	return "PDF"
}

func generatingText(f models.ReportFormat) string {
	return fmt.Sprintf("🔄 Generating %s report...", strings.TrimSuffix(formatLabel(f), " document"))
}

func reportErrorText(f models.ReportFormat, err error) string {
	return fmt.Sprintf("❌ Error generating %s. Please try again or contact support.\n\nError: %s", formatLabel(f), err)
}

func unitsText(lines []string) string {
	return "📏 Units reference\n\n" + strings.Join(lines, "\n")
}

func memoryText(facts []models.MemoryFact) string {
	if len(facts) == 0 {
		return noMemoryText
	}
	var b strings.Builder
	b.WriteString("🧠 I remember:\n")
	for _, f := range facts {
		fmt.Fprintf(&b, "• %s: %s\n", f.Key, f.Value)
	}
	return strings.TrimRight(b.String(), "\n")
}
